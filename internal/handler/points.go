package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/GollaBharath/Gamify/internal/auth"
	"github.com/GollaBharath/Gamify/internal/ledger"
	"github.com/GollaBharath/Gamify/internal/metrics"
	"github.com/GollaBharath/Gamify/internal/model"
	"github.com/GollaBharath/Gamify/internal/websocket"
)

type PointsHandler struct {
	svc    *ledger.Service
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewPointsHandler(svc *ledger.Service, hub *websocket.Hub, logger *slog.Logger) *PointsHandler {
	return &PointsHandler{svc: svc, hub: hub, logger: logger}
}

func (h *PointsHandler) broadcast(ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(ev)
	}
}

// Award credits points to a user. Role enforcement happens in middleware
// before this runs; the actor comes from the auth context, never the body.
func (h *PointsHandler) Award(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID int64  `json:"userId"`
		Points int    `json:"points"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.AwardRequests.WithLabelValues("validation_error").Inc()
		writeMessage(w, http.StatusBadRequest, false, "All fields are required")
		return
	}

	if req.UserID == 0 || req.Points == 0 || strings.TrimSpace(req.Reason) == "" {
		metrics.AwardRequests.WithLabelValues("validation_error").Inc()
		writeMessage(w, http.StatusBadRequest, false, "All fields are required")
		return
	}

	actorID := auth.UserID(r.Context())
	result, err := h.svc.Award(r.Context(), actorID, req.UserID, req.Points, req.Reason)
	switch {
	case errors.Is(err, ledger.ErrUserNotFound):
		metrics.AwardRequests.WithLabelValues("not_found").Inc()
		writeMessage(w, http.StatusNotFound, false, "User not found")
		return
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ledger.ErrMissingReason):
		metrics.AwardRequests.WithLabelValues("validation_error").Inc()
		writeMessage(w, http.StatusBadRequest, false, "All fields are required")
		return
	case err != nil:
		metrics.AwardRequests.WithLabelValues("error").Inc()
		h.logger.Error("award points", "error", err, "user_id", req.UserID, "actor_id", actorID)
		writeMessage(w, http.StatusInternalServerError, false, "Server error")
		return
	}

	metrics.AwardRequests.WithLabelValues("ok").Inc()
	metrics.PointsAwarded.Add(float64(req.Points))
	h.broadcast(websocket.AwardEvent(req.UserID, req.Points, result.Balance))

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Points awarded successfully",
		"data":    result,
	})
}

// History returns the transaction log, newest first. Members are scoped to
// their own history regardless of the userId parameter.
func (h *PointsHandler) History(w http.ResponseWriter, r *http.Request) {
	var filterUserID int64
	if raw := r.URL.Query().Get("userId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, false, "Invalid userId")
			return
		}
		filterUserID = id
	}

	ac, _ := auth.FromContext(r.Context())
	history, err := h.svc.History(r.Context(), ac.UserID, ac.Role, filterUserID)
	if err != nil {
		h.logger.Error("transaction history", "error", err, "requester", ac.UserID)
		writeMessage(w, http.StatusInternalServerError, false, "Server error")
		return
	}
	if history == nil {
		history = []model.TransactionDetail{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    history,
	})
}
