package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/GollaBharath/Gamify/internal/email"
	"github.com/GollaBharath/Gamify/internal/metrics"
	"github.com/GollaBharath/Gamify/internal/store"
)

type NewsletterHandler struct {
	subs    *store.SubscriberStore
	client  *email.Client
	secret  string
	baseURL string
	logger  *slog.Logger
}

func NewNewsletterHandler(subs *store.SubscriberStore, client *email.Client, secret, baseURL string, logger *slog.Logger) *NewsletterHandler {
	return &NewsletterHandler{subs: subs, client: client, secret: secret, baseURL: baseURL, logger: logger}
}

func (h *NewsletterHandler) unsubscribeLink(address string) string {
	token := email.UnsubscribeToken(h.secret, address)
	return fmt.Sprintf("%s/api/newsletter/unsubscribe?token=%s&email=%s", h.baseURL, token, url.QueryEscape(address))
}

func (h *NewsletterHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Email is required"})
		return
	}
	address := strings.ToLower(strings.TrimSpace(req.Email))
	if address == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Email is required"})
		return
	}

	sub, err := h.subs.GetByEmail(address)
	if err != nil {
		h.logger.Error("lookup subscriber", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	switch {
	case sub != nil && sub.Subscribed:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Email is already subscribed"})
		return
	case sub != nil:
		if err := h.subs.Resubscribe(address); err != nil {
			h.logger.Error("resubscribe", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
			return
		}
	default:
		if _, err := h.subs.Create(address); err != nil {
			h.logger.Error("create subscriber", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
			return
		}
	}

	if h.client != nil && h.client.Configured() {
		if err := h.client.SendSubscriptionConfirmed(address, h.unsubscribeLink(address)); err != nil {
			h.logger.Error("send confirmation", "error", err, "email", address)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to send confirmation email"})
			return
		}
		metrics.NewsletterSent.Inc()
	} else {
		h.logger.Info("email client not configured, skipping confirmation", "email", address)
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully subscribed to newsletter"})
}

func (h *NewsletterHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	address := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("email")))

	if !email.ValidUnsubscribeToken(h.secret, address, token) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid unsubscribe link"})
		return
	}

	sub, err := h.subs.GetByEmail(address)
	if err != nil {
		h.logger.Error("lookup subscriber", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	if sub == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Email not found"})
		return
	}

	if err := h.subs.Unsubscribe(address); err != nil {
		h.logger.Error("unsubscribe", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully unsubscribed from newsletter"})
}

// Send delivers one newsletter issue to every active subscriber. Admin only,
// enforced by middleware.
func (h *NewsletterHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject string `json:"subject"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Subject and content are required"})
		return
	}
	if strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Content) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Subject and content are required"})
		return
	}

	subs, err := h.subs.ListSubscribed()
	if err != nil {
		h.logger.Error("list subscribers", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	if len(subs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No active subscribers found"})
		return
	}

	if h.client == nil || !h.client.Configured() {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Email delivery is not configured"})
		return
	}

	// Per-recipient failures are logged and skipped; one bad address must
	// not abort the whole issue.
	sent := 0
	for _, sub := range subs {
		if err := h.client.SendNewsletter(sub.Email, req.Subject, req.Content, h.unsubscribeLink(sub.Email)); err != nil {
			h.logger.Error("send newsletter", "error", err, "email", sub.Email)
			continue
		}
		metrics.NewsletterSent.Inc()
		sent++
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Newsletter sent to %d subscribers", sent),
	})
}

func (h *NewsletterHandler) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.subs.CountSubscribed()
	if err != nil {
		h.logger.Error("count subscribers", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}
