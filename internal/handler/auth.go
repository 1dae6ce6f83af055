package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/GollaBharath/Gamify/internal/auth"
	"github.com/GollaBharath/Gamify/internal/model"
	"github.com/GollaBharath/Gamify/internal/store"
)

type AuthHandler struct {
	users  *store.UserStore
	tokens *auth.TokenManager
	logger *slog.Logger
}

func NewAuthHandler(users *store.UserStore, tokens *auth.TokenManager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, logger: logger}
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func buildUserResponse(token string, u *model.User) map[string]any {
	return map[string]any{
		"success": true,
		"token":   token,
		"user": userResponse{
			ID:       u.ID,
			Username: u.Username,
			Email:    u.Email,
			Role:     u.Role,
		},
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, "All fields are required")
		return
	}

	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if username == "" || email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, false, "All fields are required")
		return
	}

	existing, err := h.users.GetByEmailOrUsername(email, username)
	if err != nil {
		h.logger.Error("lookup existing user", "error", err)
		writeMessage(w, http.StatusInternalServerError, false, "Server error during registration")
		return
	}
	if existing != nil {
		writeMessage(w, http.StatusBadRequest, false, "User already exists")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeMessage(w, http.StatusInternalServerError, false, "Server error during registration")
		return
	}

	user, err := h.users.Create(username, email, hash, string(auth.RoleMember))
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeMessage(w, http.StatusInternalServerError, false, "Server error during registration")
		return
	}

	token, err := h.tokens.Mint(user.ID)
	if err != nil {
		h.logger.Error("mint token", "error", err)
		writeMessage(w, http.StatusInternalServerError, false, "Server error during registration")
		return
	}

	writeJSON(w, http.StatusCreated, buildUserResponse(token, user))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Email and password are required")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, false, "Email and password are required")
		return
	}

	user, err := h.users.GetByEmail(email)
	if err != nil {
		h.logger.Error("lookup user", "error", err)
		writeMessage(w, http.StatusInternalServerError, false, "Server error during login")
		return
	}
	// OAuth-provisioned accounts have no password hash and cannot log in
	// locally; treat them the same as a wrong password.
	if user == nil || user.PasswordHash == "" || !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeMessage(w, http.StatusUnauthorized, false, "Invalid credentials")
		return
	}

	token, err := h.tokens.Mint(user.ID)
	if err != nil {
		h.logger.Error("mint token", "error", err)
		writeMessage(w, http.StatusInternalServerError, false, "Server error during login")
		return
	}

	writeJSON(w, http.StatusOK, buildUserResponse(token, user))
}

// SetRole changes a user's role to another value from the closed role set.
// Admin only, enforced by middleware.
func (h *AuthHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Invalid user id")
		return
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Invalid role")
		return
	}
	role, ok := auth.ParseRole(req.Role)
	if !ok {
		writeMessage(w, http.StatusBadRequest, false, "Invalid role")
		return
	}

	user, err := h.users.GetByID(id)
	if err != nil {
		h.logger.Error("lookup user", "error", err, "user_id", id)
		writeMessage(w, http.StatusInternalServerError, false, "Server error")
		return
	}
	if user == nil {
		writeMessage(w, http.StatusNotFound, false, "User not found")
		return
	}

	if err := h.users.SetRole(id, string(role)); err != nil {
		h.logger.Error("set role", "error", err, "user_id", id)
		writeMessage(w, http.StatusInternalServerError, false, "Server error")
		return
	}

	updated, err := h.users.GetByID(id)
	if err != nil || updated == nil {
		h.logger.Error("reload user", "error", err, "user_id", id)
		writeMessage(w, http.StatusInternalServerError, false, "Server error")
		return
	}

	h.logger.Info("role changed", "user_id", id, "role", role)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Role updated",
		"user":    updated,
	})
}

// Profile returns the authenticated caller's account.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(auth.UserID(r.Context()))
	if err != nil || user == nil {
		h.logger.Error("load profile", "error", err)
		writeMessage(w, http.StatusInternalServerError, false, "Server error during profile fetch")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Protected data",
		"user":    user,
	})
}
