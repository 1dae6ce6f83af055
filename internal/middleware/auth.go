package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/GollaBharath/Gamify/internal/auth"
	"github.com/GollaBharath/Gamify/internal/store"
)

// RequireAuth validates the Authorization bearer token, resolves the caller
// to a stored user, and populates the AuthContext. The caller's identity
// comes from the token and the database only, never from the request body.
func RequireAuth(users *store.UserStore, tokens *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w)
				return
			}

			userID, err := tokens.Verify(token)
			if err != nil {
				unauthorized(w)
				return
			}

			user, err := users.GetByID(userID)
			if err != nil || user == nil {
				unauthorized(w)
				return
			}

			role, ok := auth.ParseRole(user.Role)
			if !ok {
				unauthorized(w)
				return
			}

			ctx := auth.WithAuth(r.Context(), auth.AuthContext{UserID: user.ID, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCapability rejects with 403 unless the authenticated caller's role
// passes the given capability check, e.g. auth.Role.CanAwardPoints.
func RequireCapability(allowed func(auth.Role) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := auth.FromContext(r.Context())
			if !ok || !allowed(ac.Role) {
				writeJSONError(w, http.StatusForbidden, "Forbidden: insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func unauthorized(w http.ResponseWriter) {
	writeJSONError(w, http.StatusUnauthorized, "Not authorized")
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"message": message,
	})
}
