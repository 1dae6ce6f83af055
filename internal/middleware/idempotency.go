package middleware

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/GollaBharath/Gamify/internal/auth"
	"github.com/GollaBharath/Gamify/internal/store"
)

const idempotencyHeader = "Idempotency-Key"

// bodyRecorder captures the response so it can be stored for replay.
type bodyRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *bodyRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(p []byte) (int, error) {
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}

// Idempotency dedups retried award requests. When the client sends an
// Idempotency-Key header, the first response under that key is stored and
// any retry gets the stored response back instead of a second credit.
// Requests without the header pass through untouched; replaying those
// double-credits.
// Runs after RequireAuth: keys are scoped to the authenticated caller.
func Idempotency(keys *store.IdempotencyStore, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(idempotencyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID := auth.UserID(r.Context())

			status, body, ok, err := keys.Get(key, userID)
			if err != nil {
				logger.Error("idempotency lookup", "error", err, "key", key)
				next.ServeHTTP(w, r)
				return
			}
			if ok {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Idempotency-Replayed", "true")
				w.WriteHeader(status)
				w.Write(body)
				return
			}

			rec := &bodyRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			// Anything below 500 replays, validation failures included: the
			// same request gets the same answer. Server errors stay
			// retryable for real.
			if rec.status < 500 {
				if err := keys.Save(key, userID, rec.status, rec.body.Bytes()); err != nil {
					logger.Error("idempotency save", "error", err, "key", key)
				}
			}
		})
	}
}
