package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/GollaBharath/Gamify/internal/auth"
	"github.com/GollaBharath/Gamify/internal/backup"
	"github.com/GollaBharath/Gamify/internal/email"
	"github.com/GollaBharath/Gamify/internal/handler"
	"github.com/GollaBharath/Gamify/internal/ledger"
	"github.com/GollaBharath/Gamify/internal/metrics"
	"github.com/GollaBharath/Gamify/internal/middleware"
	"github.com/GollaBharath/Gamify/internal/store"
	ws "github.com/GollaBharath/Gamify/internal/websocket"
)

// Config carries the settings the HTTP layer needs. Everything else comes
// in as constructed dependencies.
type Config struct {
	JWTSecret        string
	JWTExpiry        time.Duration
	BaseURL          string
	CORSOrigins      []string
	NewsletterSecret string
}

type Server struct {
	db          *sql.DB
	cfg         Config
	hub         *ws.Hub
	authH       *handler.AuthHandler
	pointsH     *handler.PointsHandler
	newsletterH *handler.NewsletterHandler
	userStore   *store.UserStore
	idemStore   *store.IdempotencyStore
	ledgerSvc   *ledger.Service
	tokens      *auth.TokenManager
	rateLimiter *middleware.RateLimiter
	backupMgr   *backup.Manager
	logger      *slog.Logger
}

func New(db *sql.DB, cfg Config, emailClient *email.Client, backupCfg backup.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiry)

	userStore := store.NewUserStore(db)
	subscriberStore := store.NewSubscriberStore(db)
	idemStore := store.NewIdempotencyStore(db)
	backupStore := store.NewBackupStore(db)

	ledgerSvc := ledger.NewService(db, logger.With("component", "ledger"))

	return &Server{
		db:          db,
		cfg:         cfg,
		hub:         hub,
		authH:       handler.NewAuthHandler(userStore, tokens, logger.With("component", "auth")),
		pointsH:     handler.NewPointsHandler(ledgerSvc, hub, logger.With("component", "points")),
		newsletterH: handler.NewNewsletterHandler(subscriberStore, emailClient, cfg.NewsletterSecret, cfg.BaseURL, logger.With("component", "newsletter")),
		userStore:   userStore,
		idemStore:   idemStore,
		ledgerSvc:   ledgerSvc,
		tokens:      tokens,
		rateLimiter: middleware.NewRateLimiter(),
		backupMgr:   backup.NewManager(backupCfg, db, backupStore, logger),
		logger:      logger,
	}
}

// RateLimiter returns the limiter for the background cleanup task.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// IdempotencyStore returns the key store for the background purge task.
func (s *Server) IdempotencyStore() *store.IdempotencyStore {
	return s.idemStore
}

// BackupManager returns the backup manager so main can start and stop it.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupMgr
}

// VerifyLedger recomputes every balance from the transaction log and logs
// each account whose stored points disagree. Run periodically so drift from
// operator intervention or partial restores surfaces in the logs.
func (s *Server) VerifyLedger(ctx context.Context) ([]ledger.Drift, error) {
	drifts, err := s.ledgerSvc.VerifyBalances(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range drifts {
		s.logger.Warn("balance drift",
			"user_id", d.UserID,
			"username", d.Username,
			"points", d.Points,
			"ledger_sum", d.LedgerSum,
		)
	}
	return drifts, nil
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public routes. Login and register are rate limited per client IP.
	mux.HandleFunc("POST /api/auth/register", s.rateLimited(s.authH.Register, 10, 15*time.Minute))
	mux.HandleFunc("POST /api/auth/login", s.rateLimited(s.authH.Login, 10, 15*time.Minute))
	mux.HandleFunc("POST /api/newsletter/subscribe", s.rateLimited(s.newsletterH.Subscribe, 5, time.Hour))
	mux.HandleFunc("GET /api/newsletter/unsubscribe", s.newsletterH.Unsubscribe)
	mux.HandleFunc("GET /api/newsletter/count", s.newsletterH.Count)
	mux.HandleFunc("GET /api/health", s.health)
	mux.Handle("GET /metrics", metrics.Handler())

	// Protected routes.
	requireAuth := middleware.RequireAuth(s.userStore, s.tokens)
	canAward := middleware.RequireCapability(auth.Role.CanAwardPoints)
	canSend := middleware.RequireCapability(auth.Role.CanSendNewsletter)
	canManage := middleware.RequireCapability(auth.Role.CanManageRoles)
	idempotent := middleware.Idempotency(s.idemStore, s.logger.With("component", "idempotency"))

	mux.Handle("GET /api/users/profile", requireAuth(http.HandlerFunc(s.authH.Profile)))
	mux.Handle("PUT /api/users/{id}/role", requireAuth(canManage(http.HandlerFunc(s.authH.SetRole))))
	mux.Handle("POST /api/points/award", requireAuth(canAward(idempotent(http.HandlerFunc(s.pointsH.Award)))))
	mux.Handle("GET /api/points/history", requireAuth(http.HandlerFunc(s.pointsH.History)))
	mux.Handle("POST /api/newsletter/send", requireAuth(canSend(http.HandlerFunc(s.newsletterH.Send))))
	mux.Handle("GET /ws", requireAuth(ws.Handle(s.hub, s.logger.With("component", "websocket"))))

	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: true,
	})

	logged := middleware.RequestLogger(s.logger.With("component", "http"))
	return logged(c.Handler(mux))
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

func (s *Server) rateLimited(h http.HandlerFunc, limit int, window time.Duration) http.HandlerFunc {
	// Key on route + client IP so each endpoint spends its own budget; a
	// burst of failed logins must not consume the subscribe allowance.
	keyFunc := func(r *http.Request) string {
		return r.URL.Path + "|" + middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, limit, window)
	wrapped := rl(h)
	return func(w http.ResponseWriter, r *http.Request) {
		wrapped.ServeHTTP(w, r)
	}
}
