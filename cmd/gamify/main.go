package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/GollaBharath/Gamify/internal/backup"
	"github.com/GollaBharath/Gamify/internal/database"
	"github.com/GollaBharath/Gamify/internal/email"
	"github.com/GollaBharath/Gamify/internal/logging"
	"github.com/GollaBharath/Gamify/internal/server"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func main() {
	logger := logging.Setup(os.Getenv("GAMIFY_LOG_LEVEL"), os.Getenv("GAMIFY_LOG_FORMAT"))

	port := envOr("GAMIFY_PORT", "8080")
	dbPath := envOr("GAMIFY_DB_PATH", "gamify.db")

	jwtSecret := os.Getenv("GAMIFY_JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("GAMIFY_JWT_SECRET is required")
		os.Exit(1)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "error", err, "path", dbPath)
		os.Exit(1)
	}
	defer db.Close()

	cfg := server.Config{
		JWTSecret:        jwtSecret,
		JWTExpiry:        envDuration("GAMIFY_JWT_EXPIRY", 24*time.Hour),
		BaseURL:          envOr("GAMIFY_BASE_URL", "http://localhost:"+port),
		CORSOrigins:      strings.Split(envOr("GAMIFY_CORS_ORIGINS", "*"), ","),
		NewsletterSecret: envOr("GAMIFY_NEWSLETTER_SECRET", jwtSecret),
	}

	emailClient := email.NewClient(
		os.Getenv("GAMIFY_POSTMARK_TOKEN"),
		envOr("GAMIFY_FROM_EMAIL", "noreply@gamify.local"),
	)

	backupCfg := backup.Config{
		Endpoint:   os.Getenv("GAMIFY_S3_ENDPOINT"),
		Bucket:     os.Getenv("GAMIFY_S3_BUCKET"),
		Region:     envOr("GAMIFY_S3_REGION", "auto"),
		AccessKey:  os.Getenv("GAMIFY_S3_ACCESS_KEY"),
		SecretKey:  os.Getenv("GAMIFY_S3_SECRET_KEY"),
		Passphrase: os.Getenv("GAMIFY_BACKUP_PASSPHRASE"),
		Interval:   envDuration("GAMIFY_BACKUP_INTERVAL", 24*time.Hour),
	}

	srv := server.New(db, cfg, emailClient, backupCfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv.BackupManager().Start(ctx)
	defer srv.BackupManager().Stop()

	// Periodic housekeeping: expire rate limit windows, purge old idempotency
	// keys, and audit stored balances against the transaction log.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
				if n, err := srv.IdempotencyStore().PurgeOlderThan(24 * time.Hour); err != nil {
					logger.Error("purge idempotency keys", "error", err)
				} else if n > 0 {
					logger.Info("purged idempotency keys", "count", n)
				}
				if _, err := srv.VerifyLedger(ctx); err != nil {
					logger.Error("verify ledger", "error", err)
				}
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", httpServer.Addr)
		fmt.Printf("Gamify running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
