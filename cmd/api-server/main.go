package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"libraryhub/database"
	"libraryhub/internal/config"
	"libraryhub/internal/microservices/http-api/handler"
	"libraryhub/internal/microservices/http-api/middleware"
	"libraryhub/internal/microservices/http-api/repository"
	"libraryhub/internal/microservices/http-api/service"
	"libraryhub/internal/session"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg, logger)
	if err != nil {
		logger.Error("database_connect_failed", "error", err.Error())
		os.Exit(1)
	}
	defer database.Close(db)

	sessionStore, err := newSessionStore(cfg, logger)
	if err != nil {
		logger.Error("session_store_failed", "error", err.Error())
		os.Exit(1)
	}
	defer sessionStore.Close()

	store := repository.NewStore(db)
	sessions := session.NewManager(sessionStore, cfg.SessionSecret, cfg.SessionTTL)
	accounts := service.NewAccountService(store, logger)

	router := handler.NewRouter(handler.RouterDeps{
		Auth:     service.NewAuthService(accounts, store, sessions, logger),
		Books:    service.NewBookService(store, logger),
		Ledger:   service.NewLedgerService(store, cfg.LoanPeriod, service.WithLogger(logger)),
		Accounts: accounts,
		Cookie: handler.CookieOptions{
			Name:   cfg.SessionCookie,
			TTL:    cfg.SessionTTL,
			Secure: cfg.IsProduction(),
		},
		LoginLimiter: middleware.NewIPRateLimiter(cfg.LoginRateLimit, cfg.LoginRateBurst),
		Logger:       logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("starting_http_server", "addr", srv.Addr, "env", cfg.GoEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("received_shutdown_signal")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("server_shutdown_failed", "error", err.Error())
		}
		logger.Info("server_stopped_gracefully")
	case err := <-errChan:
		logger.Error("server_error", "error", err.Error())
		os.Exit(1)
	}
}

// newSessionStore uses Redis when REDIS_URL is set and process memory otherwise.
func newSessionStore(cfg *config.Config, logger *slog.Logger) (session.Store, error) {
	if cfg.RedisURL == "" {
		logger.Warn("session_store_in_memory", "reason", "REDIS_URL not set")
		return session.NewMemoryStore(), nil
	}
	store, err := session.NewRedisStore(cfg.RedisURL, cfg.RedisPassword)
	if err != nil {
		return nil, err
	}
	logger.Info("session_store_redis")
	return store, nil
}
