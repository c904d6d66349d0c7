package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nkiryanov/wordvault/internal/cache"
	"github.com/nkiryanov/wordvault/internal/db"
	"github.com/nkiryanov/wordvault/internal/handlers"
	"github.com/nkiryanov/wordvault/internal/logger"
	"github.com/nkiryanov/wordvault/internal/repository/cached"
	"github.com/nkiryanov/wordvault/internal/repository/postgres"
	"github.com/nkiryanov/wordvault/internal/service/auth"
	"github.com/nkiryanov/wordvault/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/wordvault/internal/service/cleanup"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
	Sweeper    *cleanup.Sweeper
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories: postgres storage behind the redis accelerator
	storage := postgres.NewStorage(pool)

	rdb := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
	tokenCache, err := cache.New(rdb, cache.Config{
		TokenTTL:   c.TokenCacheTTL,
		SessionTTL: c.SessionCacheTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token cache. Err: %w", err)
	}

	refreshRepo, err := cached.NewRefreshTokenRepo(storage.Refresh(), tokenCache, logger)
	if err != nil {
		return nil, fmt.Errorf("error while creating cached refresh repo. Err: %w", err)
	}

	// Initialize services
	tokenManager, err := tokenmanager.New(tokenmanager.Config{
		SecretKey:  c.SecretKey,
		ClientID:   c.ClientID,
		AccessTTL:  c.AccessTokenTTL,
		RefreshTTL: c.RefreshTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	authService, err := auth.NewService(auth.Config{}, tokenManager, storage.User(), refreshRepo)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	// Sweeper works against the durable store directly, cache entries age out on their own
	sweeper := cleanup.New(c.SweepInterval, storage.Refresh(), logger)

	mux := handlers.NewRouter(authService, c.Clients(), logger)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		Sweeper:    sweeper,
	}, nil
}

// Run starts the http server and the background sweeper and closes both
// gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	sweeperStopped := s.Sweeper.Run(srvCtx)

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			slog.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		slog.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	slog.Info("Starting server")
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed
	<-sweeperStopped

	return err
}
