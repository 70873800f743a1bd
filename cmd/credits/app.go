package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mkowalcze/creditledger/internal/db"
	"github.com/mkowalcze/creditledger/internal/handlers"
	"github.com/mkowalcze/creditledger/internal/logger"
	"github.com/mkowalcze/creditledger/internal/metrics"
	"github.com/mkowalcze/creditledger/internal/repository/postgres"
	"github.com/mkowalcze/creditledger/internal/service/activation"
	"github.com/mkowalcze/creditledger/internal/service/analytics"
	"github.com/mkowalcze/creditledger/internal/service/ledger"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger logger.Logger
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize metrics and services
	registry := metrics.NewRegistry()
	m := metrics.New(registry)

	ledgerService := ledger.NewService(storage, m)
	activationService := activation.NewService(storage, m)
	analyticsService := analytics.NewService(storage)

	mux := handlers.NewRouter(
		ledgerService,
		activationService,
		analyticsService,
		storage.Packages(),
		metrics.Handler(registry),
		log,
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		logger:     log,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
