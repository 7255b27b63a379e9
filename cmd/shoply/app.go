package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vpetrenko/shoply/internal/db"
	"github.com/vpetrenko/shoply/internal/handlers"
	"github.com/vpetrenko/shoply/internal/handlers/middleware"
	"github.com/vpetrenko/shoply/internal/logger"
	"github.com/vpetrenko/shoply/internal/mailer"
	"github.com/vpetrenko/shoply/internal/repository/postgres"
	"github.com/vpetrenko/shoply/internal/service/auth"
	"github.com/vpetrenko/shoply/internal/service/auth/tokenmanager"
	"github.com/vpetrenko/shoply/internal/service/otp"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler
	Logger     logger.Logger
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

	// Initialize services
	tokenManager, err := tokenmanager.New(
		tokenmanager.Config{
			AccessSecret:  c.AccessSecret,
			RefreshSecret: c.RefreshSecret,
		},
		storage.Refresh(),
	)
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	sender, err := mailer.New(mailer.Config{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUser,
		Password: c.SMTPPassword,
		From:     c.EmailFrom,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating mailer. Err: %w", err)
	}

	otpManager, err := otp.NewManager(otp.Config{}, storage.OTP(), sender, log)
	if err != nil {
		return nil, fmt.Errorf("error while creating otp manager. Err: %w", err)
	}

	authService, err := auth.NewService(auth.Config{}, tokenManager, otpManager, storage)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	// Initialize handlers
	authHandler := handlers.NewAuth(authService, log)

	mux := handlers.NewRouter(
		authHandler,
		middleware.AuthMiddleware(authService),
		middleware.LoggerMiddleware(log),
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		Logger:     log,
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
			s.Logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.Logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.Logger.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
