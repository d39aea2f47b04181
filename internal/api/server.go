// Package api exposes the wallet service over JSON HTTP. Operations staged
// without a password wait for POST /operations/approve.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/algointent/walletcore/internal/guard"
	"github.com/algointent/walletcore/internal/metrics"
	"github.com/algointent/walletcore/internal/service/wallet"
)

// Config configures the HTTP server.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server serves the wallet API.
type Server struct {
	cfg      Config
	wallets  *wallet.Service
	metrics  *metrics.Metrics
	throttle *guard.Throttle
	logger   *zap.Logger
	router   *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithThrottle replaces the default per-user request throttle.
func WithThrottle(t *guard.Throttle) Option {
	return func(s *Server) { s.throttle = t }
}

// WithMetrics sets the counters exposed at /v1/metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a Server for svc.
func NewServer(cfg Config, svc *wallet.Service, opts ...Option) *Server {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 90 * time.Second
	}
	s := &Server{
		cfg:      cfg,
		wallets:  svc,
		metrics:  metrics.New(),
		throttle: guard.DefaultThrottle(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Throttle returns the request throttle so callers can prune it.
func (s *Server) Throttle() *guard.Throttle {
	return s.throttle
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoveryMiddleware(s.logger))

	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/metrics", s.metricsSnapshot).Methods(http.MethodGet)

	u := v1.PathPrefix("/users/{id}").Subrouter()
	u.Use(throttleMiddleware(s.throttle))
	u.HandleFunc("/wallet", s.createWallet).Methods(http.MethodPost)
	u.HandleFunc("/wallet", s.walletStatus).Methods(http.MethodGet)
	u.HandleFunc("/wallet", s.disconnectWallet).Methods(http.MethodDelete)
	u.HandleFunc("/wallet/connect", s.connectWallet).Methods(http.MethodPost)
	u.HandleFunc("/balance", s.balance).Methods(http.MethodGet)
	u.HandleFunc("/operations", s.stageOperation).Methods(http.MethodPost)
	u.HandleFunc("/operations", s.pendingOperation).Methods(http.MethodGet)
	u.HandleFunc("/operations", s.cancelOperation).Methods(http.MethodDelete)
	u.HandleFunc("/operations/approve", s.approveOperation).Methods(http.MethodPost)
	u.HandleFunc("/lockout/reset", s.resetLockout).Methods(http.MethodPost)

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("api shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
