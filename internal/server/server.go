package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xela07ax/agisfl-core/internal/broadcast"
	"github.com/xela07ax/agisfl-core/internal/infra"
	"github.com/xela07ax/agisfl-core/internal/infra/auth"
	"github.com/xela07ax/agisfl-core/internal/store"
	"github.com/xela07ax/agisfl-core/internal/telemetry"
	"go.uber.org/zap"
)

// Server — REST и WebSocket поверхность ядра.
type Server struct {
	cfg     infra.ServerConfig
	logger  *zap.Logger
	store   *store.Store
	hub     *broadcast.Hub
	authSvc *AuthService
	metrics *telemetry.Metrics

	httpSrv *http.Server
}

func New(
	cfg infra.ServerConfig,
	st *store.Store,
	hub *broadcast.Hub,
	authSvc *AuthService,
	m *telemetry.Metrics,
	reg *prometheus.Registry,
	logger *zap.Logger,
) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger.Named("server"),
		store:   st,
		hub:     hub,
		authSvc: authSvc,
		metrics: m,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Открытая поверхность
	r.Post("/api/auth/login", s.handleLogin)
	r.Get("/health", s.handleHealth)
	r.Get("/ws", hub.HandleWS)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// Операторская поверхность под токеном
	r.Group(func(r chi.Router) {
		r.Use(auth.NewMiddleware(authSvc, s.logger))
		r.Get("/api/v1/dashboard", s.handleDashboard)
		r.Post("/api/v1/alerts/{id}/acknowledge", s.handleAcknowledgeAlert)
		r.Post("/api/v1/threats/{id}/mitigate", s.handleMitigateThreat)
		r.Post("/api/v1/threats/{id}/dismiss", s.handleDismissThreat)
	})

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Run блокируется до остановки сервера.
func (s *Server) Run() error {
	s.logger.Info("http server listening", zap.String("addr", s.httpSrv.Addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler отдает собранный роутер. Нужен тестам с httptest.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}
