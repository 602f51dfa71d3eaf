// Package server exposes a dashboard over HTTP: chart status, rendered
// frames, refresh and theme control, plus a websocket stream of updates.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/zoobzio/chartz/internal/config"
	"github.com/zoobzio/chartz/internal/dashboard"
	"github.com/zoobzio/chartz/internal/logging"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	router *gin.Engine
	cfg    config.ServerConfig
	log    *logging.Logger
}

// New creates a server for dash. Metrics are registered on reg and served
// from /metrics.
func New(cfg config.ServerConfig, dash *dashboard.Dashboard, reg *prometheus.Registry, log *logging.Logger) *Server {
	if log == nil {
		log = logging.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(newHTTPMetrics(reg).Middleware())
	router.Use(RequestLogger(log))
	router.Use(CORS())

	h := &handlers{dash: dash, started: time.Now()}
	ws := &streamHandler{dash: dash, log: log}

	router.GET("/health", h.health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	router.GET("/ws", ws.handle)

	api := router.Group("/api")
	api.Use(RateLimit(RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))
	api.GET("/charts", h.listCharts)
	api.GET("/charts/:name", h.getChart)
	api.GET("/charts/:name/render", h.renderChart)
	api.POST("/charts/:name/refresh", h.refreshChart)
	api.PUT("/charts/:name/interval", h.setInterval)
	api.GET("/theme", h.getTheme)
	api.PUT("/theme", h.setTheme)
	api.POST("/theme/toggle", h.toggleTheme)
	api.GET("/system/info", h.systemInfo)

	return &Server{router: router, cfg: cfg, log: log}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
