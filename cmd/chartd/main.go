// Command chartd serves a dashboard of polar-area charts backed by polled
// HTTP endpoints, files or key-value backends.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/zoobzio/chartz"
	"github.com/zoobzio/chartz/internal/backends"
	"github.com/zoobzio/chartz/internal/config"
	"github.com/zoobzio/chartz/internal/dashboard"
	"github.com/zoobzio/chartz/internal/logging"
	"github.com/zoobzio/chartz/internal/server"
	"github.com/zoobzio/chartz/pkg/echarts"
	chartzhttp "github.com/zoobzio/chartz/pkg/http"
	chartzprom "github.com/zoobzio/chartz/pkg/prometheus"
	"github.com/zoobzio/chartz/pkg/raster"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck // stdout sync errors are not actionable

	stopSignals := logging.Observe(log)
	defer stopSignals()

	def := config.DefaultDashboard()
	if cfg.Dashboard.File != "" {
		def, err = config.LoadDashboard(cfg.Dashboard.File)
		if err != nil {
			return err
		}
	}
	if def.Theme == "" {
		def.Theme = cfg.Dashboard.Theme
	}

	baseURL := cfg.Fetch.BaseURL
	if baseURL == "" {
		baseURL = "http://127.0.0.1:" + cfg.Server.Port
	}
	fetcher := chartzhttp.New().
		BaseURL(baseURL).
		Timeout(cfg.Fetch.Timeout).
		Retry(cfg.Fetch.RetryCount, chartzhttp.DefaultRetryWait, chartzhttp.DefaultRetryMaxWait).
		RateLimit(cfg.Fetch.RateLimit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	set, err := backends.Open(ctx, cfg.Backends, log)
	if err != nil {
		return fmt.Errorf("failed to open backends: %w", err)
	}
	defer set.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	dash, err := dashboard.New(def, dashboard.Options{
		Fetcher:  fetcher,
		Backends: set.Backends(),
		Watch:    cfg.Dashboard.Watch,
		Engines: map[string]chartz.Engine{
			config.EngineECharts: echarts.New(),
			config.EngineRaster:  raster.New(),
		},
		DefaultEngine: cfg.Dashboard.Engine,
		Metrics:       chartzprom.New(reg, "chartz"),
		Logger:        log,
	})
	if err != nil {
		return fmt.Errorf("failed to build dashboard: %w", err)
	}
	defer dash.Close()

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.New(cfg.Server, dash, reg, log)

	if err := dash.Start(ctx); err != nil {
		if errors.Is(err, chartz.ErrDisposed) {
			return err
		}
		log.Warn("some charts failed to start", zap.Error(err))
	}
	log.Info("dashboard started", zap.Int("charts", len(dash.Charts())))

	return srv.Run(ctx)
}
