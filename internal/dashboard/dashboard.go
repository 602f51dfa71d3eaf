// Package dashboard assembles the charts of a dashboard definition: one
// Source, Pipeline and Canvas per chart, sharing a ThemeProvider.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"
	"go.uber.org/zap"

	"github.com/zoobzio/chartz"
	"github.com/zoobzio/chartz/internal/config"
	"github.com/zoobzio/chartz/internal/logging"
	chartzprom "github.com/zoobzio/chartz/pkg/prometheus"
)

// Options wires a Dashboard to its fetchers, engines and observers.
type Options struct {
	// Fetcher serves plain paths and http(s) URLs.
	Fetcher chartz.Fetcher

	// Backends serve endpoints by scheme prefix, e.g. "redis://".
	// Endpoints with an unregistered scheme are rejected.
	Backends map[string]Backend

	// Watch refreshes backend charts when their backend reports a change.
	Watch bool

	// Engines maps engine names to engines. DefaultEngine is used for
	// charts that do not name one.
	Engines       map[string]chartz.Engine
	DefaultEngine string

	Metrics *chartzprom.Provider
	Logger  *logging.Logger
	Clock   clockz.Clock
}

// Backend serves the endpoints of one scheme and watches them for changes.
type Backend interface {
	chartz.Fetcher
	Trigger(endpoint string) chartz.Trigger
}

// Chart is one assembled chart.
type Chart struct {
	Name     string
	Def      config.Chart
	Engine   string
	Source   *chartz.Source[chartz.ChartData]
	Pipeline *chartz.Pipeline
	Canvas   *chartz.Canvas

	interval atomic.Int64
}

// Dashboard owns the charts of a definition.
type Dashboard struct {
	themes *chartz.ThemeProvider
	charts []*Chart
	byName map[string]*Chart
	log    *logging.Logger
}

// New assembles def. Nothing fetches or renders until Start.
func New(def *config.Dashboard, opts Options) (*Dashboard, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	theme, err := chartz.ParseTheme(def.Theme)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = clockz.RealClock
	}

	d := &Dashboard{
		themes: chartz.NewThemeProvider(theme),
		byName: make(map[string]*Chart, len(def.Charts)),
		log:    opts.Logger,
	}
	for _, c := range def.Charts {
		chart, err := d.assemble(c, opts)
		if err != nil {
			return nil, fmt.Errorf("chart %q: %w", c.Name, err)
		}
		d.charts = append(d.charts, chart)
		d.byName[c.Name] = chart
	}
	return d, nil
}

func (d *Dashboard) assemble(def config.Chart, opts Options) (*Chart, error) {
	engineName := def.Engine
	if engineName == "" {
		engineName = opts.DefaultEngine
	}
	engine, ok := opts.Engines[engineName]
	if !ok {
		return nil, fmt.Errorf("engine %q not configured", engineName)
	}

	backend, err := route(def.Endpoint, opts.Backends)
	if err != nil {
		return nil, err
	}
	var fetcher chartz.Fetcher = backend
	if backend == nil {
		if def.Endpoint != "" && opts.Fetcher == nil {
			return nil, errors.New("remote endpoints are not enabled")
		}
		fetcher = opts.Fetcher
	}

	src := chartz.NewSource[chartz.ChartData](def.Endpoint, fetcher).
		Interval(def.Interval).
		Clock(opts.Clock)
	if backend != nil && opts.Watch {
		src.Trigger(backend.Trigger(def.Endpoint))
	}
	if def.Retry.Attempts > 1 {
		if def.Retry.Backoff > 0 {
			src.Backoff(def.Retry.Attempts, def.Retry.Backoff)
		} else {
			src.Retry(def.Retry.Attempts)
		}
	}
	if def.Breaker.Threshold > 0 {
		src.CircuitBreaker(def.Breaker.Threshold, def.Breaker.Reset)
	}

	canvas := chartz.NewCanvas()
	pipeline := chartz.NewPipeline(engine, canvas, d.themes).
		Name(def.Name).
		Clock(opts.Clock)

	if opts.Metrics != nil {
		m := opts.Metrics.Labeled(def.Name)
		src.Metrics(m)
		pipeline.Metrics(m)
	}

	chart := &Chart{
		Name:     def.Name,
		Def:      def,
		Engine:   engineName,
		Source:   src,
		Pipeline: pipeline,
		Canvas:   canvas,
	}
	chart.interval.Store(int64(def.Interval))
	return chart, nil
}

// route returns the backend serving endpoint, or nil for plain paths and
// http(s) URLs.
func route(endpoint string, backends map[string]Backend) (Backend, error) {
	scheme, _, ok := strings.Cut(endpoint, "://")
	if !ok {
		return nil, nil
	}
	scheme += "://"
	if b, ok := backends[scheme]; ok {
		return b, nil
	}
	if scheme == "http://" || scheme == "https://" {
		return nil, nil
	}
	return nil, fmt.Errorf("no backend for %s endpoints", scheme)
}

// Start binds every pipeline to its data and starts every source. A chart
// whose engine fails to render stays registered; the failure is logged and
// the next data or theme change retries it.
func (d *Dashboard) Start(ctx context.Context) error {
	var errs []error
	for _, c := range d.charts {
		log := d.log.Chart(c.Name)
		err := c.Pipeline.Replace(ctx, chartz.Config{
			Data:            c.Def.Data,
			Source:          c.Source,
			Options:         c.Def.Options,
			StartAngle:      c.Def.StartAngle,
			ShowPercentages: c.Def.Percentages(),
			Title:           c.Def.Title,
			Subtitle:        c.Def.Subtitle,
		})
		if errors.Is(err, chartz.ErrDisposed) {
			return err
		}
		if err != nil {
			log.Warn("initial render failed", zap.Error(err))
		}

		if err := c.Source.Start(ctx); err != nil {
			errs = append(errs, fmt.Errorf("chart %q: %w", c.Name, err))
			continue
		}
		log.Info("chart started",
			zap.String("engine", c.Engine),
			zap.String("endpoint", c.Def.Endpoint),
			zap.Duration("interval", c.Def.Interval),
		)
	}
	return errors.Join(errs...)
}

// Close disposes every pipeline and closes every source.
func (d *Dashboard) Close() {
	for _, c := range d.charts {
		c.Pipeline.Dispose()
		c.Source.Close()
	}
}

// Themes returns the shared theme provider.
func (d *Dashboard) Themes() *chartz.ThemeProvider {
	return d.themes
}

// Charts returns the charts in definition order.
func (d *Dashboard) Charts() []*Chart {
	return append([]*Chart(nil), d.charts...)
}

// Chart returns the chart named name.
func (d *Dashboard) Chart(name string) (*Chart, bool) {
	c, ok := d.byName[name]
	return c, ok
}

// Status is the JSON view of a chart.
type Status struct {
	Name        string    `json:"name"`
	Title       string    `json:"title,omitempty"`
	Subtitle    string    `json:"subtitle,omitempty"`
	Engine      string    `json:"engine"`
	Endpoint    string    `json:"endpoint,omitempty"`
	Interval    string    `json:"interval"`
	Static      bool      `json:"static"`
	State       string    `json:"state"`
	Loading     bool      `json:"loading"`
	Error       string    `json:"error,omitempty"`
	Version     uint64    `json:"version"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
	Rendered    bool      `json:"rendered"`
	Renders     uint64    `json:"renders"`
	Revision    uint64    `json:"revision"`
	ContentType string    `json:"contentType,omitempty"`
}

// Status summarizes the chart's data and rendering state.
func (c *Chart) Status() Status {
	snap := c.Source.Snapshot()
	pr := c.Pipeline.Presentation()

	st := Status{
		Name:      c.Name,
		Title:     c.Def.Title,
		Subtitle:  c.Def.Subtitle,
		Engine:    c.Engine,
		Endpoint:  c.Def.Endpoint,
		Interval:  c.Interval().String(),
		Static:    c.Def.Data != nil,
		State:     snap.State.String(),
		Loading:   pr.Loading,
		Version:   snap.Version,
		UpdatedAt: snap.UpdatedAt,
		Rendered:  pr.Rendered,
		Renders:   c.Pipeline.Renders(),
		Revision:  c.Canvas.Revision(),
	}
	if pr.Err != nil {
		st.Error = pr.Err.Error()
	}
	if f, ok := c.Canvas.Content(); ok {
		st.ContentType = f.ContentType
	}
	return st
}

// SetInterval changes the chart's poll interval. Zero stops polling.
func (c *Chart) SetInterval(d time.Duration) {
	if d < 0 {
		d = 0
	}
	c.interval.Store(int64(d))
	c.Source.SetInterval(d)
}

// Interval returns the current poll interval.
func (c *Chart) Interval() time.Duration {
	return time.Duration(c.interval.Load())
}
