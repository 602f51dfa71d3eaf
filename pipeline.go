package chartz

import (
	"context"
	"fmt"
	"sync"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// DataSource is the observable data a Pipeline renders. *Source[ChartData]
// satisfies it.
type DataSource interface {
	Snapshot() Snapshot[ChartData]
	Subscribe(fn func(Snapshot[ChartData])) (unsubscribe func())
	Refresh(ctx context.Context)
}

var _ DataSource = (*Source[ChartData])(nil)

// Config is the caller-facing input of a Pipeline. Data, when set, takes
// precedence over the Source value.
type Config struct {
	Data    *ChartData
	Source  DataSource
	Options *Options

	// StartAngle is the angular offset of the first segment, in degrees.
	StartAngle float64

	ShowPercentages bool
	Title           string
	Subtitle        string
}

// Presentation is what the surrounding chrome needs to frame a chart.
// Loading and Err are forwarded from the source unchanged.
type Presentation struct {
	Loading  bool
	Err      *FetchError
	Refresh  func()
	Surface  Surface
	Title    string
	Subtitle string
	Rendered bool
}

// renderKey is the set of inputs whose change forces a new chart instance.
// Options is compared by reference: callers must pass a new *Options to
// have changed options picked up.
type renderKey struct {
	data            ChartData
	theme           Theme
	startAngle      float64
	showPercentages bool
	options         *Options
}

func (k *renderKey) matches(other renderKey) bool {
	return k.theme == other.theme &&
		k.startAngle == other.startAngle &&
		k.showPercentages == other.showPercentages &&
		k.options == other.options &&
		k.data.Equal(other.data)
}

// Pipeline turns resolved chart data, the active theme and caller options
// into exactly one live chart instance on a surface. It re-renders only when
// the render inputs change: destroying the previous instance before creating
// the next, so at most one instance is live at any time.
type Pipeline struct {
	name    string
	engine  Engine
	surface Surface
	themes  ThemeSource
	clock   clockz.Clock
	metrics MetricsProvider

	// lifecycle serializes Replace and Dispose. It is never taken from a
	// subscription callback, so subscribing under it cannot deadlock with a
	// source delivering a snapshot.
	lifecycle   sync.Mutex
	unsubSource func()
	unsubTheme  func()

	mu        sync.Mutex
	cfg       Config
	key       *renderKey
	instance  Instance
	renders   uint64
	disposed  bool
	listeners map[uint64]func(Presentation)
	nextLst   uint64
}

// NewPipeline creates a Pipeline drawing through engine onto surface, with
// colors following themes. A nil themes uses a fixed light theme.
//
// Example:
//
//	p := chartz.NewPipeline(echarts.New(), chartz.NewCanvas(), themes)
//	err := p.Replace(ctx, chartz.Config{
//	    Source:          src,
//	    ShowPercentages: true,
//	})
//	defer p.Dispose()
func NewPipeline(engine Engine, surface Surface, themes ThemeSource) *Pipeline {
	if themes == nil {
		themes = NewThemeProvider(ThemeLight)
	}
	if surface == nil {
		surface = NewCanvas()
	}
	return &Pipeline{
		engine:    engine,
		surface:   surface,
		themes:    themes,
		clock:     clockz.RealClock,
		listeners: make(map[uint64]func(Presentation)),
	}
}

// Name sets the identifier passed to the engine as Spec.ID.
// Must be called before Replace().
func (p *Pipeline) Name(name string) *Pipeline {
	p.name = name
	return p
}

// Clock sets a custom clock for render timing.
// Must be called before Replace().
func (p *Pipeline) Clock(clock clockz.Clock) *Pipeline {
	p.clock = clock
	return p
}

// Metrics sets a metrics provider. Must be called before Replace().
func (p *Pipeline) Metrics(provider MetricsProvider) *Pipeline {
	p.metrics = provider
	return p
}

// Replace installs cfg and synchronizes the chart. The pipeline follows the
// config's Source and the theme from then on, re-rendering as they change.
func (p *Pipeline) Replace(ctx context.Context, cfg Config) error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return ErrDisposed
	}
	sourceChanged := p.cfg.Source != cfg.Source || p.unsubSource == nil
	p.cfg = cfg
	p.mu.Unlock()

	if p.unsubTheme == nil {
		p.unsubTheme = p.themes.Subscribe(p.onTheme)
	}
	if sourceChanged {
		if p.unsubSource != nil {
			p.unsubSource()
		}
		p.unsubSource = func() {}
		if cfg.Source != nil {
			p.unsubSource = cfg.Source.Subscribe(p.onSnapshot)
		}
	}

	err := p.Sync(ctx)
	p.notify()
	return err
}

// Sync resolves the data and re-renders if any render input changed since
// the last successful render. Absent data leaves the pipeline idle.
func (p *Pipeline) Sync(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return ErrDisposed
	}
	if p.engine == nil {
		return ErrNoEngine
	}
	return p.syncLocked(ctx)
}

func (p *Pipeline) syncLocked(ctx context.Context) error {
	data := p.resolve()
	if data == nil {
		p.destroyLocked(ctx)
		p.key = nil
		return nil
	}

	key := renderKey{
		data:            *data,
		theme:           p.themes.Theme(),
		startAngle:      p.cfg.StartAngle,
		showPercentages: p.cfg.ShowPercentages,
		options:         p.cfg.Options,
	}
	if p.key != nil && p.instance != nil && p.key.matches(key) {
		capitan.Emit(ctx, ChartRenderSkipped, KeyInstance.Field(p.instance.ID()))
		if p.metrics != nil {
			p.metrics.OnRenderSkipped()
		}
		return nil
	}

	start := p.clock.Now()
	p.destroyLocked(ctx)

	palette := ResolvePalette(key.theme)
	spec := Spec{
		ID:      p.name,
		Type:    ChartTypePolarArea,
		Data:    Colorize(key.data, palette),
		Options: Merge(Baseline(palette, key.startAngle, key.showPercentages), key.options),
		Theme:   key.theme,
		Palette: palette,
	}

	inst, err := p.engine.Create(ctx, p.surface, spec)
	if err != nil {
		p.key = nil
		capitan.Emit(ctx, ChartRenderFailed,
			KeyInstance.Field(p.name),
			KeyError.Field(err.Error()),
		)
		return fmt.Errorf("create chart: %w", err)
	}

	key.data = key.data.Clone()
	p.key = &key
	p.instance = inst
	p.renders++
	elapsed := p.clock.Since(start)

	capitan.Emit(ctx, ChartRendered,
		KeyInstance.Field(inst.ID()),
		KeyTheme.Field(string(key.theme)),
		KeyDuration.Field(elapsed),
	)
	if p.metrics != nil {
		p.metrics.OnRender(elapsed)
	}
	return nil
}

// resolve returns static data, else the source's latest value, else nil.
func (p *Pipeline) resolve() *ChartData {
	if p.cfg.Data != nil {
		return p.cfg.Data
	}
	if p.cfg.Source != nil {
		return p.cfg.Source.Snapshot().Value
	}
	return nil
}

// destroyLocked releases the live instance, if any, and forgets it.
func (p *Pipeline) destroyLocked(ctx context.Context) {
	if p.instance == nil {
		return
	}
	inst := p.instance
	p.instance = nil
	inst.Destroy()
	capitan.Emit(ctx, ChartDestroyed, KeyInstance.Field(inst.ID()))
}

func (p *Pipeline) onSnapshot(Snapshot[ChartData]) {
	_ = p.Sync(context.Background()) //nolint:errcheck // render failures are emitted as signals
	p.notify()
}

func (p *Pipeline) onTheme(Theme) {
	_ = p.Sync(context.Background()) //nolint:errcheck // render failures are emitted as signals
	p.notify()
}

// Presentation returns the current framing state.
func (p *Pipeline) Presentation() Presentation {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.presentationLocked()
}

func (p *Pipeline) presentationLocked() Presentation {
	pr := Presentation{
		Surface:  p.surface,
		Title:    p.cfg.Title,
		Subtitle: p.cfg.Subtitle,
		Rendered: p.instance != nil,
	}
	if src := p.cfg.Source; src != nil {
		snap := src.Snapshot()
		pr.Loading = snap.Loading
		pr.Err = snap.Err
		pr.Refresh = func() { src.Refresh(context.Background()) }
	}
	return pr
}

// Subscribe registers fn to receive the presentation after every sync
// driven by Replace, a source snapshot or a theme change.
func (p *Pipeline) Subscribe(fn func(Presentation)) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return func() {}
	}
	id := p.nextLst
	p.nextLst++
	p.listeners[id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *Pipeline) notify() {
	p.mu.Lock()
	if p.disposed || len(p.listeners) == 0 {
		p.mu.Unlock()
		return
	}
	pr := p.presentationLocked()
	fns := make([]func(Presentation), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(pr)
	}
}

// Instance returns the live chart instance, or nil.
func (p *Pipeline) Instance() Instance {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.instance
}

// Renders returns how many instances the pipeline has created.
func (p *Pipeline) Renders() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.renders
}

// Dispose stops following the source and theme and destroys the live
// instance. Dispose is idempotent; later Replace and Sync return ErrDisposed.
func (p *Pipeline) Dispose() {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.disposed = true
	p.listeners = nil
	p.destroyLocked(context.Background())
	p.key = nil
	p.mu.Unlock()

	if p.unsubSource != nil {
		p.unsubSource()
		p.unsubSource = nil
	}
	if p.unsubTheme != nil {
		p.unsubTheme()
		p.unsubTheme = nil
	}

	capitan.Emit(context.Background(), PipelineDisposed, KeyInstance.Field(p.name))
}
