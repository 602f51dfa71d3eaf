package chartz

import (
	"context"
	"slices"
	"sync"
	"time"
)

// ChartType names the kind of chart an engine draws.
type ChartType string

// ChartTypePolarArea is a polar-area chart: equal-angle segments whose
// radius is proportional to the value.
const ChartTypePolarArea ChartType = "polarArea"

// Spec is the fully resolved input of one render: merged options, data with
// palette colors applied, and the theme they were derived from.
type Spec struct {
	ID      string
	Type    ChartType
	Data    ChartData
	Options Options
	Theme   Theme
	Palette Palette
}

// Engine creates chart instances on a surface.
type Engine interface {
	Create(ctx context.Context, surface Surface, spec Spec) (Instance, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, surface Surface, spec Spec) (Instance, error)

// Create calls f(ctx, surface, spec).
func (f EngineFunc) Create(ctx context.Context, surface Surface, spec Spec) (Instance, error) {
	return f(ctx, surface, spec)
}

// Instance is a live chart created by an Engine. Destroy releases it and
// clears its drawing from the surface.
type Instance interface {
	ID() string
	Destroy()
}

// Surface is the drawing target an engine renders into.
type Surface interface {
	Draw(contentType string, body []byte)
	Clear()
}

// Frame is the content of a Canvas at one point in time.
type Frame struct {
	ContentType string
	Body        []byte
	Revision    uint64
	DrawnAt     time.Time
}

// Canvas is an in-memory Surface safe for concurrent use. Every Draw or
// Clear bumps its revision.
type Canvas struct {
	mu       sync.RWMutex
	frame    Frame
	drawn    bool
	revision uint64
}

// NewCanvas creates an empty Canvas.
func NewCanvas() *Canvas {
	return &Canvas{}
}

// Draw replaces the canvas content.
func (c *Canvas) Draw(contentType string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revision++
	c.frame = Frame{
		ContentType: contentType,
		Body:        slices.Clone(body),
		Revision:    c.revision,
		DrawnAt:     time.Now(),
	}
	c.drawn = true
}

// Clear empties the canvas.
func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revision++
	c.frame = Frame{Revision: c.revision}
	c.drawn = false
}

// Content returns the current frame and whether anything is drawn.
func (c *Canvas) Content() (Frame, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frame, c.drawn
}

// Revision returns the number of Draw and Clear calls so far.
func (c *Canvas) Revision() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.revision
}

var _ Surface = (*Canvas)(nil)

// Colorize returns a copy of data with palette colors applied to every
// dataset without a BackgroundColor. A dataset that brings its own fill is
// left exactly as given. Colors a dataset already carries are never
// overwritten.
func Colorize(data ChartData, p Palette) ChartData {
	out := data.Clone()
	n := out.Categories()
	for i := range out.Datasets {
		ds := &out.Datasets[i]
		if len(ds.BackgroundColor) > 0 {
			continue
		}
		ds.BackgroundColor = p.Fills(n)
		if len(ds.BorderColor) == 0 {
			ds.BorderColor = p.Borders(n)
		}
	}
	return out
}
