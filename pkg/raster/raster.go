// Package raster renders chartz specs as PNG images with the drawing
// primitives of github.com/wcharczuk/go-chart/v2.
package raster

import (
	"bytes"
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/zoobzio/chartz"
)

// ContentType is the MIME type of rendered frames.
const ContentType = "image/png"

const (
	gridRings      = 4
	legendSwatch   = 10
	legendRowSpace = 18
	padding        = 20
)

// Engine is a chartz.Engine drawing polar-area charts into PNG images.
type Engine struct {
	width  int
	height int
}

// New creates an Engine producing 600x400 images.
func New() *Engine {
	return &Engine{width: 600, height: 400}
}

// Size sets the image dimensions in pixels.
func (e *Engine) Size(width, height int) *Engine {
	e.width, e.height = width, height
	return e
}

// Create draws spec onto surface and returns the live instance.
func (e *Engine) Create(ctx context.Context, surface chartz.Surface, spec chartz.Spec) (chartz.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := chart.PNG(e.width, e.height)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	r.SetFont(font)

	e.drawBackground(r, spec.Theme)
	top := padding
	if t := spec.Options.Plugins.Title; t != nil && t.Text != "" {
		r.SetFontColor(parseColor(firstNonEmpty(t.Color, spec.Palette.Text)))
		r.SetFontSize(14)
		r.Text(t.Text, padding, top+10)
		top += 24
	}
	legendTop := top
	if l := spec.Options.Plugins.Legend; l == nil || !l.Hidden {
		top += e.drawLegend(r, spec, legendTop)
	}
	e.drawArea(r, spec, top)

	var buf bytes.Buffer
	if err := r.Save(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	surface.Draw(ContentType, buf.Bytes())

	return &instance{id: "raster-" + uuid.NewString(), surface: surface}, nil
}

func (e *Engine) drawBackground(r chart.Renderer, theme chartz.Theme) {
	bg := drawing.ColorWhite
	if theme.Dark() {
		bg = parseColor("#111827")
	}
	r.SetFillColor(bg)
	r.MoveTo(0, 0)
	r.LineTo(e.width, 0)
	r.LineTo(e.width, e.height)
	r.LineTo(0, e.height)
	r.Close()
	r.Fill()
}

// drawLegend draws one swatch per category and returns the height used.
func (e *Engine) drawLegend(r chart.Renderer, spec chartz.Spec, top int) int {
	if len(spec.Data.Datasets) == 0 {
		return 0
	}
	ds := spec.Data.Datasets[0]
	textColor := spec.Palette.Text
	if l := spec.Options.Plugins.Legend; l != nil && l.Color != "" {
		textColor = l.Color
	}
	r.SetFontSize(10)
	r.SetFontColor(parseColor(textColor))

	x, y := padding, top
	for i := range spec.Data.Categories() {
		label := spec.Data.Label(i)
		width := legendSwatch + 6 + r.MeasureText(label).Width() + 12
		if x+width > e.width-padding && x > padding {
			x = padding
			y += legendRowSpace
		}
		r.SetFillColor(parseColor(colorAt(ds.BackgroundColor, i)))
		r.SetStrokeColor(parseColor(colorAt(ds.BorderColor, i)))
		r.SetStrokeWidth(1)
		r.MoveTo(x, y)
		r.LineTo(x+legendSwatch, y)
		r.LineTo(x+legendSwatch, y+legendSwatch)
		r.LineTo(x, y+legendSwatch)
		r.Close()
		r.FillStroke()
		r.Text(label, x+legendSwatch+6, y+legendSwatch)
		x += width
	}
	return y - top + legendRowSpace + 6
}

// drawArea draws the radial grid and one equal-angle wedge per category,
// with radius proportional to the value and the scale starting at zero.
func (e *Engine) drawArea(r chart.Renderer, spec chartz.Spec, top int) {
	size := min(e.width-2*padding, e.height-top-padding)
	if size <= 0 {
		return
	}
	radius := float64(size) / 2
	cx := e.width / 2
	cy := top + size/2

	var startAngle float64
	grid := spec.Palette.Grid
	if s := spec.Options.Scale; s != nil {
		startAngle = s.StartAngle
		grid = firstNonEmpty(s.GridColor, grid)
	}

	r.SetStrokeColor(parseColor(grid))
	r.SetStrokeWidth(1)
	for ring := 1; ring <= gridRings; ring++ {
		r.Circle(radius*float64(ring)/gridRings, cx, cy)
		r.Stroke()
	}

	maxValue := 0.0
	for _, ds := range spec.Data.Datasets {
		for _, v := range ds.Data {
			maxValue = math.Max(maxValue, v)
		}
	}
	if maxValue == 0 {
		return
	}

	// Angles follow screen coordinates: zero points right, positive turns
	// clockwise. The first wedge starts at twelve o'clock.
	for _, ds := range spec.Data.Datasets {
		n := len(ds.Data)
		if n == 0 {
			continue
		}
		step := 2 * math.Pi / float64(n)
		for i, v := range ds.Data {
			if v <= 0 {
				continue
			}
			wedge := radius * v / maxValue
			start := -math.Pi/2 + startAngle + float64(i)*step

			r.SetFillColor(parseColor(colorAt(ds.BackgroundColor, i)))
			r.SetStrokeColor(parseColor(colorAt(ds.BorderColor, i)))
			r.SetStrokeWidth(float64(max(1, ds.BorderWidth)))
			r.MoveTo(cx, cy)
			r.ArcTo(cx, cy, wedge, wedge, start, step)
			r.LineTo(cx, cy)
			r.Close()
			r.FillStroke()
		}
	}
}

func colorAt(colors []string, i int) string {
	if len(colors) == 0 {
		return ""
	}
	return colors[i%len(colors)]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type instance struct {
	id      string
	surface chartz.Surface
}

func (i *instance) ID() string {
	return i.id
}

func (i *instance) Destroy() {
	i.surface.Clear()
}

var _ chartz.Engine = (*Engine)(nil)
