// Package echarts renders chartz specs as interactive HTML documents with
// github.com/go-echarts/go-echarts/v2.
//
// A polar-area chart maps to an ECharts pie series with rose type "area":
// every category gets an equal angle and a radius proportional to its value.
//
// Options go-echarts has no typed field for (tooltip colors, border and
// padding, the legend point style and the scale start angle) are applied
// with a setOption call placed after the chart is initialized. Some options
// have no ECharts counterpart on a pie series and are not rendered: the
// scale grid, angle line and tick colors, the tooltip title color and box
// padding, and Responsive and MaintainAspectRatio, which the container size
// set with Size replaces.
package echarts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/google/uuid"

	"github.com/zoobzio/chartz"
)

// ContentType is the MIME type of rendered frames.
const ContentType = "text/html; charset=utf-8"

// Engine is a chartz.Engine producing ECharts HTML.
type Engine struct {
	width     string
	height    string
	pageTitle string
	assets    string
}

// New creates an Engine with a responsive width and a 300px height.
func New() *Engine {
	return &Engine{width: "100%", height: "300px", pageTitle: "chartz"}
}

// Size sets the chart container dimensions as CSS lengths.
func (e *Engine) Size(width, height string) *Engine {
	e.width, e.height = width, height
	return e
}

// PageTitle sets the HTML document title.
func (e *Engine) PageTitle(title string) *Engine {
	e.pageTitle = title
	return e
}

// AssetsHost serves the ECharts scripts from host instead of the default CDN.
func (e *Engine) AssetsHost(host string) *Engine {
	e.assets = host
	return e
}

// Create renders spec onto surface and returns the live instance.
func (e *Engine) Create(ctx context.Context, surface chartz.Surface, spec chartz.Spec) (chartz.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The id names a JavaScript variable in the document.
	id := "chartz_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	pie, err := e.build(id, spec)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pie.Render(&buf); err != nil {
		return nil, fmt.Errorf("failed to render echarts document: %w", err)
	}
	surface.Draw(ContentType, buf.Bytes())

	return &instance{id: id, surface: surface}, nil
}

func (e *Engine) build(id string, spec chartz.Spec) (*charts.Pie, error) {
	pie := charts.NewPie()

	init := opts.Initialization{
		PageTitle:  e.pageTitle,
		ChartID:    id,
		Width:      e.width,
		Height:     e.height,
		AssetsHost: e.assets,
	}
	if spec.Theme.Dark() {
		init.Theme = "dark"
	}

	global := []charts.GlobalOpts{
		charts.WithInitializationOpts(init),
		charts.WithLegendOpts(legendOpts(spec)),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "item"}),
	}
	if t := spec.Options.Plugins.Title; t != nil {
		global = append(global, charts.WithTitleOpts(opts.Title{
			Title:    t.Text,
			Subtitle: t.Subtext,
			Left:     "center",
			TitleStyle: &opts.TextStyle{
				Color: t.Color,
			},
		}))
	}

	if tt := spec.Options.Plugins.Tooltip; tt != nil && tt.Label != nil {
		formatter, err := labelFormatter(spec.Data, tt.Label)
		if err != nil {
			return nil, err
		}
		global = append(global, charts.WithTooltipOpts(opts.Tooltip{
			Show:      true,
			Trigger:   "item",
			Formatter: formatter,
		}))
	}
	pie.SetGlobalOptions(global...)

	for _, ds := range spec.Data.Datasets {
		pie.AddSeries(ds.Label, pieItems(spec.Data, ds),
			charts.WithPieChartOpts(opts.PieChart{
				RoseType: "area",
				Radius:   []string{"10%", "70%"},
			}),
		)
	}

	if patch := optionPatch(spec); len(patch) > 0 {
		encoded, err := json.Marshal(patch)
		if err != nil {
			return nil, fmt.Errorf("failed to encode chart options: %w", err)
		}
		pie.AddJSFuncs(fmt.Sprintf("goecharts_%s.setOption(%s);", id, encoded))
	}
	return pie, nil
}

func legendOpts(spec chartz.Spec) opts.Legend {
	l := spec.Options.Plugins.Legend
	if l == nil {
		return opts.Legend{Show: true}
	}
	legend := opts.Legend{
		Show:      !l.Hidden,
		TextStyle: &opts.TextStyle{Color: l.Color},
	}
	if l.Padding > 0 {
		legend.Padding = l.Padding
	}
	switch l.Position {
	case "bottom":
		legend.Bottom = "0"
	case "left":
		legend.Left = "0"
		legend.Orient = "vertical"
	case "right":
		legend.Right = "0"
		legend.Orient = "vertical"
	default:
		legend.Top = "0"
	}
	return legend
}

// optionPatch collects the ECharts options that have no typed go-echarts
// field. The result is merged into the chart with setOption.
func optionPatch(spec chartz.Spec) map[string]any {
	patch := map[string]any{}

	if tt := spec.Options.Plugins.Tooltip; tt != nil {
		tooltip := map[string]any{}
		if tt.BackgroundColor != "" {
			tooltip["backgroundColor"] = tt.BackgroundColor
		}
		if tt.BorderColor != "" {
			tooltip["borderColor"] = tt.BorderColor
		}
		if tt.BorderWidth > 0 {
			tooltip["borderWidth"] = tt.BorderWidth
		}
		if tt.Padding > 0 {
			tooltip["padding"] = tt.Padding
		}
		if tt.BodyColor != "" {
			tooltip["textStyle"] = map[string]any{"color": tt.BodyColor}
		}
		if len(tooltip) > 0 {
			patch["tooltip"] = tooltip
		}
	}

	if l := spec.Options.Plugins.Legend; l != nil && l.UsePointStyle {
		patch["legend"] = map[string]any{"icon": "circle"}
	}

	if sc := spec.Options.Scale; sc != nil && len(spec.Data.Datasets) > 0 {
		series := make([]map[string]any, len(spec.Data.Datasets))
		for i := range series {
			series[i] = map[string]any{"startAngle": startAngle(sc.StartAngle)}
		}
		patch["series"] = series
	}
	return patch
}

// startAngle converts a clockwise offset from twelve o'clock in radians to
// the ECharts pie start angle: counterclockwise degrees from three o'clock.
func startAngle(radians float64) float64 {
	deg := math.Mod(90-radians*180/math.Pi, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

func pieItems(data chartz.ChartData, ds chartz.Dataset) []opts.PieData {
	items := make([]opts.PieData, len(ds.Data))
	for i, v := range ds.Data {
		items[i] = opts.PieData{
			Name:  data.Label(i),
			Value: v,
			ItemStyle: &opts.ItemStyle{
				Color:       colorAt(ds.BackgroundColor, i),
				BorderColor: colorAt(ds.BorderColor, i),
			},
		}
	}
	return items
}

// colorAt returns the i-th color, cycling over the available ones.
func colorAt(colors []string, i int) string {
	if len(colors) == 0 {
		return ""
	}
	return colors[i%len(colors)]
}

// labelFormatter evaluates label for every segment in Go and embeds the
// results in a JavaScript tooltip formatter keyed by series and data index.
func labelFormatter(data chartz.ChartData, label chartz.LabelFunc) (string, error) {
	table := make([][]string, len(data.Datasets))
	for s, ds := range data.Datasets {
		table[s] = make([]string, len(ds.Data))
		for i := range ds.Data {
			table[s][i] = label(chartz.TooltipItem{
				Label:     data.Label(i),
				Dataset:   ds,
				DataIndex: i,
			})
		}
	}
	encoded, err := json.Marshal(table)
	if err != nil {
		return "", fmt.Errorf("failed to encode tooltip labels: %w", err)
	}
	return opts.FuncOpts(fmt.Sprintf(
		"function (p) { var t = %s; return (t[p.seriesIndex] || [])[p.dataIndex] || p.name; }",
		encoded,
	)), nil
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
