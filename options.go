package chartz

import (
	"fmt"
	"math"
	"strconv"
)

// Options are partial chart options. Nil pointers and nil plugins mean
// "not specified"; the pipeline fills them from a theme-derived baseline.
//
// Caller options are applied over the baseline with a shallow merge at the
// top level and a per-plugin merge under Plugins: setting Plugins.Legend
// replaces the baseline legend but keeps the baseline tooltip.
type Options struct {
	Responsive          *bool        `json:"responsive,omitempty" yaml:"responsive,omitempty"`
	MaintainAspectRatio *bool        `json:"maintainAspectRatio,omitempty" yaml:"maintainAspectRatio,omitempty"`
	Scale               *RadialScale `json:"scale,omitempty" yaml:"scale,omitempty"`
	Plugins             Plugins      `json:"plugins" yaml:"plugins,omitempty"`
}

// Plugins groups the per-plugin option blocks.
type Plugins struct {
	Legend  *Legend  `json:"legend,omitempty" yaml:"legend,omitempty"`
	Tooltip *Tooltip `json:"tooltip,omitempty" yaml:"tooltip,omitempty"`
	Title   *Title   `json:"title,omitempty" yaml:"title,omitempty"`
}

// RadialScale configures the radial axis of a polar-area chart.
type RadialScale struct {
	BeginAtZero       bool   `json:"beginAtZero" yaml:"beginAtZero"`
	GridColor         string `json:"gridColor,omitempty" yaml:"gridColor,omitempty"`
	AngleLineColor    string `json:"angleLineColor,omitempty" yaml:"angleLineColor,omitempty"`
	TickColor         string `json:"tickColor,omitempty" yaml:"tickColor,omitempty"`
	TickBackdropColor string `json:"tickBackdropColor,omitempty" yaml:"tickBackdropColor,omitempty"`
	PointLabelColor   string `json:"pointLabelColor,omitempty" yaml:"pointLabelColor,omitempty"`

	// StartAngle is the angular offset of the first segment, in radians.
	StartAngle float64 `json:"startAngle" yaml:"startAngle"`
}

// Legend configures the legend plugin.
type Legend struct {
	Hidden        bool   `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Position      string `json:"position,omitempty" yaml:"position,omitempty"`
	Color         string `json:"color,omitempty" yaml:"color,omitempty"`
	Padding       int    `json:"padding,omitempty" yaml:"padding,omitempty"`
	UsePointStyle bool   `json:"usePointStyle,omitempty" yaml:"usePointStyle,omitempty"`
}

// Tooltip configures the tooltip plugin.
type Tooltip struct {
	BackgroundColor string `json:"backgroundColor,omitempty" yaml:"backgroundColor,omitempty"`
	TitleColor      string `json:"titleColor,omitempty" yaml:"titleColor,omitempty"`
	BodyColor       string `json:"bodyColor,omitempty" yaml:"bodyColor,omitempty"`
	BorderColor     string `json:"borderColor,omitempty" yaml:"borderColor,omitempty"`
	BorderWidth     int    `json:"borderWidth,omitempty" yaml:"borderWidth,omitempty"`
	Padding         int    `json:"padding,omitempty" yaml:"padding,omitempty"`
	BoxPadding      int    `json:"boxPadding,omitempty" yaml:"boxPadding,omitempty"`

	// Label formats the tooltip line for one segment. Nil leaves the
	// engine's default label in place.
	Label LabelFunc `json:"-" yaml:"-"`
}

// Title configures the chart title plugin.
type Title struct {
	Text     string `json:"text,omitempty" yaml:"text,omitempty"`
	Subtext  string `json:"subtext,omitempty" yaml:"subtext,omitempty"`
	Color    string `json:"color,omitempty" yaml:"color,omitempty"`
	Position string `json:"position,omitempty" yaml:"position,omitempty"`
}

// TooltipItem identifies the segment a tooltip label is produced for.
type TooltipItem struct {
	Label     string
	Dataset   Dataset
	DataIndex int
}

// Value returns the segment's value, or 0 when the index is out of range.
func (it TooltipItem) Value() float64 {
	if it.DataIndex < 0 || it.DataIndex >= len(it.Dataset.Data) {
		return 0
	}
	return it.Dataset.Data[it.DataIndex]
}

// LabelFunc produces a tooltip label.
type LabelFunc func(item TooltipItem) string

// Bool returns a pointer to b, for populating Options.
func Bool(b bool) *bool {
	return &b
}

// Percentage returns round(100*value/total). A zero total yields 0.
func Percentage(value, total float64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * value / total))
}

// PercentageLabel reports a segment's share of its dataset total,
// e.g. "b: 20% (20)".
func PercentageLabel(item TooltipItem) string {
	v := item.Value()
	return fmt.Sprintf("%s: %d%% (%s)",
		item.Label,
		Percentage(v, item.Dataset.Total()),
		strconv.FormatFloat(v, 'f', -1, 64),
	)
}

// Baseline returns the built-in options for a palette. startAngle is in
// degrees. The tooltip label callback is set only when showPercentages is
// true.
func Baseline(p Palette, startAngle float64, showPercentages bool) Options {
	tooltip := &Tooltip{
		BackgroundColor: p.TooltipBackground,
		TitleColor:      p.TooltipTitle,
		BodyColor:       p.TooltipBody,
		BorderColor:     p.TooltipBorder,
		BorderWidth:     1,
		Padding:         10,
		BoxPadding:      5,
	}
	if showPercentages {
		tooltip.Label = PercentageLabel
	}

	return Options{
		Responsive:          Bool(true),
		MaintainAspectRatio: Bool(false),
		Scale: &RadialScale{
			BeginAtZero:       true,
			GridColor:         p.Grid,
			AngleLineColor:    p.Grid,
			TickColor:         p.Text,
			TickBackdropColor: "transparent",
			PointLabelColor:   p.Text,
			StartAngle:        startAngle * math.Pi / 180,
		},
		Plugins: Plugins{
			Legend: &Legend{
				Position:      "top",
				Color:         p.Text,
				Padding:       15,
				UsePointStyle: true,
			},
			Tooltip: tooltip,
		},
	}
}

// Merge applies caller over base. Top-level fields set by caller replace
// base wholesale; plugins are merged one plugin at a time. Neither argument
// is modified.
func Merge(base Options, caller *Options) Options {
	if caller == nil {
		return base
	}
	out := base
	if caller.Responsive != nil {
		out.Responsive = caller.Responsive
	}
	if caller.MaintainAspectRatio != nil {
		out.MaintainAspectRatio = caller.MaintainAspectRatio
	}
	if caller.Scale != nil {
		out.Scale = caller.Scale
	}
	if caller.Plugins.Legend != nil {
		out.Plugins.Legend = caller.Plugins.Legend
	}
	if caller.Plugins.Tooltip != nil {
		out.Plugins.Tooltip = caller.Plugins.Tooltip
	}
	if caller.Plugins.Title != nil {
		out.Plugins.Title = caller.Plugins.Title
	}
	return out
}
