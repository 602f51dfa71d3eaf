package chartz

import "slices"

// ChartData is the structured payload a chart renders: category labels and
// one or more series of values over them.
type ChartData struct {
	Labels   []string  `json:"labels" yaml:"labels"`
	Datasets []Dataset `json:"datasets" yaml:"datasets"`
}

// Dataset is a single series. Empty color slices mean "not specified" and
// are filled from the active palette at render time.
type Dataset struct {
	Label           string    `json:"label,omitempty" yaml:"label,omitempty"`
	Data            []float64 `json:"data" yaml:"data"`
	BackgroundColor []string  `json:"backgroundColor,omitempty" yaml:"backgroundColor,omitempty"`
	BorderColor     []string  `json:"borderColor,omitempty" yaml:"borderColor,omitempty"`
	BorderWidth     int       `json:"borderWidth,omitempty" yaml:"borderWidth,omitempty"`
}

// Clone returns a deep copy of d.
func (d ChartData) Clone() ChartData {
	out := ChartData{Labels: slices.Clone(d.Labels)}
	if d.Datasets != nil {
		out.Datasets = make([]Dataset, len(d.Datasets))
		for i, ds := range d.Datasets {
			out.Datasets[i] = ds.Clone()
		}
	}
	return out
}

// Equal reports whether d and other hold the same labels, values and colors.
func (d ChartData) Equal(other ChartData) bool {
	return slices.Equal(d.Labels, other.Labels) &&
		slices.EqualFunc(d.Datasets, other.Datasets, Dataset.Equal)
}

// Clone returns a deep copy of ds.
func (ds Dataset) Clone() Dataset {
	ds.Data = slices.Clone(ds.Data)
	ds.BackgroundColor = slices.Clone(ds.BackgroundColor)
	ds.BorderColor = slices.Clone(ds.BorderColor)
	return ds
}

// Equal reports whether ds and other are identical series.
func (ds Dataset) Equal(other Dataset) bool {
	return ds.Label == other.Label &&
		ds.BorderWidth == other.BorderWidth &&
		slices.Equal(ds.Data, other.Data) &&
		slices.Equal(ds.BackgroundColor, other.BackgroundColor) &&
		slices.Equal(ds.BorderColor, other.BorderColor)
}

// Total returns the sum of the series values.
func (ds Dataset) Total() float64 {
	var sum float64
	for _, v := range ds.Data {
		sum += v
	}
	return sum
}

// Label returns the category label at index i, or "" when out of range.
func (d ChartData) Label(i int) string {
	if i < 0 || i >= len(d.Labels) {
		return ""
	}
	return d.Labels[i]
}

// Categories returns the number of categories, the longest of the label
// list and every series.
func (d ChartData) Categories() int {
	n := len(d.Labels)
	for _, ds := range d.Datasets {
		n = max(n, len(ds.Data))
	}
	return n
}
