package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zoobzio/chartz"
)

// Engine names accepted in chart definitions.
const (
	EngineECharts = "echarts"
	EngineRaster  = "raster"
)

// Dashboard is the set of charts chartd serves.
type Dashboard struct {
	Theme  string  `yaml:"theme"`
	Charts []Chart `yaml:"charts"`
}

// Chart defines one chart. Exactly one of Endpoint and Data is expected;
// when both are set the static Data wins.
type Chart struct {
	Name     string `yaml:"name"`
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle"`
	Engine   string `yaml:"engine"`

	Endpoint string            `yaml:"endpoint"`
	Interval time.Duration     `yaml:"interval"`
	Data     *chartz.ChartData `yaml:"data"`
	Options  *chartz.Options   `yaml:"options"`

	StartAngle      float64 `yaml:"startAngle"`
	ShowPercentages *bool   `yaml:"showPercentages"`

	Retry   RetryPolicy   `yaml:"retry"`
	Breaker BreakerPolicy `yaml:"breaker"`
}

// RetryPolicy retries failed fetches. Attempts counts every try, so values
// below 2 disable retrying. A non-zero Backoff doubles the wait between tries.
type RetryPolicy struct {
	Attempts int           `yaml:"attempts"`
	Backoff  time.Duration `yaml:"backoff"`
}

// BreakerPolicy stops fetching from an endpoint after Threshold consecutive
// failures, trying again once Reset has elapsed. Zero Threshold disables it.
type BreakerPolicy struct {
	Threshold int           `yaml:"threshold"`
	Reset     time.Duration `yaml:"reset"`
}

// Percentages reports whether tooltips show percentages. Default: true.
func (c Chart) Percentages() bool {
	return c.ShowPercentages == nil || *c.ShowPercentages
}

// LoadDashboard reads and validates a dashboard file.
func LoadDashboard(path string) (*Dashboard, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dashboard %s: %w", path, err)
	}
	return ParseDashboard(raw)
}

// ParseDashboard decodes and validates a YAML dashboard.
func ParseDashboard(raw []byte) (*Dashboard, error) {
	var d Dashboard
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("failed to parse dashboard: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks names, engines and data sources.
func (d *Dashboard) Validate() error {
	if _, err := chartz.ParseTheme(d.Theme); err != nil {
		return err
	}
	seen := make(map[string]bool, len(d.Charts))
	var errs []error
	for i, c := range d.Charts {
		switch {
		case c.Name == "":
			errs = append(errs, fmt.Errorf("chart %d: name is required", i))
		case seen[c.Name]:
			errs = append(errs, fmt.Errorf("chart %q: duplicate name", c.Name))
		}
		seen[c.Name] = true

		switch c.Engine {
		case "", EngineECharts, EngineRaster:
		default:
			errs = append(errs, fmt.Errorf("chart %q: unknown engine %q", c.Name, c.Engine))
		}
		if c.Endpoint == "" && c.Data == nil {
			errs = append(errs, fmt.Errorf("chart %q: endpoint or data is required", c.Name))
		}
		if c.Interval < 0 {
			errs = append(errs, fmt.Errorf("chart %q: interval must be >= 0", c.Name))
		}
		if c.Retry.Attempts < 0 || c.Retry.Backoff < 0 {
			errs = append(errs, fmt.Errorf("chart %q: retry must be >= 0", c.Name))
		}
		if c.Breaker.Threshold < 0 || (c.Breaker.Threshold > 0 && c.Breaker.Reset <= 0) {
			errs = append(errs, fmt.Errorf("chart %q: breaker needs a positive reset", c.Name))
		}
	}
	return errors.Join(errs...)
}

// DefaultDashboard returns the built-in dashboard: a live view of the
// server's own memory statistics and a static category breakdown.
func DefaultDashboard() *Dashboard {
	return &Dashboard{
		Theme: "light",
		Charts: []Chart{
			{
				Name:     "memory",
				Title:    "Memory",
				Subtitle: "Refreshed every 10 seconds",
				Endpoint: "/api/system/info",
				Interval: 10 * time.Second,
			},
			{
				Name:  "categories",
				Title: "Category Distribution",
				Data: &chartz.ChartData{
					Labels: []string{"Web", "Database", "Cache", "Queue", "Storage"},
					Datasets: []chartz.Dataset{{
						Label: "Services",
						Data:  []float64{12, 7, 4, 3, 9},
					}},
				},
			},
		},
	}
}
