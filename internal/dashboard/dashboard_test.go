package dashboard

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoobzio/chartz"
	"github.com/zoobzio/chartz/internal/config"
	"github.com/zoobzio/chartz/pkg/file"
	chartzprom "github.com/zoobzio/chartz/pkg/prometheus"
	chartztesting "github.com/zoobzio/chartz/testing"
)

func sampleFetcher(t *testing.T, values ...float64) chartz.Fetcher {
	t.Helper()
	body, err := json.Marshal(chartztesting.SampleData(values...))
	require.NoError(t, err)
	return chartz.FetcherFunc(func(ctx context.Context, _ string) ([]byte, error) {
		return body, ctx.Err()
	})
}

func newDashboard(t *testing.T, def *config.Dashboard, opts Options) (*Dashboard, *chartztesting.RecordingEngine) {
	t.Helper()
	engine := chartztesting.NewRecordingEngine()
	if opts.Engines == nil {
		opts.Engines = map[string]chartz.Engine{config.EngineECharts: engine}
		opts.DefaultEngine = config.EngineECharts
	}
	d, err := New(def, opts)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d, engine
}

func TestDashboard_StaticAndRemote(t *testing.T) {
	d, engine := newDashboard(t, config.DefaultDashboard(), Options{
		Fetcher: sampleFetcher(t, 10, 20, 30),
		Metrics: chartzprom.New(prometheus.NewRegistry(), "chartz"),
	})
	require.NoError(t, d.Start(context.Background()))

	static, ok := d.Chart("categories")
	require.True(t, ok)
	st := static.Status()
	assert.True(t, st.Static)
	assert.True(t, st.Rendered)
	assert.Equal(t, "text/plain", st.ContentType)

	remote, ok := d.Chart("memory")
	require.True(t, ok)
	require.True(t, chartztesting.WaitFor(t, time.Second, func() bool {
		return remote.Status().Rendered
	}))
	st = remote.Status()
	assert.Equal(t, "healthy", st.State)
	assert.Equal(t, uint64(1), st.Version)
	assert.Equal(t, "10s", st.Interval)
	assert.Equal(t, 2, engine.Live())
}

func TestDashboard_ThemeRerendersEveryChart(t *testing.T) {
	d, engine := newDashboard(t, &config.Dashboard{
		Charts: []config.Chart{
			{Name: "a", Data: &chartz.ChartData{Labels: []string{"x"}, Datasets: []chartz.Dataset{{Data: []float64{1}}}}},
			{Name: "b", Data: &chartz.ChartData{Labels: []string{"y"}, Datasets: []chartz.Dataset{{Data: []float64{2}}}}},
		},
	}, Options{})
	require.NoError(t, d.Start(context.Background()))
	require.Equal(t, 2, engine.Creates())

	assert.Equal(t, chartz.ThemeDark, d.Themes().Toggle(context.Background()))

	assert.Equal(t, 4, engine.Creates())
	assert.Equal(t, 2, engine.Live())
	spec, _ := engine.LastSpec()
	assert.Equal(t, chartz.ThemeDark, spec.Theme)
}

func TestDashboard_FileEndpoint(t *testing.T) {
	dir := t.TempDir()
	body, err := json.Marshal(chartztesting.SampleData(1, 2))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stats.json"), body, 0o600))

	d, _ := newDashboard(t, &config.Dashboard{
		Charts: []config.Chart{{Name: "stats", Endpoint: "file://stats.json"}},
	}, Options{
		Backends: map[string]Backend{file.Scheme: file.New(dir)},
	})
	require.NoError(t, d.Start(context.Background()))

	c, _ := d.Chart("stats")
	require.True(t, chartztesting.WaitFor(t, time.Second, func() bool {
		return c.Status().Rendered
	}))
	v, ok := c.Source.Current()
	require.True(t, ok)
	assert.Equal(t, 3.0, v.Datasets[0].Total())
}

func TestDashboard_FetchFailureIsReported(t *testing.T) {
	failing := chartz.FetcherFunc(func(context.Context, string) ([]byte, error) {
		return nil, assert.AnError
	})
	d, _ := newDashboard(t, &config.Dashboard{
		Charts: []config.Chart{{Name: "broken", Endpoint: "/api/broken"}},
	}, Options{Fetcher: failing})
	require.NoError(t, d.Start(context.Background()))

	c, _ := d.Chart("broken")
	require.True(t, chartztesting.WaitFor(t, time.Second, func() bool {
		return c.Status().Error != ""
	}))
	st := c.Status()
	assert.Equal(t, "empty", st.State)
	assert.False(t, st.Rendered)
	assert.Contains(t, st.Error, "/api/broken")
}

func TestDashboard_RetryPolicy(t *testing.T) {
	body, err := json.Marshal(chartztesting.SampleData(4, 5))
	require.NoError(t, err)
	var calls atomic.Int32
	flaky := chartz.FetcherFunc(func(context.Context, string) ([]byte, error) {
		if calls.Add(1) < 3 {
			return nil, assert.AnError
		}
		return body, nil
	})

	d, _ := newDashboard(t, &config.Dashboard{
		Charts: []config.Chart{{
			Name:     "flaky",
			Endpoint: "/api/flaky",
			Retry:    config.RetryPolicy{Attempts: 3},
			Breaker:  config.BreakerPolicy{Threshold: 2, Reset: time.Minute},
		}},
	}, Options{Fetcher: flaky})
	require.NoError(t, d.Start(context.Background()))

	c, _ := d.Chart("flaky")
	require.True(t, chartztesting.WaitFor(t, time.Second, func() bool {
		return c.Status().Rendered
	}))
	assert.Equal(t, "healthy", c.Status().State)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDashboard_SetInterval(t *testing.T) {
	d, _ := newDashboard(t, &config.Dashboard{
		Charts: []config.Chart{{Name: "poll", Endpoint: "/api/x", Interval: time.Minute}},
	}, Options{Fetcher: sampleFetcher(t, 1)})
	require.NoError(t, d.Start(context.Background()))

	c, _ := d.Chart("poll")
	assert.True(t, c.Source.Polling())

	c.SetInterval(0)
	assert.Equal(t, time.Duration(0), c.Interval())
	assert.False(t, c.Source.Polling())
	assert.Equal(t, "0s", c.Status().Interval)
}

func TestDashboard_Close(t *testing.T) {
	d, engine := newDashboard(t, config.DefaultDashboard(), Options{Fetcher: sampleFetcher(t, 1)})
	require.NoError(t, d.Start(context.Background()))

	d.Close()
	d.Close()

	assert.Equal(t, 0, engine.Live())
	for _, c := range d.Charts() {
		assert.ErrorIs(t, c.Pipeline.Sync(context.Background()), chartz.ErrDisposed)
	}
}

func TestDashboard_WatchedBackend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stats.json")
	write := func(values ...float64) {
		body, err := json.Marshal(chartztesting.SampleData(values...))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, body, 0o600))
	}
	write(1, 2)

	d, engine := newDashboard(t, &config.Dashboard{
		Charts: []config.Chart{{Name: "stats", Endpoint: "file://stats.json"}},
	}, Options{
		Backends: map[string]Backend{file.Scheme: file.New(dir)},
		Watch:    true,
	})
	require.NoError(t, d.Start(context.Background()))

	c, _ := d.Chart("stats")
	require.True(t, chartztesting.WaitFor(t, time.Second, func() bool {
		return c.Status().Rendered
	}))

	write(5, 5)
	require.True(t, chartztesting.WaitFor(t, 2*time.Second, func() bool {
		v, ok := c.Source.Current()
		return ok && v.Datasets[0].Total() == 10
	}))
	assert.Equal(t, 1, engine.Live())
	assert.GreaterOrEqual(t, engine.Creates(), 2)
}

func TestRoute(t *testing.T) {
	files := file.New("")
	backends := map[string]Backend{file.Scheme: files}

	tests := []struct {
		endpoint string
		want     Backend
		wantErr  bool
	}{
		{endpoint: "", want: nil},
		{endpoint: "/api/system/info", want: nil},
		{endpoint: "https://example.com/stats", want: nil},
		{endpoint: "file://stats.json", want: files},
		{endpoint: "redis://charts:cpu", wantErr: true},
	}
	for _, tt := range tests {
		got, err := route(tt.endpoint, backends)
		if tt.wantErr {
			assert.Error(t, err, tt.endpoint)
			continue
		}
		require.NoError(t, err, tt.endpoint)
		assert.Equal(t, tt.want, got, tt.endpoint)
	}
}

func TestNew_Errors(t *testing.T) {
	engines := map[string]chartz.Engine{config.EngineECharts: chartztesting.NewRecordingEngine()}

	tests := []struct {
		name  string
		chart config.Chart
		opts  Options
	}{
		{
			name:  "unconfigured engine",
			chart: config.Chart{Name: "a", Endpoint: "/x", Engine: config.EngineRaster},
			opts:  Options{Engines: engines, Fetcher: sampleFetcher(t, 1)},
		},
		{
			name:  "unregistered scheme",
			chart: config.Chart{Name: "a", Endpoint: "file://x.json"},
			opts:  Options{Engines: engines, DefaultEngine: config.EngineECharts},
		},
		{
			name:  "remote endpoints disabled",
			chart: config.Chart{Name: "a", Endpoint: "/x"},
			opts:  Options{Engines: engines, DefaultEngine: config.EngineECharts},
		},
		{
			name:  "invalid definition",
			chart: config.Chart{Name: "a"},
			opts:  Options{Engines: engines, DefaultEngine: config.EngineECharts},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&config.Dashboard{Charts: []config.Chart{tt.chart}}, tt.opts)
			assert.Error(t, err)
		})
	}
}
