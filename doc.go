/*
Package chartz provides data-driven polar-area charts: a polled data source
and a render pipeline that keeps exactly one live chart instance in step
with the data, the active theme and the caller's options.

chartz is designed to be embedded in services that render dashboards. It
follows a builder pattern: configure a Source or Pipeline with chainable
methods, then start it.

# Data Sources

A Source fetches an endpoint immediately and then on a fixed interval:

	src := chartz.NewSource[chartz.ChartData]("/api/stats/categories", http.New()).
	    Interval(time.Minute)

	if err := src.Start(ctx); err != nil {
	    return err
	}
	defer src.Close()

An empty endpoint yields a disabled source that never fetches. A zero
interval disables polling while Refresh keeps working. Fetch results are
applied in completion order, so the last fetch to finish wins. A failed fetch
keeps the previous value and surfaces the error on the snapshot:

	snap := src.Snapshot()
	snap.Value   // latest data, or nil
	snap.Loading // a fetch is outstanding
	snap.Err     // last completed fetch failed

Payloads are JSON by default. Use Codec for YAML or Decoder to reshape a
payload into chart data:

	src.Decoder(chartz.Transform(chartz.JSONCodec{}, func(r apiResponse) (chartz.ChartData, error) {
	    return r.Chart, nil
	}))

# Render Pipeline

A Pipeline resolves data as static data if given, else the source value. It
merges a theme-aware baseline with the caller's options, assigns palette
colors where the caller gave none, and asks an Engine to draw:

	p := chartz.NewPipeline(echarts.New(), chartz.NewCanvas(), themes)
	defer p.Dispose()

	err := p.Replace(ctx, chartz.Config{
	    Source:          src,
	    StartAngle:      90,
	    ShowPercentages: true,
	})

The pipeline re-renders only when the data, theme, start angle, percentage
flag or options pointer changes. The previous instance is always destroyed
before the next is created.

# Observability

Lifecycle events are emitted as capitan signals (SourceStateChanged,
FetchFailed, ChartRendered, ...). Metrics go through MetricsProvider; see
pkg/prometheus.

# Engines and Fetchers

  - pkg/echarts: interactive HTML via go-echarts
  - pkg/raster: PNG via go-chart
  - pkg/http: HTTP fetcher with retries and rate limiting via resty
  - pkg/file: local files with fsnotify change triggers

Key-value stores serve endpoints of their own scheme and provide a Trigger
that refreshes a Source when the key changes:

  - pkg/redis (redis://), pkg/postgres (postgres://), pkg/etcd (etcd://)
  - pkg/consul (consul://), pkg/nats (nats://), pkg/zookeeper (zk://)
  - pkg/firestore (firestore://), pkg/kubernetes (k8s://)
*/
package chartz
