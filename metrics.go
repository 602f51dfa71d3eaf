package chartz

import "time"

// MetricsProvider allows integration with metrics systems like Prometheus, StatsD, etc.
// Implement this interface to receive callbacks on key source and pipeline events.
type MetricsProvider interface {
	// OnStateChange is called when a source transitions between states.
	OnStateChange(from, to State)

	// OnFetchSuccess is called when a fetch and decode complete successfully.
	OnFetchSuccess(duration time.Duration)

	// OnFetchFailure is called when a fetch fails.
	// Stage is "fetch" or "decode".
	OnFetchFailure(stage string, duration time.Duration)

	// OnFetchDiscarded is called when a fetch completes after its source was closed.
	OnFetchDiscarded()

	// OnRender is called when a pipeline replaces its chart instance.
	OnRender(duration time.Duration)

	// OnRenderSkipped is called when a pipeline sync finds nothing to re-render.
	OnRenderSkipped()
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnStateChange(_, _ State)                 {}
func (NoOpMetricsProvider) OnFetchSuccess(_ time.Duration)           {}
func (NoOpMetricsProvider) OnFetchFailure(_ string, _ time.Duration) {}
func (NoOpMetricsProvider) OnFetchDiscarded()                        {}
func (NoOpMetricsProvider) OnRender(_ time.Duration)                 {}
func (NoOpMetricsProvider) OnRenderSkipped()                         {}

var _ MetricsProvider = NoOpMetricsProvider{}
