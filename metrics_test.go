package chartz

import (
	"testing"
	"time"
)

func TestNoOpMetricsProvider_DoesNotPanic(_ *testing.T) {
	var m NoOpMetricsProvider

	m.OnStateChange(StateIdle, StateLoading)
	m.OnFetchSuccess(100 * time.Millisecond)
	m.OnFetchFailure("decode", 50*time.Millisecond)
	m.OnFetchDiscarded()
	m.OnRender(time.Millisecond)
	m.OnRenderSkipped()
}
