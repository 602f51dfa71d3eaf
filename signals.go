package chartz

import "github.com/zoobzio/capitan"

// Source lifecycle signals.
var (
	// SourceStarted is emitted when a Source begins polling.
	SourceStarted = capitan.NewSignal(
		"chartz.source.started",
		"Source polling started",
	)

	// SourceStopped is emitted when a Source is closed.
	SourceStopped = capitan.NewSignal(
		"chartz.source.stopped",
		"Source closed",
	)

	// SourceStateChanged is emitted when a Source transitions between states.
	SourceStateChanged = capitan.NewSignal(
		"chartz.source.state.changed",
		"Source state transition",
	)

	// SourceIntervalChanged is emitted when the poll interval is reconfigured.
	SourceIntervalChanged = capitan.NewSignal(
		"chartz.source.interval.changed",
		"Poll interval changed",
	)
)

// Fetch signals.
var (
	// FetchStarted is emitted when a fetch is issued.
	FetchStarted = capitan.NewSignal(
		"chartz.source.fetch.started",
		"Fetch issued",
	)

	// FetchSucceeded is emitted when a fetch result is applied.
	FetchSucceeded = capitan.NewSignal(
		"chartz.source.fetch.succeeded",
		"Fetch applied",
	)

	// FetchFailed is emitted when a fetch or decode fails.
	FetchFailed = capitan.NewSignal(
		"chartz.source.fetch.failed",
		"Fetch failed",
	)

	// FetchDiscarded is emitted when a fetch completes after its Source was closed.
	FetchDiscarded = capitan.NewSignal(
		"chartz.source.fetch.discarded",
		"Fetch result discarded after close",
	)
)

// Pipeline signals.
var (
	// ChartRendered is emitted when a pipeline creates a new chart instance.
	ChartRendered = capitan.NewSignal(
		"chartz.pipeline.rendered",
		"Chart instance created",
	)

	// ChartDestroyed is emitted when a pipeline destroys a chart instance.
	ChartDestroyed = capitan.NewSignal(
		"chartz.pipeline.destroyed",
		"Chart instance destroyed",
	)

	// ChartRenderSkipped is emitted when a sync finds no render input changed.
	ChartRenderSkipped = capitan.NewSignal(
		"chartz.pipeline.skipped",
		"Chart render skipped, inputs unchanged",
	)

	// ChartRenderFailed is emitted when the engine fails to create an instance.
	ChartRenderFailed = capitan.NewSignal(
		"chartz.pipeline.failed",
		"Chart engine failed to create instance",
	)

	// PipelineDisposed is emitted when a pipeline is disposed.
	PipelineDisposed = capitan.NewSignal(
		"chartz.pipeline.disposed",
		"Pipeline disposed",
	)

	// ThemeChanged is emitted when a ThemeProvider switches theme.
	ThemeChanged = capitan.NewSignal(
		"chartz.theme.changed",
		"Theme changed",
	)
)
