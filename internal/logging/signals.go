package logging

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zoobzio/chartz"
)

type route struct {
	signal  capitan.Signal
	level   zapcore.Level
	message string
}

var routes = []route{
	{chartz.SourceStarted, zapcore.InfoLevel, "source started"},
	{chartz.SourceStopped, zapcore.InfoLevel, "source stopped"},
	{chartz.SourceStateChanged, zapcore.InfoLevel, "source state changed"},
	{chartz.SourceIntervalChanged, zapcore.InfoLevel, "poll interval changed"},
	{chartz.FetchStarted, zapcore.DebugLevel, "fetch started"},
	{chartz.FetchSucceeded, zapcore.DebugLevel, "fetch succeeded"},
	{chartz.FetchFailed, zapcore.WarnLevel, "fetch failed"},
	{chartz.FetchDiscarded, zapcore.DebugLevel, "fetch discarded"},
	{chartz.ChartRendered, zapcore.DebugLevel, "chart rendered"},
	{chartz.ChartDestroyed, zapcore.DebugLevel, "chart destroyed"},
	{chartz.ChartRenderSkipped, zapcore.DebugLevel, "chart render skipped"},
	{chartz.ChartRenderFailed, zapcore.ErrorLevel, "chart render failed"},
	{chartz.PipelineDisposed, zapcore.InfoLevel, "pipeline disposed"},
	{chartz.ThemeChanged, zapcore.InfoLevel, "theme changed"},
}

// Observe logs every chartz signal through l until the returned stop
// function is called.
func Observe(l *Logger) (stop func()) {
	closers := make([]func(), 0, len(routes))
	for _, r := range routes {
		r := r
		listener := capitan.Hook(r.signal, func(_ context.Context, e *capitan.Event) {
			if ce := l.Check(r.level, r.message); ce != nil {
				ce.Write(eventFields(e)...)
			}
		})
		closers = append(closers, listener.Close)
	}
	return func() {
		for _, c := range closers {
			c()
		}
	}
}

// eventFields converts the chartz fields present on e to zap fields.
func eventFields(e *capitan.Event) []zap.Field {
	var fields []zap.Field
	str := func(name string, v string, ok bool) {
		if ok {
			fields = append(fields, zap.String(name, v))
		}
	}
	dur := func(name string, v time.Duration, ok bool) {
		if ok {
			fields = append(fields, zap.Duration(name, v))
		}
	}

	endpoint, ok := chartz.KeyEndpoint.From(e)
	str("endpoint", endpoint, ok)
	oldState, ok := chartz.KeyOldState.From(e)
	str("old_state", oldState, ok)
	newState, ok := chartz.KeyNewState.From(e)
	str("new_state", newState, ok)
	stage, ok := chartz.KeyStage.From(e)
	str("stage", stage, ok)
	errMsg, ok := chartz.KeyError.From(e)
	str("error", errMsg, ok)
	instance, ok := chartz.KeyInstance.From(e)
	str("instance", instance, ok)
	theme, ok := chartz.KeyTheme.From(e)
	str("theme", theme, ok)

	interval, ok := chartz.KeyInterval.From(e)
	dur("interval", interval, ok)
	elapsed, ok := chartz.KeyDuration.From(e)
	dur("duration", elapsed, ok)

	if v, ok := chartz.KeyVersion.From(e); ok {
		fields = append(fields, zap.Int("version", v))
	}
	return fields
}
