package logging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/capitan"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zoobzio/chartz"
)

func TestNew(t *testing.T) {
	l, err := New(Config{Level: "debug", Development: true})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = New(DefaultConfig())
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestChart(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := (&Logger{Logger: zap.New(core)}).Chart("memory")

	l.Info("hello")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "memory", logs.All()[0].ContextMap()["chart"])
}

func TestObserve(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	stop := Observe(&Logger{Logger: zap.New(core)})
	defer stop()

	capitan.Emit(context.Background(), chartz.FetchFailed,
		chartz.KeyEndpoint.Field("/api/observe-test"),
		chartz.KeyStage.Field("decode"),
		chartz.KeyError.Field("bad json"),
		chartz.KeyDuration.Field(5*time.Millisecond),
	)

	var found *observer.LoggedEntry
	deadline := time.Now().Add(2 * time.Second)
	for found == nil && time.Now().Before(deadline) {
		for _, e := range logs.FilterMessage("fetch failed").All() {
			if e.ContextMap()["endpoint"] == "/api/observe-test" {
				e := e
				found = &e
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NotNil(t, found, "expected fetch failure to be logged")

	assert.Equal(t, zapcore.WarnLevel, found.Level)
	fields := found.ContextMap()
	assert.Equal(t, "decode", fields["stage"])
	assert.Equal(t, "bad json", fields["error"])
	assert.Equal(t, 5*time.Millisecond, fields["duration"])
}
