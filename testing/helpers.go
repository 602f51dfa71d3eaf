// Package testing provides test utilities and helpers for chartz sources and pipelines.
package testing

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/chartz"
)

// SampleData returns a single-series chart of the given values, labeled
// "c0", "c1", ...
func SampleData(values ...float64) chartz.ChartData {
	labels := make([]string, len(values))
	for i := range labels {
		labels[i] = fmt.Sprintf("c%d", i)
	}
	return chartz.ChartData{
		Labels:   labels,
		Datasets: []chartz.Dataset{{Label: "series", Data: values}},
	}
}

// WaitFor polls a condition until it returns true or timeout is reached.
// Returns true if the condition was met, false if timeout occurred.
func WaitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// WaitForState waits until the source reaches the expected state or timeout occurs.
func WaitForState[T any](t *testing.T, s *chartz.Source[T], expected chartz.State, timeout time.Duration) bool {
	t.Helper()
	return WaitFor(t, timeout, func() bool {
		return s.State() == expected
	})
}

// RequireState fails the test immediately if the source is not in the expected state.
func RequireState[T any](t *testing.T, s *chartz.Source[T], expected chartz.State) {
	t.Helper()
	if got := s.State(); got != expected {
		t.Fatalf("expected state %s, got %s", expected, got)
	}
}

// RequireValue fails the test if Current() returns false or the value doesn't match.
func RequireValue[T any](t *testing.T, s *chartz.Source[T], check func(T) bool) {
	t.Helper()
	v, ok := s.Current()
	if !ok {
		t.Fatal("expected value to be present, got none")
	}
	if !check(v) {
		t.Fatalf("value check failed: %+v", v)
	}
}

// NewTestSource creates a chart data source served from a channel of canned
// responses. Returns the source and the channel for queueing responses.
func NewTestSource(t *testing.T) (*chartz.Source[chartz.ChartData], chan<- chartz.Response) {
	t.Helper()
	ch := make(chan chartz.Response, 10)
	s := chartz.NewSource[chartz.ChartData]("test://chart", chartz.NewChannelFetcher(ch)).
		AutoStart(false)
	t.Cleanup(s.Close)
	return s, ch
}

// RecordingEngine is a chartz.Engine that draws nothing and records every
// create and destroy call.
type RecordingEngine struct {
	mu        sync.Mutex
	specs     []chartz.Spec
	destroyed []string
	live      map[string]bool
	log       []string
	err       error
}

// NewRecordingEngine creates an empty RecordingEngine.
func NewRecordingEngine() *RecordingEngine {
	return &RecordingEngine{live: make(map[string]bool)}
}

// FailWith makes subsequent Create calls return err. Pass nil to recover.
func (e *RecordingEngine) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// Create records spec and returns a new instance.
func (e *RecordingEngine) Create(_ context.Context, surface chartz.Surface, spec chartz.Spec) (chartz.Instance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	id := fmt.Sprintf("instance-%d", len(e.specs)+1)
	e.specs = append(e.specs, spec)
	e.live[id] = true
	e.log = append(e.log, "create "+id)
	surface.Draw("text/plain", []byte(id))
	return &recordedInstance{id: id, engine: e, surface: surface}, nil
}

// Creates returns the number of instances created.
func (e *RecordingEngine) Creates() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.specs)
}

// Destroys returns the number of destroy calls.
func (e *RecordingEngine) Destroys() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.destroyed)
}

// Live returns the number of instances created and not yet destroyed.
func (e *RecordingEngine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.live)
}

// LastSpec returns the spec of the most recent create.
func (e *RecordingEngine) LastSpec() (chartz.Spec, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.specs) == 0 {
		return chartz.Spec{}, false
	}
	return e.specs[len(e.specs)-1], true
}

// Log returns the create and destroy calls in order, e.g.
// ["create instance-1", "destroy instance-1", "create instance-2"].
func (e *RecordingEngine) Log() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.log...)
}

type recordedInstance struct {
	id      string
	engine  *RecordingEngine
	surface chartz.Surface
}

func (i *recordedInstance) ID() string {
	return i.id
}

func (i *recordedInstance) Destroy() {
	i.engine.mu.Lock()
	defer i.engine.mu.Unlock()
	i.engine.destroyed = append(i.engine.destroyed, i.id)
	delete(i.engine.live, i.id)
	i.engine.log = append(i.engine.log, "destroy "+i.id)
	i.surface.Clear()
}

var _ chartz.Engine = (*RecordingEngine)(nil)
