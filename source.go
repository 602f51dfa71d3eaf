package chartz

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/pipz"
)

// DefaultFetchTimeout bounds a single fetch when no timeout is configured.
const DefaultFetchTimeout = 30 * time.Second

// Snapshot is the published state of a Source. A Snapshot is never mutated
// after publication; Value is shared between readers and must be treated as
// read-only.
type Snapshot[T any] struct {
	// Value is the latest successfully fetched value, or nil if none.
	Value *T

	// Loading is true while the most recently issued fetch is outstanding.
	Loading bool

	// Err is the failure of the most recently completed fetch, or nil.
	// It is always nil while Loading.
	Err *FetchError

	// Version increments on every successful fetch.
	Version uint64

	// State summarizes the snapshot.
	State State

	// UpdatedAt is when Value was last replaced.
	UpdatedAt time.Time
}

// Source yields the latest value of a remote endpoint, refreshed on a timer
// and on demand. Fetch results are applied in completion order: whichever
// fetch completes last wins, regardless of issue order. A failed fetch keeps
// the previous value available and surfaces the error on the snapshot.
type Source[T any] struct {
	endpoint  string
	fetcher   Fetcher
	decoder   Decoder[T]
	clock     clockz.Clock
	metrics   MetricsProvider
	trigger   Trigger
	timeout   time.Duration
	autoStart bool
	history   *fetchHistory

	retries          int
	backoff          time.Duration
	breakerThreshold int
	breakerReset     time.Duration
	pipelineOnce     sync.Once
	pipeline         pipz.Chainable[fetchCall]

	snap atomic.Pointer[Snapshot[T]]

	mu       sync.Mutex
	interval time.Duration
	started  bool
	closed   bool
	ctx      context.Context
	cancel   context.CancelFunc
	poller   *poller
	subs     []subscriber[T]
	nextSub  uint64

	// notifyMu serializes subscriber delivery so notifications arrive in
	// publication order and none is in progress once Close returns.
	notifyMu sync.Mutex
}

type subscriber[T any] struct {
	id uint64
	fn func(Snapshot[T])
}

// NewSource creates a Source polling endpoint through fetcher.
//
// An empty endpoint yields a disabled Source: it never fetches, never loads,
// and Refresh is a no-op. Payloads are decoded as JSON into T unless a
// different Decoder or Codec is configured.
//
// Example:
//
//	src := chartz.NewSource[chartz.ChartData]("/api/stats/categories", http.New()).
//	    Interval(time.Minute)
//
//	if err := src.Start(ctx); err != nil {
//	    return err
//	}
//	defer src.Close()
func NewSource[T any](endpoint string, fetcher Fetcher) *Source[T] {
	s := &Source[T]{
		endpoint:  endpoint,
		fetcher:   fetcher,
		decoder:   Decode[T](JSONCodec{}),
		clock:     clockz.RealClock,
		timeout:   DefaultFetchTimeout,
		autoStart: true,
	}
	initial := &Snapshot[T]{State: StateIdle}
	if endpoint == "" {
		initial.State = StateDisabled
	}
	s.snap.Store(initial)
	return s
}

// -----------------------------------------------------------------------------
// Chainable Instance Configuration
// -----------------------------------------------------------------------------

// Interval sets the poll interval. Zero disables polling. Use SetInterval
// to change it after Start.
func (s *Source[T]) Interval(d time.Duration) *Source[T] {
	s.SetInterval(d)
	return s
}

// Decoder sets the function turning raw payloads into T.
// Must be called before Start().
func (s *Source[T]) Decoder(fn Decoder[T]) *Source[T] {
	s.decoder = fn
	return s
}

// Codec decodes payloads straight into T with the given codec.
// Must be called before Start().
func (s *Source[T]) Codec(codec Codec) *Source[T] {
	s.decoder = Decode[T](codec)
	return s
}

// AutoStart controls whether Start issues an initial fetch. Default: true.
// Must be called before Start().
func (s *Source[T]) AutoStart(enabled bool) *Source[T] {
	s.autoStart = enabled
	return s
}

// Clock sets a custom clock for timers and timestamps.
// Use this with clockz.FakeClock for deterministic polling tests.
// Must be called before Start().
func (s *Source[T]) Clock(clock clockz.Clock) *Source[T] {
	s.clock = clock
	return s
}

// Metrics sets a metrics provider. Must be called before Start().
func (s *Source[T]) Metrics(provider MetricsProvider) *Source[T] {
	s.metrics = provider
	return s
}

// Trigger sets an external change trigger that requests refreshes outside
// the poll schedule. Must be called before Start().
func (s *Source[T]) Trigger(t Trigger) *Source[T] {
	s.trigger = t
	return s
}

// Timeout bounds each fetch attempt. Zero leaves fetches bounded only by the
// caller's context. Default: DefaultFetchTimeout. Must be called before Start().
func (s *Source[T]) Timeout(d time.Duration) *Source[T] {
	s.timeout = d
	return s
}

// ErrorHistorySize sets the number of recent fetch failures to retain.
// Use 0 (default) to only retain the most recent error via LastError().
// Must be called before Start().
func (s *Source[T]) ErrorHistorySize(n int) *Source[T] {
	s.history = newFetchHistory(n)
	return s
}

// -----------------------------------------------------------------------------
// Accessors
// -----------------------------------------------------------------------------

// Endpoint returns the configured endpoint.
func (s *Source[T]) Endpoint() string {
	return s.endpoint
}

// Snapshot returns the latest published snapshot.
func (s *Source[T]) Snapshot() Snapshot[T] {
	return *s.snap.Load()
}

// State returns the current state of the Source.
func (s *Source[T]) State() State {
	return s.snap.Load().State
}

// Current returns the latest value and true, or the zero value and false if
// no fetch has succeeded yet.
func (s *Source[T]) Current() (T, bool) {
	ptr := s.snap.Load().Value
	if ptr == nil {
		var zero T
		return zero, false
	}
	return *ptr, true
}

// LastError returns the failure of the most recently completed fetch, or nil.
func (s *Source[T]) LastError() error {
	if fe := s.snap.Load().Err; fe != nil {
		return fe
	}
	return nil
}

// ErrorHistory returns recent fetch failures, oldest first. The history is
// cleared by every successful fetch. Returns nil unless ErrorHistorySize was set.
func (s *Source[T]) ErrorHistory() []error {
	return s.history.list()
}

// Polling reports whether a poll timer is live. It turns false once polling
// is disabled, the Source is closed, or the Start context is canceled.
func (s *Source[T]) Polling() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.poller != nil && s.poller.alive()
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start begins polling and, when AutoStart is enabled, issues the initial
// fetch asynchronously. A disabled Source starts without doing anything.
//
// If the trigger fails to start, Start returns the error and leaves the
// Source unstarted: no timer is armed and Start may be called again.
// Otherwise Start can only be called once. Subsequent calls return
// ErrAlreadyStarted.
func (s *Source[T]) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	if s.endpoint == "" {
		s.mu.Unlock()
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	runCtx, cancel := s.ctx, s.cancel
	s.mu.Unlock()

	var changes <-chan struct{}
	if s.trigger != nil {
		var err error
		changes, err = s.trigger.Watch(runCtx)
		if err != nil {
			s.abortStart(cancel)
			return fmt.Errorf("failed to start trigger: %w", err)
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return ErrClosed
	}
	if s.interval > 0 && s.poller == nil {
		s.poller = s.startPoller(runCtx, s.interval)
	}
	interval := s.interval
	s.mu.Unlock()

	capitan.Emit(ctx, SourceStarted,
		KeyEndpoint.Field(s.endpoint),
		KeyInterval.Field(interval),
	)

	if changes != nil {
		go s.follow(runCtx, changes)
	}
	if s.autoStart {
		s.Refresh(runCtx)
	}
	return nil
}

// abortStart returns the Source to its unstarted state after a failed Start,
// releasing any timer SetInterval armed in the meantime.
func (s *Source[T]) abortStart(cancel context.CancelFunc) {
	cancel()
	s.mu.Lock()
	s.started = false
	s.ctx, s.cancel = nil, nil
	p := s.poller
	s.poller = nil
	s.mu.Unlock()
	if p != nil {
		p.halt()
	}
}

// SetInterval reconfigures polling. Zero (or negative) cancels the live
// timer. A timed fetch already in flight is awaited, so no timed fetch is
// running or issued once SetInterval returns.
func (s *Source[T]) SetInterval(d time.Duration) {
	if d < 0 {
		d = 0
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	old := s.poller
	s.poller = nil
	s.interval = d
	if s.started && s.endpoint != "" && d > 0 {
		s.poller = s.startPoller(s.ctx, d)
	}
	ctx := s.ctx
	s.mu.Unlock()

	if old != nil {
		old.halt()
	}
	if ctx != nil {
		capitan.Emit(ctx, SourceIntervalChanged,
			KeyEndpoint.Field(s.endpoint),
			KeyInterval.Field(d),
		)
	}
}

// Subscribe registers fn to receive every published snapshot, in
// publication order. fn runs synchronously on the publishing goroutine and
// must not call Close or SetInterval. The returned function removes the
// subscription.
func (s *Source[T]) Subscribe(fn func(Snapshot[T])) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, subscriber[T]{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Close disposes the Source. The poll timer is cancelled, results of fetches
// still in flight are discarded, and no subscriber is notified after Close
// returns. Close is idempotent.
func (s *Source[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	p := s.poller
	s.poller = nil
	s.subs = nil
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if p != nil {
		p.halt()
	}

	// Wait out a delivery that began before close.
	s.notifyMu.Lock()
	s.notifyMu.Unlock() //nolint:staticcheck // empty critical section is a barrier

	capitan.Emit(context.Background(), SourceStopped,
		KeyEndpoint.Field(s.endpoint),
		KeyNewState.Field(s.State().String()),
	)
}

// -----------------------------------------------------------------------------
// Fetching
// -----------------------------------------------------------------------------

// Refresh issues a fetch asynchronously. It may be called at any time,
// including while earlier fetches are outstanding. Refresh is a no-op on a
// disabled or closed Source.
func (s *Source[T]) Refresh(ctx context.Context) {
	if s.endpoint == "" {
		return
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	go func() {
		_ = s.Poll(ctx) //nolint:errcheck // Errors stored on the snapshot
	}()
}

// Poll performs one fetch synchronously and applies its outcome.
// It returns ErrDisabled, ErrClosed, or the *FetchError of a failed fetch.
func (s *Source[T]) Poll(ctx context.Context) error {
	if s.endpoint == "" {
		return ErrDisabled
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	prev := s.snap.Load()
	s.publishAndUnlock(ctx, &Snapshot[T]{
		Value:     prev.Value,
		Loading:   true,
		Version:   prev.Version,
		State:     StateLoading,
		UpdatedAt: prev.UpdatedAt,
	})

	capitan.Emit(ctx, FetchStarted, KeyEndpoint.Field(s.endpoint))
	start := s.clock.Now()

	stage := "fetch"
	var value T
	raw, err := s.fetch(ctx)
	if err == nil {
		stage = "decode"
		value, err = s.decoder(raw)
	}
	elapsed := s.clock.Since(start)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		capitan.Emit(ctx, FetchDiscarded, KeyEndpoint.Field(s.endpoint))
		if s.metrics != nil {
			s.metrics.OnFetchDiscarded()
		}
		return ErrClosed
	}
	cur := s.snap.Load()

	if err != nil {
		fe := &FetchError{Endpoint: s.endpoint, Err: err, At: s.clock.Now()}
		s.history.record(fe)
		s.publishAndUnlock(ctx, &Snapshot[T]{
			Value:     cur.Value,
			Err:       fe,
			Version:   cur.Version,
			State:     failureState(cur),
			UpdatedAt: cur.UpdatedAt,
		})
		capitan.Emit(ctx, FetchFailed,
			KeyEndpoint.Field(s.endpoint),
			KeyStage.Field(stage),
			KeyError.Field(err.Error()),
			KeyDuration.Field(elapsed),
		)
		if s.metrics != nil {
			s.metrics.OnFetchFailure(stage, elapsed)
		}
		return fe
	}

	version := cur.Version + 1
	s.history.reset()
	s.publishAndUnlock(ctx, &Snapshot[T]{
		Value:     &value,
		Version:   version,
		State:     StateHealthy,
		UpdatedAt: s.clock.Now(),
	})
	capitan.Emit(ctx, FetchSucceeded,
		KeyEndpoint.Field(s.endpoint),
		KeyVersion.Field(int(version)), //nolint:gosec // version count fits in int
		KeyDuration.Field(elapsed),
	)
	if s.metrics != nil {
		s.metrics.OnFetchSuccess(elapsed)
	}
	return nil
}

// publishAndUnlock swaps in next as a single state transition, releases
// s.mu and delivers next to subscribers. The caller must hold s.mu.
func (s *Source[T]) publishAndUnlock(ctx context.Context, next *Snapshot[T]) {
	old := s.snap.Swap(next)
	subs := make([]func(Snapshot[T]), len(s.subs))
	for i, sub := range s.subs {
		subs[i] = sub.fn
	}
	s.notifyMu.Lock()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(*next)
	}
	s.notifyMu.Unlock()

	if old.State != next.State {
		capitan.Emit(ctx, SourceStateChanged,
			KeyEndpoint.Field(s.endpoint),
			KeyOldState.Field(old.State.String()),
			KeyNewState.Field(next.State.String()),
		)
		if s.metrics != nil {
			s.metrics.OnStateChange(old.State, next.State)
		}
	}
}

// failureState returns the state after a failed fetch, based on whether a
// value has ever been obtained.
func failureState[T any](cur *Snapshot[T]) State {
	if cur.Value == nil {
		return StateEmpty
	}
	return StateDegraded
}

// follow refreshes on every trigger notification until the channel closes.
func (s *Source[T]) follow(ctx context.Context, changes <-chan struct{}) {
	for range changes {
		s.Refresh(ctx)
	}
}

// poller owns one poll timer and the goroutine driving it.
type poller struct {
	stop chan struct{}
	done chan struct{}
}

// startPoller arms the timer before returning so fake clocks observe it.
// Timed fetches run on the poller goroutine; the next tick is scheduled one
// interval after the previous fetch completes.
func (s *Source[T]) startPoller(ctx context.Context, interval time.Duration) *poller {
	p := &poller{stop: make(chan struct{}), done: make(chan struct{})}
	timer := s.clock.NewTimer(interval)

	go func() {
		defer close(p.done)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stop:
				return
			case <-timer.C():
				_ = s.Poll(ctx) //nolint:errcheck // Errors stored on the snapshot
				timer.Reset(interval)
			}
		}
	}()
	return p
}

// halt stops the poller and waits until its timer is released and any
// timed fetch has completed.
func (p *poller) halt() {
	close(p.stop)
	<-p.done
}

// alive reports whether the poll goroutine is still running.
func (p *poller) alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}
