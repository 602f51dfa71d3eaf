package chartz

import (
	"context"
	"errors"
	"time"

	"github.com/zoobzio/pipz"
)

// Identities for the stages of the fetch pipeline.
var (
	fetchID        = pipz.NewIdentity("chartz:fetch", "Retrieve the raw payload from the endpoint")
	fetchTimeoutID = pipz.NewIdentity("chartz:fetch-timeout", "Bound a single fetch attempt")
	fetchRetryID   = pipz.NewIdentity("chartz:fetch-retry", "Retry failed fetches immediately")
	fetchBackoffID = pipz.NewIdentity("chartz:fetch-backoff", "Retry failed fetches with exponential delay")
	fetchBreakerID = pipz.NewIdentity("chartz:fetch-circuit-breaker", "Stop fetching from a failing endpoint")
)

// fetchCall carries one fetch through the pipeline.
type fetchCall struct {
	endpoint string
	body     []byte
}

// -----------------------------------------------------------------------------
// Chainable Reliability Configuration
// -----------------------------------------------------------------------------

// Retry retries a failed fetch immediately, up to attempts tries in total.
// Each attempt is bounded by Timeout. Replaces any Backoff setting.
// Must be called before Start().
func (s *Source[T]) Retry(attempts int) *Source[T] {
	s.retries = attempts
	s.backoff = 0
	return s
}

// Backoff retries a failed fetch up to attempts tries in total, waiting
// baseDelay, then 2*baseDelay, 4*baseDelay and so on between tries.
// Replaces any Retry setting. Must be called before Start().
func (s *Source[T]) Backoff(attempts int, baseDelay time.Duration) *Source[T] {
	s.retries = attempts
	s.backoff = baseDelay
	return s
}

// CircuitBreaker stops fetching after threshold consecutive failures.
// While open, fetches fail immediately without reaching the endpoint; after
// resetTimeout one trial fetch is let through. Retries of a single fetch
// count as one failure. Must be called before Start().
func (s *Source[T]) CircuitBreaker(threshold int, resetTimeout time.Duration) *Source[T] {
	s.breakerThreshold = threshold
	s.breakerReset = resetTimeout
	return s
}

// fetchPipeline returns the pipeline wrapping the fetcher, building it on
// first use. Stages nest from the inside out: timeout per attempt, then
// retry or backoff, then the circuit breaker.
func (s *Source[T]) fetchPipeline() pipz.Chainable[fetchCall] {
	s.pipelineOnce.Do(func() {
		var p pipz.Chainable[fetchCall] = pipz.Apply(fetchID, func(ctx context.Context, c fetchCall) (fetchCall, error) {
			body, err := s.fetcher.Fetch(ctx, c.endpoint)
			if err != nil {
				return c, err
			}
			c.body = body
			return c, nil
		})

		if s.timeout > 0 {
			p = pipz.NewTimeout(fetchTimeoutID, p, s.timeout).WithClock(s.clock)
		}

		if s.retries > 1 {
			if s.backoff > 0 {
				p = pipz.NewBackoff(fetchBackoffID, p, s.retries, s.backoff).WithClock(s.clock)
			} else {
				p = pipz.NewRetry(fetchRetryID, p, s.retries)
			}
		}

		if s.breakerThreshold > 0 {
			p = pipz.NewCircuitBreaker(fetchBreakerID, p, s.breakerThreshold, s.breakerReset).WithClock(s.clock)
		}

		s.pipeline = p
	})
	return s.pipeline
}

// fetch runs one fetch through the pipeline and returns the raw payload.
// Pipeline errors are unwrapped to their cause.
func (s *Source[T]) fetch(ctx context.Context) ([]byte, error) {
	out, err := s.fetchPipeline().Process(ctx, fetchCall{endpoint: s.endpoint})
	if err != nil {
		var pe *pipz.Error[fetchCall]
		if errors.As(err, &pe) && pe.Err != nil {
			return nil, pe.Err
		}
		return nil, err
	}
	return out.body, nil
}
