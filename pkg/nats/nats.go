// Package nats reads chart payloads from a NATS JetStream key-value bucket
// and refreshes sources through KV watches.
package nats

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/zoobzio/chartz"
)

// Scheme is the endpoint prefix served by Store, e.g. "nats://charts.cpu".
const Scheme = "nats://"

// Store serves chart payloads from one KV bucket.
type Store struct {
	kv jetstream.KeyValue
}

// New creates a Store reading from kv.
func New(kv jetstream.KeyValue) *Store {
	return &Store{kv: kv}
}

// Key returns the KV key an endpoint refers to.
func Key(endpoint string) string {
	return strings.TrimPrefix(endpoint, Scheme)
}

// Fetch returns the latest value of the endpoint's key.
func (s *Store) Fetch(ctx context.Context, endpoint string) ([]byte, error) {
	key := Key(endpoint)
	entry, err := s.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, fmt.Errorf("key %q not found", key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %q: %w", key, err)
	}
	return entry.Value(), nil
}

// Trigger returns a chartz.Trigger firing on every put to the endpoint's key.
func (s *Store) Trigger(endpoint string) chartz.Trigger {
	return &Trigger{kv: s.kv, key: Key(endpoint)}
}

// Trigger signals puts to a KV key.
type Trigger struct {
	kv  jetstream.KeyValue
	key string
}

// Watch watches the key. Values present before the watch started are not
// signaled.
func (t *Trigger) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := t.kv.Watch(ctx, t.key)
	if err != nil {
		return nil, fmt.Errorf("failed to watch key: %w", err)
	}

	out := make(chan struct{})

	go func() {
		defer close(out)
		defer watcher.Stop() //nolint:errcheck // best effort on shutdown

		caughtUp := false
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-watcher.Updates():
				if !ok {
					return
				}
				// nil marks the end of the initial values
				if entry == nil {
					caughtUp = true
					continue
				}
				if !caughtUp || entry.Operation() != jetstream.KeyValuePut {
					continue
				}

				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

var _ chartz.Fetcher = (*Store)(nil)
