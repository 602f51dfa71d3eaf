// Package consul reads chart payloads from Consul KV and refreshes sources
// through blocking queries.
package consul

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/consul/api"

	"github.com/zoobzio/chartz"
)

// Scheme is the endpoint prefix served by Store, e.g. "consul://charts/cpu".
const Scheme = "consul://"

// retryDelay paces blocking queries after a failure.
const retryDelay = time.Second

// Store serves chart payloads stored as Consul KV values.
type Store struct {
	client *api.Client
}

// New creates a Store reading through client.
func New(client *api.Client) *Store {
	return &Store{client: client}
}

// Key returns the KV key an endpoint refers to.
func Key(endpoint string) string {
	return strings.TrimPrefix(endpoint, Scheme)
}

// Fetch returns the value of the endpoint's key.
func (s *Store) Fetch(ctx context.Context, endpoint string) ([]byte, error) {
	key := Key(endpoint)
	pair, _, err := s.client.KV().Get(key, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get %q: %w", key, err)
	}
	if pair == nil {
		return nil, fmt.Errorf("key %q not found", key)
	}
	return pair.Value, nil
}

// Trigger returns a chartz.Trigger firing whenever the endpoint's key changes.
func (s *Store) Trigger(endpoint string) chartz.Trigger {
	return &Trigger{client: s.client, key: Key(endpoint)}
}

// Trigger signals modifications of a Consul KV key.
type Trigger struct {
	client *api.Client
	key    string
}

// Watch issues blocking queries against the key until ctx is canceled.
func (t *Trigger) Watch(ctx context.Context) (<-chan struct{}, error) {
	kv := t.client.KV()

	_, meta, err := kv.Get(t.key, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get current index: %w", err)
	}

	out := make(chan struct{})

	go func() {
		defer close(out)

		lastIndex := meta.LastIndex
		for {
			opts := (&api.QueryOptions{WaitIndex: lastIndex}).WithContext(ctx)
			pair, meta, err := kv.Get(t.key, opts)
			if err != nil {
				select {
				case <-ctx.Done():
					return
				case <-time.After(retryDelay):
					continue
				}
			}

			if meta.LastIndex <= lastIndex {
				continue
			}
			lastIndex = meta.LastIndex
			if pair == nil {
				continue
			}

			select {
			case out <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

var _ chartz.Fetcher = (*Store)(nil)
