// Package etcd reads chart payloads from etcd keys and refreshes sources
// through the native Watch API.
package etcd

import (
	"context"
	"fmt"
	"strings"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/zoobzio/chartz"
)

// Scheme is the endpoint prefix served by Store, e.g. "etcd:///charts/cpu".
const Scheme = "etcd://"

// Store serves chart payloads stored under etcd keys.
type Store struct {
	client *clientv3.Client
}

// New creates a Store reading through client.
func New(client *clientv3.Client) *Store {
	return &Store{client: client}
}

// Key returns the etcd key an endpoint refers to.
func Key(endpoint string) string {
	return strings.TrimPrefix(endpoint, Scheme)
}

// Fetch returns the value of the endpoint's key.
func (s *Store) Fetch(ctx context.Context, endpoint string) ([]byte, error) {
	key := Key(endpoint)
	resp, err := s.client.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get %q: %w", key, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("key %q not found", key)
	}
	return resp.Kvs[0].Value, nil
}

// Trigger returns a chartz.Trigger firing on every put to the endpoint's key.
func (s *Store) Trigger(endpoint string) chartz.Trigger {
	return &Trigger{client: s.client, key: Key(endpoint)}
}

// Trigger signals puts to an etcd key.
type Trigger struct {
	client *clientv3.Client
	key    string
}

// Watch watches the key from the current revision onward.
func (t *Trigger) Watch(ctx context.Context) (<-chan struct{}, error) {
	resp, err := t.client.Get(ctx, t.key)
	if err != nil {
		return nil, fmt.Errorf("failed to get current revision: %w", err)
	}

	out := make(chan struct{})

	go func() {
		defer close(out)

		watchChan := t.client.Watch(ctx, t.key, clientv3.WithRev(resp.Header.Revision+1))
		for {
			select {
			case <-ctx.Done():
				return
			case watchResp, ok := <-watchChan:
				if !ok {
					return
				}
				if watchResp.Err() != nil {
					continue
				}

				put := false
				for _, event := range watchResp.Events {
					if event.Type == clientv3.EventTypePut {
						put = true
					}
				}
				if !put {
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
