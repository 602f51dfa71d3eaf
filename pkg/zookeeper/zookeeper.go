// Package zookeeper reads chart payloads from ZooKeeper nodes and refreshes
// sources through native node watches.
package zookeeper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"

	"github.com/zoobzio/chartz"
)

// Scheme is the endpoint prefix served by Store, e.g. "zk://charts/cpu".
const Scheme = "zk://"

// Store serves chart payloads from ZooKeeper nodes.
type Store struct {
	conn  *zk.Conn
	root  string
	retry time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithRoot prefixes every node path with root.
func WithRoot(root string) Option {
	return func(s *Store) {
		s.root = strings.TrimSuffix(root, "/")
	}
}

// New creates a Store on conn.
func New(conn *zk.Conn, opts ...Option) *Store {
	s := &Store{conn: conn, retry: time.Second}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the node path an endpoint refers to.
func Key(endpoint string) string {
	p := strings.TrimPrefix(endpoint, Scheme)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func (s *Store) path(endpoint string) string {
	return s.root + Key(endpoint)
}

// Fetch returns the node's data.
func (s *Store) Fetch(ctx context.Context, endpoint string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.path(endpoint)
	data, _, err := s.conn.Get(path)
	if errors.Is(err, zk.ErrNoNode) {
		return nil, fmt.Errorf("key %q not found", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %q: %w", path, err)
	}
	return data, nil
}

// Trigger returns a chartz.Trigger firing when the endpoint's node is
// created or its data changes.
func (s *Store) Trigger(endpoint string) chartz.Trigger {
	return &Trigger{conn: s.conn, path: s.path(endpoint), retry: s.retry}
}

// Trigger signals data changes of one node.
type Trigger struct {
	conn  *zk.Conn
	path  string
	retry time.Duration
}

// Watch re-arms a one-shot ZooKeeper watch after every event. Deleting the
// node is not signaled; recreating it is.
func (t *Trigger) Watch(ctx context.Context) (<-chan struct{}, error) {
	out := make(chan struct{})

	go func() {
		defer close(out)

		for {
			events, err := t.arm()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				case <-time.After(t.retry):
					continue
				}
			}

			var event zk.Event
			select {
			case <-ctx.Done():
				return
			case event = <-events:
			}

			switch event.Type {
			case zk.EventNodeCreated, zk.EventNodeDataChanged:
			default:
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

// arm sets a data watch on the node, or an existence watch while it is absent.
func (t *Trigger) arm() (<-chan zk.Event, error) {
	_, _, events, err := t.conn.GetW(t.path)
	if err == nil {
		return events, nil
	}
	if !errors.Is(err, zk.ErrNoNode) {
		return nil, err
	}
	_, _, events, err = t.conn.ExistsW(t.path)
	return events, err
}

var _ chartz.Fetcher = (*Store)(nil)
