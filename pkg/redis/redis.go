// Package redis reads chart payloads from Redis keys and refreshes sources
// through keyspace notifications.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/zoobzio/chartz"
)

// Scheme is the endpoint prefix served by Store, e.g. "redis://charts:cpu".
const Scheme = "redis://"

// Store serves chart payloads stored as plain string values.
type Store struct {
	client *redis.Client
	db     int
}

// Option configures a Store.
type Option func(*Store)

// WithDB sets the database index used for keyspace notifications.
// Defaults to 0; it must match the client's selected database.
func WithDB(db int) Option {
	return func(s *Store) {
		s.db = db
	}
}

// New creates a Store reading through client.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the Redis key an endpoint refers to.
func Key(endpoint string) string {
	return strings.TrimPrefix(endpoint, Scheme)
}

// Fetch returns the value of the endpoint's key.
func (s *Store) Fetch(ctx context.Context, endpoint string) ([]byte, error) {
	key := Key(endpoint)
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("key %q not found", key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %q: %w", key, err)
	}
	return val, nil
}

// Trigger returns a chartz.Trigger firing whenever the endpoint's key is set.
func (s *Store) Trigger(endpoint string) chartz.Trigger {
	return &Trigger{client: s.client, key: Key(endpoint), db: s.db}
}

// Trigger signals writes to a Redis key. Requires keyspace notifications:
//
//	CONFIG SET notify-keyspace-events KEA
type Trigger struct {
	client *redis.Client
	key    string
	db     int
}

// Watch subscribes to the key's keyspace channel.
func (t *Trigger) Watch(ctx context.Context) (<-chan struct{}, error) {
	channel := fmt.Sprintf("__keyspace@%d__:%s", t.db, t.key)
	pubsub := t.client.Subscribe(ctx, channel)

	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to keyspace notifications: %w", err)
	}

	out := make(chan struct{})

	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				switch msg.Payload {
				case "set", "mset", "setex", "psetex", "setnx", "setrange", "append":
				default:
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
