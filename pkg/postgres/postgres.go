// Package postgres reads chart payloads from a PostgreSQL table and
// refreshes sources through LISTEN/NOTIFY.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zoobzio/chartz"
)

// Scheme is the endpoint prefix served by Store, e.g. "postgres://cpu".
const Scheme = "postgres://"

// Store serves chart payloads from a key/value table. A trigger on the table
// is expected to notify the store's channel with the changed key:
//
//	CREATE TABLE charts (key TEXT PRIMARY KEY, value BYTEA NOT NULL);
//
//	CREATE OR REPLACE FUNCTION notify_chart_change() RETURNS trigger AS $$
//	BEGIN
//	    PERFORM pg_notify('chart_changed', NEW.key);
//	    RETURN NEW;
//	END;
//	$$ LANGUAGE plpgsql;
//
//	CREATE TRIGGER chart_change_trigger
//	    AFTER INSERT OR UPDATE ON charts
//	    FOR EACH ROW EXECUTE FUNCTION notify_chart_change();
type Store struct {
	pool    *pgxpool.Pool
	table   string
	channel string
}

// Option configures a Store.
type Option func(*Store)

// WithTable sets the table to query. Defaults to "charts".
func WithTable(table string) Option {
	return func(s *Store) {
		s.table = table
	}
}

// WithChannel sets the notification channel. Defaults to "chart_changed".
func WithChannel(channel string) Option {
	return func(s *Store) {
		s.channel = channel
	}
}

// New creates a Store reading through pool.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{
		pool:    pool,
		table:   "charts",
		channel: "chart_changed",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the row key an endpoint refers to.
func Key(endpoint string) string {
	return strings.TrimPrefix(endpoint, Scheme)
}

// Fetch returns the value of the endpoint's row.
func (s *Store) Fetch(ctx context.Context, endpoint string) ([]byte, error) {
	key := Key(endpoint)
	var value []byte
	query := fmt.Sprintf("SELECT value FROM %s WHERE key = $1", pgx.Identifier{s.table}.Sanitize())
	err := s.pool.QueryRow(ctx, query, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("key %q not found", key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", key, err)
	}
	return value, nil
}

// Trigger returns a chartz.Trigger firing whenever the endpoint's row is
// inserted or updated.
func (s *Store) Trigger(endpoint string) chartz.Trigger {
	return &Trigger{pool: s.pool, channel: s.channel, key: Key(endpoint)}
}

// Trigger signals notifications for one key on a LISTEN channel.
type Trigger struct {
	pool    *pgxpool.Pool
	channel string
	key     string
}

// Watch acquires a dedicated connection and listens on the channel until
// ctx is canceled.
func (t *Trigger) Watch(ctx context.Context) (<-chan struct{}, error) {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{t.channel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen on channel %s: %w", t.channel, err)
	}

	out := make(chan struct{})

	go func() {
		defer close(out)
		defer conn.Release()

		for {
			notification, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				continue
			}
			if notification.Payload != t.key {
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
