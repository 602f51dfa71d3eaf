// Package firestore reads chart payloads from Firestore documents and
// refreshes sources through realtime listeners.
package firestore

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/zoobzio/chartz"
)

// Scheme is the endpoint prefix served by Store, e.g.
// "firestore://charts/cpu" for document "cpu" of collection "charts".
const Scheme = "firestore://"

// DefaultField is the document field holding the payload.
const DefaultField = "data"

// Store serves chart payloads from Firestore documents.
type Store struct {
	client *firestore.Client
	field  string
}

// Option configures a Store.
type Option func(*Store)

// WithField reads the payload from field instead of DefaultField.
func WithField(field string) Option {
	return func(s *Store) {
		s.field = field
	}
}

// New creates a Store on client.
func New(client *firestore.Client, opts ...Option) *Store {
	s := &Store{client: client, field: DefaultField}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the document path an endpoint refers to.
func Key(endpoint string) string {
	return strings.Trim(strings.TrimPrefix(endpoint, Scheme), "/")
}

func (s *Store) doc(endpoint string) (*firestore.DocumentRef, error) {
	key := Key(endpoint)
	collection, document, ok := strings.Cut(key, "/")
	if !ok || collection == "" || document == "" {
		return nil, fmt.Errorf("invalid document path %q: want collection/document", key)
	}
	return s.client.Collection(collection).Doc(document), nil
}

// Fetch returns the payload field of the endpoint's document.
func (s *Store) Fetch(ctx context.Context, endpoint string) ([]byte, error) {
	ref, err := s.doc(endpoint)
	if err != nil {
		return nil, err
	}
	snap, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("key %q not found", Key(endpoint))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %q: %w", Key(endpoint), err)
	}
	value, ok := s.payload(snap)
	if !ok {
		return nil, fmt.Errorf("document %q has no %q field", Key(endpoint), s.field)
	}
	return value, nil
}

func (s *Store) payload(snap *firestore.DocumentSnapshot) ([]byte, bool) {
	switch v := snap.Data()[s.field].(type) {
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	default:
		return nil, false
	}
}

// Trigger returns a chartz.Trigger firing whenever the endpoint's document
// is written with a payload.
func (s *Store) Trigger(endpoint string) chartz.Trigger {
	return &Trigger{store: s, endpoint: endpoint}
}

// Trigger signals writes to one document.
type Trigger struct {
	store    *Store
	endpoint string
}

// Watch listens to document snapshots. The first snapshot describes the
// document as it was when the listener attached and is not signaled.
func (t *Trigger) Watch(ctx context.Context) (<-chan struct{}, error) {
	ref, err := t.store.doc(t.endpoint)
	if err != nil {
		return nil, err
	}

	out := make(chan struct{})

	go func() {
		defer close(out)

		snapshots := ref.Snapshots(ctx)
		defer snapshots.Stop()

		first := true
		for {
			snap, err := snapshots.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					return
				}
				continue
			}
			if first {
				first = false
				continue
			}
			if !snap.Exists() {
				continue
			}
			if _, ok := t.store.payload(snap); !ok {
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

// Put writes data as the payload of the endpoint's document, creating it if
// needed.
func (s *Store) Put(ctx context.Context, endpoint string, data []byte) error {
	ref, err := s.doc(endpoint)
	if err != nil {
		return err
	}
	if _, err := ref.Set(ctx, map[string]any{s.field: data}, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

var _ chartz.Fetcher = (*Store)(nil)
