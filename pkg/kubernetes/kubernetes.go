// Package kubernetes reads chart payloads from ConfigMap and Secret keys and
// refreshes sources through the Kubernetes Watch API.
package kubernetes

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"

	"github.com/zoobzio/chartz"
)

// Scheme is the endpoint prefix served by Store, e.g.
// "k8s://monitoring/charts/cpu.json" for key "cpu.json" of object "charts"
// in namespace "monitoring".
const Scheme = "k8s://"

// ResourceType specifies the kind of object holding chart payloads.
type ResourceType int

const (
	// ConfigMap reads ConfigMap data.
	ConfigMap ResourceType = iota
	// Secret reads Secret data.
	Secret
)

// Store serves chart payloads from ConfigMap or Secret keys.
type Store struct {
	client       kubernetes.Interface
	resourceType ResourceType
	retry        time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithResourceType sets the kind of object to read. Defaults to ConfigMap.
func WithResourceType(rt ResourceType) Option {
	return func(s *Store) {
		s.resourceType = rt
	}
}

// New creates a Store on client.
func New(client kubernetes.Interface, opts ...Option) *Store {
	s := &Store{client: client, resourceType: ConfigMap, retry: time.Second}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ref locates one data key of a namespaced object.
type Ref struct {
	Namespace string
	Name      string
	Key       string
}

func (r Ref) String() string {
	return r.Namespace + "/" + r.Name + "/" + r.Key
}

// ParseRef parses an endpoint of the form k8s://namespace/name/key.
func ParseRef(endpoint string) (Ref, error) {
	parts := strings.SplitN(strings.TrimPrefix(endpoint, Scheme), "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Ref{}, fmt.Errorf("invalid endpoint %q: want %snamespace/name/key", endpoint, Scheme)
	}
	return Ref{Namespace: parts[0], Name: parts[1], Key: parts[2]}, nil
}

// Fetch returns the value of the endpoint's data key.
func (s *Store) Fetch(ctx context.Context, endpoint string) ([]byte, error) {
	ref, err := ParseRef(endpoint)
	if err != nil {
		return nil, err
	}
	value, _, err := s.get(ctx, ref)
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *Store) get(ctx context.Context, ref Ref) ([]byte, string, error) {
	var (
		obj runtime.Object
		err error
	)
	if s.resourceType == ConfigMap {
		obj, err = s.client.CoreV1().ConfigMaps(ref.Namespace).Get(ctx, ref.Name, metav1.GetOptions{})
	} else {
		obj, err = s.client.CoreV1().Secrets(ref.Namespace).Get(ctx, ref.Name, metav1.GetOptions{})
	}
	if apierrors.IsNotFound(err) {
		return nil, "", fmt.Errorf("key %q not found", ref)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to get %q: %w", ref, err)
	}

	value, ok := s.extractValue(obj, ref.Key)
	if !ok {
		return nil, "", fmt.Errorf("key %q not found", ref)
	}
	meta, _ := obj.(metav1.Object) //nolint:errcheck // both kinds implement metav1.Object
	return value, meta.GetResourceVersion(), nil
}

func (s *Store) extractValue(obj runtime.Object, key string) ([]byte, bool) {
	switch o := obj.(type) {
	case *corev1.ConfigMap:
		if s.resourceType != ConfigMap {
			return nil, false
		}
		v, ok := o.Data[key]
		return []byte(v), ok
	case *corev1.Secret:
		if s.resourceType != Secret {
			return nil, false
		}
		v, ok := o.Data[key]
		return v, ok
	default:
		return nil, false
	}
}

// Trigger returns a chartz.Trigger firing when the endpoint's key changes.
func (s *Store) Trigger(endpoint string) chartz.Trigger {
	return &Trigger{store: s, endpoint: endpoint}
}

// Trigger signals changes of one data key.
type Trigger struct {
	store    *Store
	endpoint string
}

// Watch reads the key once and then watches its object, signaling whenever
// the key's value differs from the last one seen. The first watch is opened
// before Watch returns; later ones reopen after errors.
func (t *Trigger) Watch(ctx context.Context) (<-chan struct{}, error) {
	ref, err := ParseRef(t.endpoint)
	if err != nil {
		return nil, err
	}

	last, version, _ := t.store.get(ctx, ref) //nolint:errcheck // absent keys are watched for creation
	w, err := t.store.watch(ctx, ref, version)
	if err != nil {
		return nil, fmt.Errorf("failed to start watch: %w", err)
	}

	out := make(chan struct{})

	go func() {
		defer close(out)

		for {
			t.follow(ctx, ref, w, &last, out)
			if ctx.Err() != nil {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(t.store.retry):
			}

			// catch up on changes missed while disconnected
			value, version, err := t.store.get(ctx, ref)
			if err == nil && !bytes.Equal(value, last) {
				last = value
				if !t.send(ctx, out) {
					return
				}
			}
			if w, err = t.store.watch(ctx, ref, version); err != nil {
				w = nil
			}
		}
	}()

	return out, nil
}

// follow relays changes from w until it fails or ctx is done.
func (t *Trigger) follow(ctx context.Context, ref Ref, w watch.Interface, last *[]byte, out chan<- struct{}) {
	if w == nil {
		return
	}
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.ResultChan():
			if !ok || event.Type == watch.Error {
				return
			}

			switch event.Type {
			case watch.Added, watch.Modified:
			default:
				continue
			}

			if meta, ok := event.Object.(metav1.Object); !ok || meta.GetName() != ref.Name {
				continue
			}
			value, ok := t.store.extractValue(event.Object, ref.Key)
			if !ok || bytes.Equal(value, *last) {
				continue
			}
			*last = value

			if !t.send(ctx, out) {
				return
			}
		}
	}
}

func (t *Trigger) send(ctx context.Context, out chan<- struct{}) bool {
	select {
	case out <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Store) watch(ctx context.Context, ref Ref, version string) (watch.Interface, error) {
	opts := metav1.ListOptions{
		FieldSelector:   fmt.Sprintf("metadata.name=%s", ref.Name),
		ResourceVersion: version,
		Watch:           true,
	}
	if s.resourceType == ConfigMap {
		return s.client.CoreV1().ConfigMaps(ref.Namespace).Watch(ctx, opts)
	}
	return s.client.CoreV1().Secrets(ref.Namespace).Watch(ctx, opts)
}

var _ chartz.Fetcher = (*Store)(nil)
