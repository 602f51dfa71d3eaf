package chartz

import "context"

// Fetcher performs a single read-only retrieval against an endpoint and
// returns the raw payload. Implementations must honor context cancellation.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, endpoint string) ([]byte, error)

// Fetch calls f(ctx, endpoint).
func (f FetcherFunc) Fetch(ctx context.Context, endpoint string) ([]byte, error) {
	return f(ctx, endpoint)
}

// Trigger observes an external resource and signals when a Source should
// refresh outside its poll schedule.
type Trigger interface {
	// Watch returns a channel that receives a value for every change. The
	// channel is closed when the context is canceled or the trigger fails.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
