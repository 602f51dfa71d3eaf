package chartz

import (
	"context"
	"errors"
)

// ErrChannelClosed is returned by ChannelFetcher once its channel is drained and closed.
var ErrChannelClosed = errors.New("chartz: fetch channel closed")

// Response is a canned fetch outcome delivered by a ChannelFetcher.
type Response struct {
	Body []byte
	Err  error
}

// ChannelFetcher serves fetches from a channel of canned responses, one per
// call, in channel order. Useful for testing and for sources that already
// produce payloads.
type ChannelFetcher struct {
	ch <-chan Response
}

// NewChannelFetcher creates a ChannelFetcher reading from ch.
func NewChannelFetcher(ch <-chan Response) *ChannelFetcher {
	return &ChannelFetcher{ch: ch}
}

// Fetch blocks until a response is available or ctx is done.
func (f *ChannelFetcher) Fetch(ctx context.Context, _ string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r, ok := <-f.ch:
		if !ok {
			return nil, ErrChannelClosed
		}
		return r.Body, r.Err
	}
}

// ChannelTrigger wraps an existing signal channel as a Trigger.
type ChannelTrigger struct {
	ch <-chan struct{}
}

// NewChannelTrigger creates a ChannelTrigger forwarding values from ch.
func NewChannelTrigger(ch <-chan struct{}) *ChannelTrigger {
	return &ChannelTrigger{ch: ch}
}

// Watch returns a channel that emits for every value on the wrapped channel.
func (t *ChannelTrigger) Watch(ctx context.Context) (<-chan struct{}, error) {
	out := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-t.ch:
				if !ok {
					return
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
