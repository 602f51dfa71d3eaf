package chartz

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrClosed is returned by Source operations after Close.
	ErrClosed = errors.New("chartz: source closed")

	// ErrDisabled is returned by Poll when the Source has no endpoint.
	ErrDisabled = errors.New("chartz: source disabled")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("chartz: source already started")

	// ErrDisposed is returned by Pipeline operations after Dispose.
	ErrDisposed = errors.New("chartz: pipeline disposed")

	// ErrNoEngine is returned when a Pipeline is built without an engine.
	ErrNoEngine = errors.New("chartz: no render engine")
)

// FetchError describes a failed fetch or decode. It is surfaced as state on
// the Source snapshot rather than returned to the render path.
type FetchError struct {
	Endpoint string
	Err      error
	At       time.Time
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
