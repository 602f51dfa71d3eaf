// Package file provides a chartz Fetcher reading chart payloads from the
// local filesystem and a Trigger that refreshes a Source when the file changes.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/zoobzio/chartz"
)

// Scheme is the optional endpoint prefix accepted by Fetcher.
const Scheme = "file://"

// Fetcher reads the file named by the endpoint. Relative endpoints are
// resolved against the fetcher's root directory.
type Fetcher struct {
	root string
}

// New creates a Fetcher resolving relative endpoints against root.
// An empty root resolves them against the working directory.
func New(root string) *Fetcher {
	return &Fetcher{root: root}
}

// Path returns the filesystem path an endpoint refers to.
func (f *Fetcher) Path(endpoint string) string {
	p := strings.TrimPrefix(endpoint, Scheme)
	if f.root != "" && !filepath.IsAbs(p) {
		p = filepath.Join(f.root, p)
	}
	return p
}

// Fetch returns the contents of the endpoint's file.
func (f *Fetcher) Fetch(ctx context.Context, endpoint string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path(endpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", endpoint, err)
	}
	return data, nil
}

// Trigger returns a Trigger for the endpoint's file.
func (f *Fetcher) Trigger(endpoint string) chartz.Trigger {
	return NewTrigger(f.Path(endpoint))
}

// Trigger watches a file and signals whenever it is written or created.
type Trigger struct {
	path string
}

// NewTrigger creates a Trigger for the given file path.
func NewTrigger(path string) *Trigger {
	return &Trigger{path: strings.TrimPrefix(path, Scheme)}
}

// Watch begins watching the file and returns a channel that receives a value
// for every write. The channel closes when ctx is canceled.
func (t *Trigger) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if err := watcher.Add(t.path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch file %s: %w", t.path, err)
	}

	out := make(chan struct{})

	go func() {
		defer close(out)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				// Only signal on write or create events
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}

				select {
				case out <- struct{}{}:
				case <-ctx.Done():
					return
				}

			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
				// Continue watching despite errors
			}
		}
	}()

	return out, nil
}
