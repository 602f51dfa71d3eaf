package chartz

import "sync"

// fetchHistory keeps the most recent fetch failures in a fixed ring.
// A nil history records nothing.
type fetchHistory struct {
	mu    sync.RWMutex
	slots []*FetchError
	next  int
	n     int
}

func newFetchHistory(size int) *fetchHistory {
	if size <= 0 {
		return nil
	}
	return &fetchHistory{slots: make([]*FetchError, size)}
}

func (h *fetchHistory) record(err *FetchError) {
	if h == nil || err == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.slots[h.next] = err
	h.next = (h.next + 1) % len(h.slots)
	if h.n < len(h.slots) {
		h.n++
	}
}

func (h *fetchHistory) reset() {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	clear(h.slots)
	h.next = 0
	h.n = 0
}

// list returns recorded failures, oldest first.
func (h *fetchHistory) list() []error {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.n == 0 {
		return nil
	}
	out := make([]error, h.n)
	size := len(h.slots)
	first := (h.next - h.n + size) % size
	for i := range out {
		out[i] = h.slots[(first+i)%size]
	}
	return out
}
