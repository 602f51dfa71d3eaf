package chartz

import (
	"errors"
	"fmt"
	"testing"
)

func failure(msg string) *FetchError {
	return &FetchError{Endpoint: "test", Err: errors.New(msg)}
}

func TestFetchHistory_NilSafe(t *testing.T) {
	var h *fetchHistory

	h.record(failure("x"))
	h.reset()

	if h.list() != nil {
		t.Error("expected nil from nil history")
	}
}

func TestFetchHistory_DisabledForNonPositiveSize(t *testing.T) {
	if newFetchHistory(0) != nil {
		t.Error("expected nil history for size 0")
	}
	if newFetchHistory(-3) != nil {
		t.Error("expected nil history for negative size")
	}
}

func TestFetchHistory_WrapsOldestFirst(t *testing.T) {
	h := newFetchHistory(3)
	for i := 1; i <= 5; i++ {
		h.record(failure(fmt.Sprintf("e%d", i)))
	}

	got := h.list()
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	for i, want := range []string{"e3", "e4", "e5"} {
		var fe *FetchError
		if !errors.As(got[i], &fe) || fe.Err.Error() != want {
			t.Errorf("entry %d: expected %s, got %v", i, want, got[i])
		}
	}
}

func TestFetchHistory_Reset(t *testing.T) {
	h := newFetchHistory(2)
	h.record(failure("a"))
	h.reset()

	if h.list() != nil {
		t.Error("expected empty history after reset")
	}

	h.record(failure("b"))
	if n := len(h.list()); n != 1 {
		t.Errorf("expected 1 entry after reset and record, got %d", n)
	}
}
