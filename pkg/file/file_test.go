package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	f := New("/srv/charts")
	if f.root != "/srv/charts" {
		t.Errorf("expected root '/srv/charts', got %q", f.root)
	}
	if got := f.Path("file://cpu.json"); got != "/srv/charts/cpu.json" {
		t.Errorf("unexpected path %q", got)
	}
	if got := f.Path("/abs/cpu.json"); got != "/abs/cpu.json" {
		t.Errorf("absolute paths should not be rebased, got %q", got)
	}
}

func TestFetcher_Fetch(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`{"labels":["a"],"datasets":[{"data":[1]}]}`)
	if err := os.WriteFile(filepath.Join(dir, "chart.json"), content, 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	data, err := New(dir).Fetch(context.Background(), "chart.json")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(data) != string(content) {
		t.Errorf("expected %q, got %q", content, data)
	}
}

func TestFetcher_Fetch_Nonexistent(t *testing.T) {
	if _, err := New("").Fetch(context.Background(), "/nonexistent/chart.json"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestFetcher_Fetch_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New("").Fetch(ctx, "whatever"); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestTrigger_Watch_NonexistentFile(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := NewTrigger("/nonexistent/path/chart.json").Watch(ctx); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestTrigger_Watch_ClosesOnContextCancel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chart.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := NewTrigger(path).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to close after context cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel to close")
	}
}

func TestTrigger_Watch_SignalsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chart.json")
	if err := os.WriteFile(path, []byte(`{"v": 1}`), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ch, err := NewTrigger(path).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	if err := os.WriteFile(path, []byte(`{"v": 2}`), 0o600); err != nil {
		t.Fatalf("failed to update file: %v", err)
	}

	select {
	case <-ch:
	case <-ctx.Done():
		t.Fatal("timeout waiting for file change signal")
	}
}
