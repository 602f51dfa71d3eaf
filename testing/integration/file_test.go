package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zoobzio/chartz"
	"github.com/zoobzio/chartz/pkg/echarts"
	"github.com/zoobzio/chartz/pkg/file"
)

func writeJSON(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestFileSource_RerendersOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chart.json")
	writeJSON(t, path, `{"labels":["alpha","beta"],"datasets":[{"label":"v1","data":[1,2]}]}`)

	src := chartz.NewSource[chartz.ChartData]("file://"+path, file.New("")).
		Trigger(file.NewTrigger(path))
	defer src.Close()

	canvas := chartz.NewCanvas()
	p := chartz.NewPipeline(echarts.New(), canvas, nil).Name("file-chart")
	defer p.Dispose()

	ctx := context.Background()
	if err := p.Replace(ctx, chartz.Config{Source: src, ShowPercentages: true}); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if !waitFor(t, 2*time.Second, func() bool { return p.Renders() == 1 }) {
		t.Fatal("expected initial render")
	}
	frame, _ := canvas.Content()
	if !strings.Contains(string(frame.Body), "alpha") {
		t.Error("expected rendered document to contain the first label")
	}

	writeJSON(t, path, `{"labels":["gamma","delta"],"datasets":[{"label":"v2","data":[3,4]}]}`)

	if !waitFor(t, 2*time.Second, func() bool { return p.Renders() >= 2 }) {
		t.Fatal("expected re-render after file write")
	}
	if !waitFor(t, 2*time.Second, func() bool {
		frame, ok := canvas.Content()
		return ok && strings.Contains(string(frame.Body), "gamma")
	}) {
		t.Error("expected rendered document to contain the new label")
	}
}

func TestFileSource_MalformedKeepsPreviousChart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chart.json")
	writeJSON(t, path, `{"labels":["a"],"datasets":[{"data":[1]}]}`)

	src := chartz.NewSource[chartz.ChartData]("file://"+path, file.New("")).AutoStart(false)
	defer src.Close()

	p := chartz.NewPipeline(echarts.New(), nil, nil)
	defer p.Dispose()

	ctx := context.Background()
	if err := p.Replace(ctx, chartz.Config{Source: src}); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := src.Poll(ctx); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	first := p.Instance()
	if first == nil {
		t.Fatal("expected a live instance")
	}

	writeJSON(t, path, `{not json`)
	if err := src.Poll(ctx); err == nil {
		t.Fatal("expected decode failure")
	}

	pr := p.Presentation()
	if pr.Err == nil || pr.Loading {
		t.Errorf("expected error to be forwarded, got %+v", pr)
	}
	if p.Instance() != first {
		t.Error("expected previous chart to stay live after a failed fetch")
	}
	if src.State() != chartz.StateDegraded {
		t.Errorf("expected degraded, got %s", src.State())
	}
}
