package integration

import (
	"bytes"
	"context"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/chartz"
	chartzhttp "github.com/zoobzio/chartz/pkg/http"
	"github.com/zoobzio/chartz/pkg/raster"
)

func TestHTTPSource_RasterPipeline(t *testing.T) {
	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if failing.Load() {
			http.Error(w, "maintenance", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"labels":["web","db","cache"],"datasets":[{"label":"load","data":[5,3,2]}]}`))
	}))
	defer srv.Close()

	fetcher := chartzhttp.New().BaseURL(srv.URL).Retry(0, 0, 0)
	src := chartz.NewSource[chartz.ChartData]("/api/stats", fetcher).AutoStart(false)
	defer src.Close()

	canvas := chartz.NewCanvas()
	themes := chartz.NewThemeProvider(chartz.ThemeDark)
	p := chartz.NewPipeline(raster.New().Size(300, 200), canvas, themes)
	defer p.Dispose()

	ctx := context.Background()
	if err := p.Replace(ctx, chartz.Config{Source: src, StartAngle: 45, ShowPercentages: true}); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := src.Poll(ctx); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}

	frame, ok := canvas.Content()
	if !ok || frame.ContentType != raster.ContentType {
		t.Fatalf("expected a PNG frame, got %q", frame.ContentType)
	}
	img, err := png.Decode(bytes.NewReader(frame.Body))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 300 || b.Dy() != 200 {
		t.Errorf("expected 300x200, got %v", b)
	}

	failing.Store(true)
	if err := src.Poll(ctx); err == nil {
		t.Fatal("expected status error")
	}
	pr := p.Presentation()
	if pr.Err == nil {
		t.Fatal("expected error forwarded to presentation")
	}
	if !pr.Rendered {
		t.Error("expected previous chart to stay rendered")
	}
	if p.Renders() != 1 {
		t.Errorf("expected no re-render on failure, got %d renders", p.Renders())
	}

	failing.Store(false)
	pr.Refresh()
	if !waitFor(t, 2*time.Second, func() bool { return p.Presentation().Err == nil }) {
		t.Error("expected refresh to clear the error")
	}
}
