package raster

import (
	"bytes"
	"context"
	"image/png"
	"strings"
	"testing"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/zoobzio/chartz"
)

func testSpec(theme chartz.Theme) chartz.Spec {
	palette := chartz.ResolvePalette(theme)
	data := chartz.ChartData{
		Labels:   []string{"alpha", "beta", "gamma", "delta"},
		Datasets: []chartz.Dataset{{Label: "share", Data: []float64{10, 20, 30, 40}}},
	}
	opts := chartz.Baseline(palette, 45, true)
	opts.Plugins.Title = &chartz.Title{Text: "Categories"}
	return chartz.Spec{
		ID:      "test",
		Type:    chartz.ChartTypePolarArea,
		Data:    chartz.Colorize(data, palette),
		Options: opts,
		Theme:   theme,
		Palette: palette,
	}
}

func TestEngine_Create(t *testing.T) {
	canvas := chartz.NewCanvas()
	inst, err := New().Size(320, 240).Create(context.Background(), canvas, testSpec(chartz.ThemeLight))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !strings.HasPrefix(inst.ID(), "raster-") {
		t.Errorf("unexpected instance id %q", inst.ID())
	}

	frame, ok := canvas.Content()
	if !ok || frame.ContentType != ContentType {
		t.Fatalf("expected a png frame, got %+v", frame.ContentType)
	}
	img, err := png.Decode(bytes.NewReader(frame.Body))
	if err != nil {
		t.Fatalf("frame is not a valid png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 240 {
		t.Errorf("unexpected image size %v", b)
	}
}

func TestEngine_Create_DarkBackground(t *testing.T) {
	canvas := chartz.NewCanvas()
	if _, err := New().Size(200, 200).Create(context.Background(), canvas, testSpec(chartz.ThemeDark)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	frame, _ := canvas.Content()
	img, err := png.Decode(bytes.NewReader(frame.Body))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	r, g, b, _ := img.At(1, 199).RGBA()
	if r>>8 > 40 || g>>8 > 40 || b>>8 > 60 {
		t.Errorf("expected a dark corner pixel, got %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

func TestEngine_Create_EmptyData(t *testing.T) {
	spec := testSpec(chartz.ThemeLight)
	spec.Data = chartz.ChartData{}
	if _, err := New().Create(context.Background(), chartz.NewCanvas(), spec); err != nil {
		t.Fatalf("Create failed on empty data: %v", err)
	}
}

func TestEngine_Destroy(t *testing.T) {
	canvas := chartz.NewCanvas()
	inst, err := New().Create(context.Background(), canvas, testSpec(chartz.ThemeLight))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	inst.Destroy()
	if _, ok := canvas.Content(); ok {
		t.Error("expected surface cleared on destroy")
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want drawing.Color
	}{
		{"#374151", drawing.Color{R: 0x37, G: 0x41, B: 0x51, A: 255}},
		{"#fff", drawing.Color{R: 255, G: 255, B: 255, A: 255}},
		{"rgba(59, 130, 246, 0.6)", drawing.Color{R: 59, G: 130, B: 246, A: 153}},
		{"rgba(6, 182, 212, 1)", drawing.Color{R: 6, G: 182, B: 212, A: 255}},
		{"rgb(1, 2, 3)", drawing.Color{R: 1, G: 2, B: 3, A: 255}},
		{"transparent", drawing.ColorTransparent},
		{"", drawing.ColorTransparent},
		{"hotpink", drawing.ColorTransparent},
		{"rgba(1, 2)", drawing.ColorTransparent},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseColor(tt.in); got != tt.want {
				t.Errorf("parseColor(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}
