package raster

import (
	"strconv"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// parseColor converts the CSS color forms used by chartz palettes:
// "#rgb", "#rrggbb", "rgb(r, g, b)", "rgba(r, g, b, a)" and "transparent".
// Anything else yields transparent.
func parseColor(s string) drawing.Color {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case s == "" || s == "transparent":
		return drawing.ColorTransparent
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgba(") || strings.HasPrefix(s, "rgb("):
		return parseFunc(s)
	default:
		return drawing.ColorTransparent
	}
}

func parseHex(hex string) drawing.Color {
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return drawing.ColorTransparent
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return drawing.ColorTransparent
	}
	return drawing.Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

func parseFunc(s string) drawing.Color {
	open, end := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')')
	if open < 0 || end < open {
		return drawing.ColorTransparent
	}
	parts := strings.Split(s[open+1:end], ",")
	if len(parts) != 3 && len(parts) != 4 {
		return drawing.ColorTransparent
	}

	var rgb [3]uint8
	for i := range rgb {
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return drawing.ColorTransparent
		}
		rgb[i] = uint8(min(max(v, 0), 255)) //nolint:gosec // clamped
	}

	alpha := uint8(255)
	if len(parts) == 4 {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return drawing.ColorTransparent
		}
		alpha = uint8(min(max(a, 0), 1)*255 + 0.5)
	}
	return drawing.Color{R: rgb[0], G: rgb[1], B: rgb[2], A: alpha}
}
