package chartz

// PaletteSize is the number of distinct category colors.
const PaletteSize = 7

// Palette is the set of colors a theme resolves to. Category colors cycle:
// index PaletteSize reuses index 0.
type Palette struct {
	Theme        Theme
	FillColors   [PaletteSize]string
	BorderColors [PaletteSize]string

	Text              string
	Grid              string
	TooltipBackground string
	TooltipTitle      string
	TooltipBody       string
	TooltipBorder     string
}

// blue, green, orange, purple, pink, amber, cyan
var paletteRGB = [PaletteSize]string{
	"59, 130, 246",
	"16, 185, 129",
	"249, 115, 22",
	"139, 92, 246",
	"236, 72, 153",
	"245, 158, 11",
	"6, 182, 212",
}

var (
	lightPalette = buildPalette(ThemeLight, "0.6", Palette{
		Text:              "#374151",
		Grid:              "rgba(0, 0, 0, 0.1)",
		TooltipBackground: "rgba(255, 255, 255, 0.8)",
		TooltipTitle:      "#111827",
		TooltipBody:       "#374151",
		TooltipBorder:     "#e5e7eb",
	})

	darkPalette = buildPalette(ThemeDark, "0.8", Palette{
		Text:              "#e5e7eb",
		Grid:              "rgba(255, 255, 255, 0.1)",
		TooltipBackground: "rgba(30, 41, 59, 0.8)",
		TooltipTitle:      "#e5e7eb",
		TooltipBody:       "#d1d5db",
		TooltipBorder:     "#4b5563",
	})
)

func buildPalette(theme Theme, fillAlpha string, p Palette) Palette {
	p.Theme = theme
	for i, rgb := range paletteRGB {
		p.FillColors[i] = "rgba(" + rgb + ", " + fillAlpha + ")"
		p.BorderColors[i] = "rgba(" + rgb + ", 1)"
	}
	return p
}

// ResolvePalette returns the palette for theme. Unknown themes resolve to
// the light palette.
func ResolvePalette(theme Theme) Palette {
	if theme.Dark() {
		return darkPalette
	}
	return lightPalette
}

// Fill returns the fill color for category i.
func (p Palette) Fill(i int) string {
	return p.FillColors[cycle(i)]
}

// Border returns the border color for category i.
func (p Palette) Border(i int) string {
	return p.BorderColors[cycle(i)]
}

// Fills returns fill colors for n categories.
func (p Palette) Fills(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = p.Fill(i)
	}
	return out
}

// Borders returns border colors for n categories.
func (p Palette) Borders(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = p.Border(i)
	}
	return out
}

func cycle(i int) int {
	i %= PaletteSize
	if i < 0 {
		i += PaletteSize
	}
	return i
}
