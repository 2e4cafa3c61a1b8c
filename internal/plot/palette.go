package plot

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Named colours used by the figures
const (
	PaleGreen  = "#98fb98"
	DarkRed    = "#8b0000"
	DarkOrchid = "#9932cc"
	// DefaultLine is the first colour of the default qualitative sequence
	DefaultLine = "#636efa"
)

// spectralAnchors is the 11-class ColorBrewer Spectral scheme
var spectralAnchors = []string{
	"#9e0142", "#d53e4f", "#f46d43", "#fdae61", "#fee08b", "#ffffbf",
	"#e6f598", "#abdda4", "#66c2a5", "#3288bd", "#5e4fa2",
}

// SpectralPalette returns n hex colours sampled along the Spectral
// colormap, excluding both extremes.
func SpectralPalette(n int) []string {
	if n <= 0 {
		return nil
	}

	anchors := make([]drawing.Color, len(spectralAnchors))
	for i, h := range spectralAnchors {
		anchors[i] = mustColor(h)
	}

	out := make([]string, n)
	for i := range out {
		pos := float64(i+1) / float64(n+1) * float64(len(anchors)-1)
		lo := int(math.Floor(pos))
		if lo >= len(anchors)-1 {
			lo = len(anchors) - 2
		}
		frac := pos - float64(lo)
		out[i] = toHex(lerp(anchors[lo], anchors[lo+1], frac))
	}
	return out
}

func lerp(a, b drawing.Color, t float64) drawing.Color {
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return drawing.Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

func toHex(c drawing.Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// parseColor reads #rrggbb
func parseColor(hex string) (drawing.Color, error) {
	h := strings.TrimPrefix(hex, "#")
	if len(h) != 6 {
		return drawing.Color{}, fmt.Errorf("invalid colour %q", hex)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return drawing.Color{}, fmt.Errorf("invalid colour %q: %w", hex, err)
	}
	return drawing.Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

func mustColor(hex string) drawing.Color {
	c, err := parseColor(hex)
	if err != nil {
		panic(err)
	}
	return c
}
