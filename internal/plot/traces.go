// Package plot renders ECG signals: overlaid line traces, an
// estimate-versus-truth overlay and a wavelet scalogram.
package plot

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/wcharczuk/go-chart/v2"

	"ptbxl/internal/config"
)

// Format selects the output encoding
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ParseFormat accepts png or svg, case-insensitively
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(s, "."))); f {
	case FormatPNG, FormatSVG:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported plot format %q", s)
	}
}

func (f Format) provider() chart.RendererProvider {
	if f == FormatSVG {
		return chart.SVG
	}
	return chart.PNG
}

const (
	lineWidth = 2
	// 0.6 opacity
	lineAlpha = 153
)

var (
	background = mustColor("#111111")
	foreground = mustColor("#f2f5fa")
	gridColor  = mustColor("#283442")
)

// ErrNoSignals is returned when there is nothing to draw
var ErrNoSignals = errors.New("plot: no signals")

// TraceOptions configures Traces
type TraceOptions struct {
	// Clustering assigns each signal to cluster 0 or 1; nil colours by
	// a Spectral palette instead
	Clustering []int
	Title      string
	Format     Format
	Width      int
	Height     int
}

// Traces draws every signal as a line trace on one figure. With a
// clustering, cluster 0 is pale green and cluster 1 dark red.
func Traces(w io.Writer, signals [][]float64, opts TraceOptions) error {
	if len(signals) == 0 {
		return ErrNoSignals
	}
	if opts.Clustering != nil && len(opts.Clustering) != len(signals) {
		return fmt.Errorf("plot: %d cluster labels for %d signals", len(opts.Clustering), len(signals))
	}
	if opts.Title == "" {
		opts.Title = "Signals"
	}

	var pal []string
	if opts.Clustering != nil {
		pal = []string{PaleGreen, DarkRed}
	} else {
		pal = SpectralPalette(len(signals))
	}

	series := make([]trace, len(signals))
	for i, sig := range signals {
		color := pal[i%len(pal)]
		if opts.Clustering != nil {
			c := opts.Clustering[i]
			if c != 0 && c != 1 {
				return fmt.Errorf("plot: cluster label %d of signal %d is not 0 or 1", c, i)
			}
			color = pal[c]
		}
		series[i] = trace{values: sig, color: color}
	}

	return render(w, opts.Title, series, false, opts.Format, opts.Width, opts.Height)
}

// Signal draws a single vector
func Signal(w io.Writer, vec []float64, title string, format Format) error {
	if title == "" {
		title = "signal"
	}
	return render(w, title, []trace{{values: vec, color: DefaultLine}}, false, format, 0, 0)
}

// Estimate overlays an estimate (dark orchid) on the true signal (pale
// green) with a legend.
func Estimate(w io.Writer, estimate, truth []float64, title string, format Format) error {
	if title == "" {
		title = "estimate xbar"
	}
	return render(w, title, []trace{
		{name: "Estimation", values: estimate, color: DarkOrchid},
		{name: "Signal", values: truth, color: PaleGreen},
	}, true, format, 0, 0)
}

type trace struct {
	name   string
	values []float64
	color  string
}

func render(w io.Writer, title string, traces []trace, legend bool, format Format, width, height int) error {
	if width <= 0 {
		width = config.DefaultPlotWidth
	}
	if height <= 0 {
		height = config.DefaultPlotHeight
	}

	yMin, yMax := math.Inf(1), math.Inf(-1)
	longest := 0
	series := make([]chart.Series, 0, len(traces))
	for i, t := range traces {
		if len(t.values) == 0 {
			return fmt.Errorf("plot: signal %d is empty", i)
		}
		c, err := parseColor(t.color)
		if err != nil {
			return err
		}
		longest = max(longest, len(t.values))
		for _, v := range t.values {
			yMin = math.Min(yMin, v)
			yMax = math.Max(yMax, v)
		}
		series = append(series, chart.ContinuousSeries{
			Name: t.name,
			Style: chart.Style{
				StrokeColor: c.WithAlpha(lineAlpha),
				StrokeWidth: lineWidth,
			},
			XValues: sampleIndex(len(t.values)),
			YValues: t.values,
		})
	}

	axisStyle := chart.Style{FontColor: foreground, StrokeColor: gridColor}
	graph := chart.Chart{
		Title:      title,
		TitleStyle: chart.Style{FontColor: foreground},
		Width:      width,
		Height:     height,
		Background: chart.Style{FillColor: background},
		Canvas:     chart.Style{FillColor: background},
		XAxis:      chart.XAxis{Style: axisStyle},
		YAxis:      chart.YAxis{Style: axisStyle},
		Series:     series,
	}
	// flat or single-sample data has no range of its own
	if yMin == yMax {
		graph.YAxis.Range = &chart.ContinuousRange{Min: yMin - 1, Max: yMax + 1}
	}
	if longest == 1 {
		graph.XAxis.Range = &chart.ContinuousRange{Min: -1, Max: 1}
	}
	if legend {
		graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	}

	if err := graph.Render(format.provider(), w); err != nil {
		return fmt.Errorf("plot: render %q: %w", title, err)
	}
	return nil
}

func sampleIndex(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}
