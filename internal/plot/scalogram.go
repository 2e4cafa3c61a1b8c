package plot

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	gonumplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"ptbxl/internal/dsp"
)

// DefaultScalogramRate is the sampling rate assumed when none is given
const DefaultScalogramRate = 500

// ScalogramOptions configures Scalogram
type ScalogramOptions struct {
	// Fs is the sampling rate in Hz
	Fs float64
	// Levels bound the displayed power; values are taken in log2 and
	// anything outside the first/last level is drawn in the end colours
	Levels  []float64
	Title   string
	Wavelet dsp.Morlet
	Format  Format
	Width   vg.Length
	Height  vg.Length
}

// DefaultScalogramOptions uses cmor1.0-1.0 at
// 500 Hz with 40 levels between 0.1 and 3.
func DefaultScalogramOptions() ScalogramOptions {
	return ScalogramOptions{
		Fs:      DefaultScalogramRate,
		Levels:  dsp.Linspace(0.1, 3, 40),
		Title:   "Scalogram of signal",
		Wavelet: dsp.DefaultMorlet(),
		Format:  FormatPNG,
		Width:   6 * vg.Inch,
		Height:  5 * vg.Inch,
	}
}

func (o ScalogramOptions) withDefaults() ScalogramOptions {
	d := DefaultScalogramOptions()
	if o.Fs <= 0 {
		o.Fs = d.Fs
	}
	if len(o.Levels) < 2 {
		o.Levels = d.Levels
	}
	if o.Title == "" {
		o.Title = d.Title
	}
	if o.Wavelet == (dsp.Morlet{}) {
		o.Wavelet = d.Wavelet
	}
	if o.Format == "" {
		o.Format = d.Format
	}
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	return o
}

// Scalogram renders the log2 wavelet power of sig against time and log2
// period. The period axis is inverted so short periods sit on top.
func Scalogram(w io.Writer, sig []float64, scales []float64, opts ScalogramOptions) error {
	p, opts, err := scalogramPlot(sig, scales, opts)
	if err != nil {
		return err
	}

	wt, err := p.WriterTo(opts.Width, opts.Height, string(opts.Format))
	if err != nil {
		return fmt.Errorf("plot: scalogram writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("plot: write scalogram: %w", err)
	}
	return nil
}

// SaveScalogram renders to path, choosing the format from its extension
func SaveScalogram(path string, sig []float64, scales []float64, opts ScalogramOptions) error {
	format, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return err
	}
	opts.Format = format

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Scalogram(f, sig, scales, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func scalogramPlot(sig []float64, scales []float64, opts ScalogramOptions) (*gonumplot.Plot, ScalogramOptions, error) {
	opts = opts.withDefaults()

	if len(sig) < 2 {
		return nil, opts, fmt.Errorf("plot: scalogram needs at least 2 samples, got %d", len(sig))
	}
	sorted := uniqueSorted(scales)
	if len(sorted) < 2 {
		return nil, opts, fmt.Errorf("plot: scalogram needs at least 2 distinct scales, got %d", len(sorted))
	}

	dt := 1 / opts.Fs
	res, err := dsp.CWT(sig, sorted, dt, opts.Wavelet)
	if err != nil {
		return nil, opts, fmt.Errorf("plot: scalogram: %w", err)
	}

	grid := newPowerGrid(res, dt)
	levels := opts.Levels
	pal := palette.Heat(len(levels), 1)
	colors := pal.Colors()

	hm := plotter.NewHeatMap(grid, pal)
	hm.Min = math.Log2(levels[0])
	hm.Max = math.Log2(levels[len(levels)-1])
	hm.Underflow = colors[0]
	hm.Overflow = colors[len(colors)-1]
	hm.NaN = color.Transparent

	p := gonumplot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Log period (s)"
	p.Add(hm)

	periods := res.Periods()
	p.Y.Scale = gonumplot.InvertedScale{Normalizer: gonumplot.LinearScale{}}
	p.Y.Tick.Marker = gonumplot.ConstantTicks(periodTicks(periods[0], periods[len(periods)-1]))

	return p, opts, nil
}

func uniqueSorted(v []float64) []float64 {
	out := append([]float64(nil), v...)
	sort.Float64s(out)
	k := 0
	for i, x := range out {
		if i == 0 || x != out[k-1] {
			out[k] = x
			k++
		}
	}
	return out[:k]
}

// periodTicks places ticks at the powers of two from ceil(log2(min)) up
// to, but excluding, ceil(log2(max)), labelled with the period itself.
func periodTicks(minPeriod, maxPeriod float64) []gonumplot.Tick {
	lo := math.Ceil(math.Log2(minPeriod))
	hi := math.Ceil(math.Log2(maxPeriod))

	var ticks []gonumplot.Tick
	for e := lo; e < hi; e++ {
		ticks = append(ticks, gonumplot.Tick{
			Value: e,
			Label: strconv.FormatFloat(math.Pow(2, e), 'g', -1, 64),
		})
	}
	return ticks
}

// powerGrid exposes log2 power as a GridXYZ: columns are time samples,
// rows are scales in increasing period order.
type powerGrid struct {
	power [][]float64
	logT  []float64
	dt    float64
}

func newPowerGrid(res *dsp.CWTResult, dt float64) *powerGrid {
	power := res.Power()
	for _, row := range power {
		for j, v := range row {
			row[j] = math.Log2(v)
		}
	}
	periods := res.Periods()
	logT := make([]float64, len(periods))
	for i, t := range periods {
		logT[i] = math.Log2(t)
	}
	return &powerGrid{power: power, logT: logT, dt: dt}
}

func (g *powerGrid) Dims() (c, r int) {
	return len(g.power[0]), len(g.power)
}

func (g *powerGrid) Z(c, r int) float64 {
	return g.power[r][c]
}

func (g *powerGrid) X(c int) float64 {
	return float64(c) * g.dt
}

func (g *powerGrid) Y(r int) float64 {
	return g.logT[r]
}
