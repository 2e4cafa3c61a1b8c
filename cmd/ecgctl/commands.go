package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ptbxl/internal/cluster"
	"ptbxl/internal/config"
	"ptbxl/internal/dataprocessing"
	"ptbxl/internal/dsp"
	"ptbxl/internal/exporter"
	"ptbxl/internal/infrastructure"
	"ptbxl/internal/plot"
	"ptbxl/internal/validation"
	"ptbxl/internal/wfdb"
	"ptbxl/pkg/contracts/domain"
)

// app carries what every command needs
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *infrastructure.LoaderMetrics
	paths   *config.Paths
	stdout  io.Writer
	stderr  io.Writer

	// metricsHandler serves the Prometheus registry; nil when disabled
	metricsHandler http.Handler
}

func newApp(cfg *config.Config, logger *slog.Logger, providers *infrastructure.OTelProviders, stdout, stderr io.Writer) *app {
	return &app{
		cfg:            cfg,
		logger:         logger,
		metrics:        providers.Metrics,
		paths:          config.GetPaths(cfg.Output.Dir),
		stdout:         stdout,
		stderr:         stderr,
		metricsHandler: providers.PrometheusHTTP,
	}
}

func (a *app) loaderOptions(ctx context.Context) []dataprocessing.Option {
	return []dataprocessing.Option{
		dataprocessing.WithContext(ctx),
		dataprocessing.WithLogger(a.logger),
		dataprocessing.WithMetrics(a.metrics),
	}
}

func (a *app) loadMeta(ctx context.Context) (*dataprocessing.Meta, error) {
	return dataprocessing.LoadMeta(a.cfg.Dataset.Root, a.loaderOptions(ctx)...)
}

func (a *app) ensureOutput() error {
	return a.paths.EnsureDirectories()
}

// reportTarget returns the name handed to the exporter and the path it
// resolves to. Without an explicit path the file lands in the reports
// directory under its default name.
func (a *app) reportTarget(out, defaultName string) (string, string, error) {
	if out == "" {
		return defaultName, a.paths.GetReportPath(defaultName), nil
	}
	abs, err := filepath.Abs(out)
	if err != nil {
		return "", "", fmt.Errorf("resolve %s: %w", out, err)
	}
	return abs, abs, nil
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}
	return nil
}

// parseIDs reads a comma separated ecg_id list; empty means all
func parseIDs(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%w: invalid ecg_id %q", errUsage, p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseBand reads "low,high" in Hz
func parseBand(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: band must be low,high, got %q", errUsage, s)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid band %q", errUsage, s)
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: invalid band %q", errUsage, s)
	}
	return lo, hi, nil
}

func runCheck(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("check", a.stderr)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	v := validation.NewDatasetValidator(a.logger)
	if err := v.ValidateDatasetRoot(a.cfg.Dataset.Root); err != nil {
		return err
	}
	report, err := v.InspectRecords(a.cfg.Dataset.Root)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "root\t%s\nrecords100\t%d\nrecords500\t%d\nmissing_data\t%d\n",
		report.Root, report.LowRateRecords, report.HighRateRecords, len(report.MissingData))
	for _, ref := range report.MissingData {
		fmt.Fprintf(a.stdout, "missing\t%s\n", ref)
	}
	return nil
}

func runDescribe(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("describe", a.stderr)
	table := fs.String("table", "records", "records | statements | clean | path to a CSV file")
	xlsx := fs.String("xlsx", "", "workbook path (defaults to <out>/tables/description.xlsx); - skips it")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	frame, err := a.describeFrame(ctx, *table)
	if err != nil {
		return err
	}
	d := dataprocessing.Describe(frame)
	if err := d.Print(a.stdout); err != nil {
		return err
	}

	if *xlsx == "-" {
		return nil
	}
	path := *xlsx
	if path == "" {
		if err := a.ensureOutput(); err != nil {
			return err
		}
		path = a.paths.DescriptionXLSX
	}
	if err := exporter.WriteDescriptionWorkbook(path, d); err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "Description saved", slog.String("path", path))
	return nil
}

func (a *app) describeFrame(ctx context.Context, table string) (*dataprocessing.Frame, error) {
	switch table {
	case "records", "statements":
		meta, err := a.loadMeta(ctx)
		if err != nil {
			return nil, err
		}
		if table == "statements" {
			return dataprocessing.FrameFromStatements(meta.Statements), nil
		}
		dataprocessing.AddSuperclass(meta)
		return dataprocessing.FrameFromRecords(meta.Records), nil
	case "clean":
		clean, err := a.cleanTable(ctx)
		if err != nil {
			return nil, err
		}
		return dataprocessing.FrameFromClean(clean), nil
	default:
		return dataprocessing.ReadFrameCSV(table)
	}
}

// cleanTable reads the configured clean file or derives the view from
// the metadata when none is set.
func (a *app) cleanTable(ctx context.Context) (*domain.CleanTable, error) {
	if path := a.cfg.Dataset.CleanFile; path != "" {
		if err := validation.NewDatasetValidator(a.logger).ValidateTableFile(path); err != nil {
			return nil, err
		}
		return dataprocessing.LoadClean(path)
	}
	meta, err := a.loadMeta(ctx)
	if err != nil {
		return nil, err
	}
	dataprocessing.AddSuperclass(meta)
	return dataprocessing.BuildCleanView(meta.Records), nil
}

func runLabels(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("labels", a.stderr)
	level := fs.String("level", "superclass", "superclass | subclass | both")
	out := fs.String("o", "", "output CSV (defaults to <out>/tables/diagnostic_labels.csv)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var levels []dataprocessing.Level
	switch *level {
	case "superclass":
		levels = []dataprocessing.Level{dataprocessing.LevelSuperclass}
	case "subclass":
		levels = []dataprocessing.Level{dataprocessing.LevelSubclass}
	case "both":
		levels = []dataprocessing.Level{dataprocessing.LevelSuperclass, dataprocessing.LevelSubclass}
	default:
		return fmt.Errorf("%w: unknown level %q", errUsage, *level)
	}

	meta, err := a.loadMeta(ctx)
	if err != nil {
		return err
	}
	for _, l := range levels {
		dataprocessing.AddDiagnosticLabels(meta, l)
	}

	if err := a.ensureOutput(); err != nil {
		return err
	}
	name, path, err := a.reportTarget(*out, config.LabelsFileName)
	if err != nil {
		return err
	}
	if err := exporter.NewLabelExporter(a.paths, a.logger).ExportLabels(meta.Records, name); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%d records labelled -> %s\n", meta.Records.Len(), path)
	return nil
}

func runClean(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("clean", a.stderr)
	out := fs.String("o", "", "output CSV (defaults to <out>/tables/clean_dataset.csv)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	meta, err := a.loadMeta(ctx)
	if err != nil {
		return err
	}
	dataprocessing.AddSuperclass(meta)
	clean := dataprocessing.BuildCleanView(meta.Records)

	if err := a.ensureOutput(); err != nil {
		return err
	}
	name, path, err := a.reportTarget(*out, config.CleanFileName)
	if err != nil {
		return err
	}
	if err := exporter.NewLabelExporter(a.paths, a.logger).ExportClean(clean, name); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%d of %d records kept -> %s\n", clean.Len(), meta.Records.Len(), path)
	return nil
}

// selection is the shared signal selection of load, plot and cluster
type selection struct {
	ids     string
	perDiag int
	lead    int
	band    string
}

func addSelectionFlags(fs *flag.FlagSet) *selection {
	sel := &selection{}
	fs.StringVar(&sel.ids, "ids", "", "comma separated ecg_id list; empty loads every record")
	fs.IntVar(&sel.perDiag, "per-diag", 0, "load n high-rate signals per diagnostic class from the clean view instead")
	fs.IntVar(&sel.lead, "lead", 0, "lead (channel) index used for plotting and clustering")
	fs.StringVar(&sel.band, "bandpass", "", "optional band-pass filter low,high in Hz")
	return sel
}

// loaded is a selection's result with one label per signal
type loaded struct {
	signals []domain.Signal
	labels  []string
	rate    int
}

func (a *app) loadSelection(ctx context.Context, sel *selection) (*loaded, error) {
	if sel.perDiag > 0 {
		clean, err := a.cleanTable(ctx)
		if err != nil {
			return nil, err
		}
		patients := dataprocessing.PatientsByDiag(clean, sel.perDiag)
		signals, got, err := dataprocessing.LoadECGFromClean(clean, a.cfg.Dataset.Root, patients, a.loaderOptions(ctx)...)
		if err != nil {
			return nil, err
		}
		labels := make([]string, len(got))
		for i, p := range got {
			labels[i] = strconv.FormatFloat(p, 'f', -1, 64)
		}
		return &loaded{signals: signals, labels: labels, rate: config.HighSamplingRate}, nil
	}

	ids, err := parseIDs(sel.ids)
	if err != nil {
		return nil, err
	}
	meta, err := a.loadMeta(ctx)
	if err != nil {
		return nil, err
	}
	rate := a.cfg.Dataset.SamplingRate
	signals, err := dataprocessing.LoadECG(meta.Records, a.cfg.Dataset.Root, rate, ids, a.loaderOptions(ctx)...)
	if err != nil {
		return nil, err
	}

	labels := make([]string, len(signals))
	if len(ids) == 0 {
		for i, rec := range meta.Records.Records {
			labels[i] = strconv.Itoa(rec.ECGID)
		}
	} else {
		for i, id := range ids {
			labels[i] = strconv.Itoa(id)
		}
	}
	if rate != config.LowSamplingRate {
		rate = config.HighSamplingRate
	}
	return &loaded{signals: signals, labels: labels, rate: rate}, nil
}

// leads extracts one lead of every signal, band-pass filtered when asked
func (l *loaded) leads(sel *selection) ([][]float64, error) {
	out := make([][]float64, len(l.signals))
	for i, sig := range l.signals {
		if sel.lead < 0 || sel.lead >= sig.Channels {
			return nil, fmt.Errorf("%w: lead %d out of range for %d channels", errUsage, sel.lead, sig.Channels)
		}
		out[i] = sig.Channel(sel.lead)
	}

	if sel.band == "" {
		return out, nil
	}
	lo, hi, err := parseBand(sel.band)
	if err != nil {
		return nil, err
	}
	for i, v := range out {
		filtered, err := dsp.BandPass(v, float64(l.rate), lo, hi)
		if err != nil {
			return nil, err
		}
		out[i] = filtered
	}
	return out, nil
}

func runLoad(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("load", a.stderr)
	sel := addSelectionFlags(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	l, err := a.loadSelection(ctx, sel)
	if err != nil {
		return err
	}
	for i, sig := range l.signals {
		samples, channels := sig.Shape()
		fmt.Fprintf(a.stdout, "%s\t%d x %d\n", l.labels[i], samples, channels)
	}
	fmt.Fprintf(a.stdout, "%d signals\n", len(l.signals))
	return nil
}

func (a *app) plotFormat() (plot.Format, error) {
	return plot.ParseFormat(a.cfg.Output.PlotFormat)
}

// createPlot opens the figure file, defaulting to <out>/figures/<name>.<format>
func (a *app) createPlot(out, name string, format plot.Format) (*os.File, string, error) {
	if err := a.ensureOutput(); err != nil {
		return nil, "", err
	}
	path := out
	if path == "" {
		path = a.paths.GetPlotPath(name + "." + string(format))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, "", fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, path, nil
}

func runPlot(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("plot", a.stderr)
	sel := addSelectionFlags(fs)
	clustered := fs.Bool("cluster", false, "colour traces by a two-medoid DTW clustering")
	window := fs.Int("window", 0, "DTW Sakoe-Chiba window for -cluster; 0 is unconstrained")
	title := fs.String("title", "", "figure title")
	out := fs.String("o", "", "output file (defaults to <out>/figures/signals.<format>)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	format, err := a.plotFormat()
	if err != nil {
		return err
	}
	l, err := a.loadSelection(ctx, sel)
	if err != nil {
		return err
	}
	vectors, err := l.leads(sel)
	if err != nil {
		return err
	}

	opts := plot.TraceOptions{
		Title:  *title,
		Format: format,
		Width:  a.cfg.Output.Width,
		Height: a.cfg.Output.Height,
	}
	if *clustered {
		res, err := cluster.TwoMedoids(ctx, vectors, cluster.Options{Window: *window, Logger: a.logger})
		if err != nil {
			return err
		}
		opts.Clustering = res.Assignments
	}

	f, path, err := a.createPlot(*out, "signals", format)
	if err != nil {
		return err
	}
	if err := plot.Traces(f, vectors, opts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%d traces -> %s\n", len(vectors), path)
	return nil
}

func runScalogram(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("scalogram", a.stderr)
	id := fs.Int("id", 0, "ecg_id of the record")
	lead := fs.Int("lead", 0, "lead (channel) index")
	minScale := fs.Float64("min-scale", 1, "smallest wavelet scale")
	maxScale := fs.Float64("max-scale", 128, "largest wavelet scale")
	nScales := fs.Int("scales", 64, "number of scales")
	out := fs.String("o", "", "output file (defaults to <out>/figures/scalogram_<id>.<format>)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *id <= 0 {
		return fmt.Errorf("%w: -id is required", errUsage)
	}

	format, err := a.plotFormat()
	if err != nil {
		return err
	}
	sel := &selection{ids: strconv.Itoa(*id), lead: *lead}
	l, err := a.loadSelection(ctx, sel)
	if err != nil {
		return err
	}
	vectors, err := l.leads(sel)
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		if err := a.ensureOutput(); err != nil {
			return err
		}
		path = a.paths.GetPlotPath(fmt.Sprintf("scalogram_%d.%s", *id, format))
	}

	opts := plot.DefaultScalogramOptions()
	opts.Fs = float64(l.rate)
	opts.Title = fmt.Sprintf("Scalogram of ecg_id %d lead %d", *id, *lead)
	scales := dsp.Linspace(*minScale, *maxScale, *nScales)
	if err := plot.SaveScalogram(path, vectors[0], scales, opts); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "scalogram -> %s\n", path)
	return nil
}

func runCluster(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("cluster", a.stderr)
	sel := addSelectionFlags(fs)
	window := fs.Int("window", 0, "DTW Sakoe-Chiba window; 0 is unconstrained")
	workers := fs.Int("workers", 0, "concurrent distance rows; 0 uses GOMAXPROCS")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	l, err := a.loadSelection(ctx, sel)
	if err != nil {
		return err
	}
	vectors, err := l.leads(sel)
	if err != nil {
		return err
	}

	res, err := cluster.TwoMedoids(ctx, vectors, cluster.Options{
		Window:  *window,
		Workers: *workers,
		Logger:  a.logger,
	})
	if err != nil {
		return err
	}

	for i, c := range res.Assignments {
		fmt.Fprintf(a.stdout, "%s\t%d\n", l.labels[i], c)
	}
	sizes := res.Sizes()
	fmt.Fprintf(a.stdout, "medoids\t%s %s\nsizes\t%d %d\ncost\t%g\n",
		l.labels[res.Medoids[0]], l.labels[res.Medoids[1]], sizes[0], sizes[1], res.Cost)
	return nil
}

func runExportWFDB(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("export-wfdb", a.stderr)
	id := fs.Int("id", 0, "ecg_id of the record")
	out := fs.String("o", "", "output base path without extension (defaults to <out>/wfdb/<id>)")
	gain := fs.Float64("gain", 1000, "ADC gain written to the header")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *id <= 0 {
		return fmt.Errorf("%w: -id is required", errUsage)
	}

	meta, err := a.loadMeta(ctx)
	if err != nil {
		return err
	}
	rec, ok := meta.Records.ByID(*id)
	if !ok {
		return fmt.Errorf("ecg_id %d not in metadata", *id)
	}
	source := config.NewDatasetPaths(a.cfg.Dataset.Root).RecordPath(rec.Filename(a.cfg.Dataset.SamplingRate))
	sig, header, err := wfdb.ReadRecord(source)
	if err != nil {
		return err
	}

	base := *out
	if base == "" {
		base = filepath.Join(a.paths.OutputDir, "wfdb", strconv.Itoa(*id))
	}
	opts := wfdb.WriteOptions{Frequency: header.Frequency, Gain: *gain}
	for _, s := range header.Signals {
		opts.Leads = append(opts.Leads, s.Description)
	}
	if err := wfdb.WriteRecord(base, sig, opts); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "ecg_id %d -> %s.hea\n", *id, base)
	return nil
}
