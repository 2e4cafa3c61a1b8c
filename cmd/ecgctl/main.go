// Command ecgctl drives the PTB-XL toolkit from the command line: dataset
// checks, label and clean-view exports, descriptions, signal loading,
// plotting and clustering.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"ptbxl/internal/config"
	"ptbxl/internal/infrastructure"
	"ptbxl/pkg/contracts"
)

const usage = `usage: ecgctl [global flags] <command> [flags]

commands:
  check        validate the dataset tree and count WFDB records
  describe     print and save a descriptive report of a table
  labels       aggregate diagnostic labels and export them as CSV
  clean        export the single-label clean view as CSV
  load         load waveforms and print their shapes
  plot         draw signal traces, optionally clustered
  scalogram    draw the wavelet scalogram of one lead
  cluster      split signals into two clusters by DTW distance
  export-wfdb  copy one record out as a WFDB record
  pipeline     run check, labels, clean and describe in one go
  serve        run the HTTP status server with a websocket progress feed

global flags:
`

// errUsage signals a command line problem; main exits with status 2
var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			if err != errUsage {
				fmt.Fprintln(os.Stderr, "ecgctl:", err)
			}
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "ecgctl:", err)
		os.Exit(1)
	}
}

// globalFlags override the loaded configuration
type globalFlags struct {
	configFile  string
	root        string
	outDir      string
	rate        int
	format      string
	logLevel    string
	metricsAddr string
	version     bool
}

func parseGlobal(args []string, stderr io.Writer) (*globalFlags, []string, error) {
	g := &globalFlags{}
	fs := flag.NewFlagSet("ecgctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&g.configFile, "config", "", "YAML config file (defaults to ptbxl.yaml or $PTBXL_CONFIG_FILE)")
	fs.StringVar(&g.root, "root", "", "dataset root containing raw_data/")
	fs.StringVar(&g.outDir, "out", "", "output directory for tables and figures")
	fs.IntVar(&g.rate, "rate", 0, "sampling rate: 100 for filename_lr, anything else for filename_hr")
	fs.StringVar(&g.format, "format", "", "figure format: png | svg")
	fs.StringVar(&g.logLevel, "log-level", "", "debug | info | warn | error")
	fs.StringVar(&g.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the command runs")
	fs.BoolVar(&g.version, "version", false, "print version information and exit")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, errUsage
	}
	if g.version {
		return g, nil, nil
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return nil, nil, errUsage
	}
	return g, fs.Args(), nil
}

func (g *globalFlags) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if g.configFile != "" {
		cfg, err = config.LoadFrom(g.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if g.root != "" {
		cfg.Dataset.Root = g.root
	}
	if g.outDir != "" {
		cfg.Output.Dir = g.outDir
	}
	if g.rate != 0 {
		cfg.Dataset.SamplingRate = g.rate
	}
	if g.format != "" {
		cfg.Output.PlotFormat = g.format
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	if g.metricsAddr != "" {
		cfg.Telemetry.MetricsAddr = g.metricsAddr
	}
	return cfg, nil
}

// command runs one subcommand against an initialised app
type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"check":       runCheck,
	"describe":    runDescribe,
	"labels":      runLabels,
	"clean":       runClean,
	"load":        runLoad,
	"plot":        runPlot,
	"scalogram":   runScalogram,
	"cluster":     runCluster,
	"export-wfdb": runExportWFDB,
	"pipeline":    runPipeline,
	"serve":       runServe,
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	g, rest, err := parseGlobal(args, stderr)
	if err != nil {
		return err
	}
	if g.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return nil
	}
	name, cmdArgs := rest[0], rest[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q (want one of %s)\n", name, strings.Join(commandNames(), ", "))
		return errUsage
	}

	cfg, err := g.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.Logging, stderr)
	if err != nil {
		return err
	}

	ctx = infrastructure.ContextWithRunID(ctx)
	logger.InfoContext(ctx, "Starting ecgctl",
		slog.String("command", name),
		slog.String("dataset_root", cfg.Dataset.Root),
		slog.String("output_dir", cfg.Output.Dir),
		slog.Int("sampling_rate", cfg.Dataset.SamplingRate))

	otelCfg := infrastructure.OTelConfigFrom(cfg.Telemetry)
	otelCfg.TraceWriter = stderr
	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	if addr := cfg.Telemetry.MetricsAddr; addr != "" && providers.PrometheusHTTP != nil {
		stopMetrics := serveMetrics(addr, providers.PrometheusHTTP, logger)
		defer stopMetrics()
	}

	a := newApp(cfg, logger, providers, stdout, stderr)
	ctx, span := infrastructure.StartSpan(ctx, "ecgctl."+name)
	defer span.End()

	start := time.Now()
	if err := cmd(ctx, a, cmdArgs); err != nil {
		infrastructure.RecordError(ctx, err)
		if !errors.Is(err, errUsage) {
			logger.ErrorContext(ctx, "Command failed",
				slog.String("command", name),
				slog.String("error", err.Error()))
		}
		return err
	}

	logger.InfoContext(ctx, "Command completed",
		slog.String("command", name),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// newLogger keeps console logging on stderr so stdout carries only command
// output; file logging goes through the process-wide logger.
func newLogger(cfg config.LoggingConfig, stderr io.Writer) (*slog.Logger, error) {
	if cfg.Output == "" || cfg.Output == "console" {
		return infrastructure.NewLogger(stderr, cfg), nil
	}
	logger, err := infrastructure.InitializeLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	return logger, nil
}

func serveMetrics(addr string, handler http.Handler, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Serving metrics", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", slog.String("error", err.Error()))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
