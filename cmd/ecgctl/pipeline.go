package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"ptbxl/internal/services"
	transport "ptbxl/internal/transport/http"
	"ptbxl/internal/websocket"
)

func (a *app) newServices(hub services.ProgressHub) (*services.DatasetService, *services.PipelineService) {
	dataset := services.NewDatasetService(a.cfg, a.logger, a.metrics)
	return dataset, services.NewPipelineService(dataset, hub)
}

func runPipeline(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("pipeline", a.stderr)
	perDiag := fs.Int("per-diag", 0, "also plot n high-rate signals per diagnostic class; 0 skips the figure")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *perDiag < 0 {
		return fmt.Errorf("%w: -per-diag must not be negative", errUsage)
	}

	format, err := a.plotFormat()
	if err != nil {
		return err
	}
	_, pipeline := a.newServices(nil)
	state, err := pipeline.Run(ctx, "pipeline", services.PipelineOptions{PerDiag: *perDiag, Format: format})
	if state != nil {
		for _, step := range state.Snapshot().Steps {
			fmt.Fprintf(a.stdout, "%s\t%s\n", step.ID, step.Status)
		}
	}
	return err
}

func runServe(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("serve", a.stderr)
	addr := fs.String("addr", "127.0.0.1:8080", "listen address")
	timeout := fs.Duration("timeout", transport.DefaultRequestTimeout, "per-request timeout for /api routes")
	origins := fs.String("cors", "", "comma separated allowed origins; empty allows any")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	hub := websocket.NewHub(a.logger)
	hub.Start()
	defer hub.Stop()

	dataset, pipeline := a.newServices(hub)
	handler := transport.NewRouter(transport.RouterConfig{
		Dataset:        dataset,
		Pipeline:       pipeline,
		Hub:            hub,
		Metrics:        a.metricsHandler,
		Logger:         a.logger,
		RequestTimeout: *timeout,
		AllowedOrigins: splitList(*origins),
	})

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", *addr, err)
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	a.logger.InfoContext(ctx, "Status server listening", slog.String("addr", ln.Addr().String()))
	fmt.Fprintf(a.stdout, "listening on http://%s\n", ln.Addr())

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.logger.Info("Status server stopped")
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
