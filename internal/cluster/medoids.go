// Package cluster splits a set of signals into two groups by dynamic time
// warping distance. The resulting assignment vector is what the trace
// plot colours by.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"github.com/katalvlaran/lvlath/dtw"
	"golang.org/x/sync/errgroup"
)

// ErrTooFewSignals is returned when fewer than two signals are given
var ErrTooFewSignals = errors.New("cluster: need at least two signals")

// Options configures TwoMedoids
type Options struct {
	// Window is the Sakoe-Chiba band radius; 0 means unconstrained
	Window int
	// SlopePenalty is added to every non-diagonal warping step
	SlopePenalty float64
	// Workers bounds concurrent distance rows; 0 means GOMAXPROCS
	Workers int
	Logger  *slog.Logger
}

// Result is a two-cluster partition
type Result struct {
	// Assignments holds 0 or 1 per signal; 0 is the cluster of the
	// lower-indexed medoid
	Assignments []int
	Medoids     [2]int
	// Cost is the summed distance of every signal to its medoid
	Cost      float64
	Distances [][]float64
}

// Sizes returns the member count of each cluster
func (r *Result) Sizes() [2]int {
	var s [2]int
	for _, a := range r.Assignments {
		s[a]++
	}
	return s
}

// TwoMedoids partitions signals into two clusters by exhaustive k-medoids
// over the pairwise DTW distance matrix.
func TwoMedoids(ctx context.Context, signals [][]float64, opts Options) (*Result, error) {
	if len(signals) < 2 {
		return nil, ErrTooFewSignals
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dist, err := DistanceMatrix(ctx, signals, opts)
	if err != nil {
		return nil, err
	}

	n := len(signals)
	best := Result{Cost: math.Inf(1)}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			cost := 0.0
			for i := 0; i < n; i++ {
				cost += math.Min(dist[i][a], dist[i][b])
			}
			if cost < best.Cost {
				best.Cost = cost
				best.Medoids = [2]int{a, b}
			}
		}
	}

	best.Distances = dist
	best.Assignments = make([]int, n)
	a, b := best.Medoids[0], best.Medoids[1]
	for i := range signals {
		if dist[i][b] < dist[i][a] {
			best.Assignments[i] = 1
		}
	}

	sizes := best.Sizes()
	logger.InfoContext(ctx, "Clustered signals",
		slog.Int("signals", n),
		slog.Int("medoid_0", a),
		slog.Int("medoid_1", b),
		slog.Int("size_0", sizes[0]),
		slog.Int("size_1", sizes[1]),
		slog.Float64("cost", best.Cost))
	return &best, nil
}

// DistanceMatrix computes the symmetric DTW distance matrix of signals.
// Rows are computed concurrently; the first error cancels the rest.
func DistanceMatrix(ctx context.Context, signals [][]float64, opts Options) ([][]float64, error) {
	n := len(signals)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	dtwOpts := &dtw.DTWOptions{
		Window:       opts.Window,
		SlopePenalty: opts.SlopePenalty,
		MemoryMode:   dtw.RollingArray,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			// row i owns the cells (i, j) for j > i
			for j := i + 1; j < n; j++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				d, _, err := dtw.DTW(signals[i], signals[j], dtwOpts)
				if err != nil {
					return fmt.Errorf("dtw(%d, %d): %w", i, j, err)
				}
				dist[i][j] = d
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dist[j][i] = dist[i][j]
		}
	}
	return dist, nil
}
