package cluster

import (
	"context"
	"math"
	"testing"

	"github.com/katalvlaran/lvlath/dtw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ptbxl/internal/shared/testutil"
)

func sine(n int, phase, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*float64(i)/float64(n)+phase)
	}
	return out
}

func level(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestTwoMedoids_SeparatesFamilies(t *testing.T) {
	signals := [][]float64{
		sine(64, 0, 1),
		level(64, 5),
		sine(64, 0.2, 1.1),
		level(64, 5.2),
		sine(64, -0.1, 0.9),
		level(64, 4.9),
	}
	logger, handler := testutil.NewTestLogger(t)

	res, err := TwoMedoids(context.Background(), signals, Options{Workers: 2, Logger: logger})
	require.NoError(t, err)

	a := res.Assignments
	assert.Equal(t, []int{a[0], a[0]}, []int{a[2], a[4]}, "sines share a cluster")
	assert.Equal(t, []int{a[1], a[1]}, []int{a[3], a[5]}, "levels share a cluster")
	assert.NotEqual(t, a[0], a[1])
	assert.Equal(t, [2]int{3, 3}, res.Sizes())
	assert.Less(t, res.Medoids[0], res.Medoids[1])
	assert.Equal(t, 0, res.Assignments[res.Medoids[0]])
	assert.Equal(t, 1, res.Assignments[res.Medoids[1]])
	assert.True(t, handler.ContainsMessage("Clustered signals"))
}

func TestDistanceMatrix(t *testing.T) {
	signals := [][]float64{
		{0, 1, 2, 3},
		{0, 1, 1, 2, 3},
		{5, 5, 5},
	}

	dist, err := DistanceMatrix(context.Background(), signals, Options{})
	require.NoError(t, err)

	for i := range signals {
		assert.Zero(t, dist[i][i])
		for j := range signals {
			assert.Equal(t, dist[i][j], dist[j][i])

			want, _, err := dtw.DTW(signals[i], signals[j], &dtw.DTWOptions{MemoryMode: dtw.FullMatrix})
			require.NoError(t, err)
			if i != j {
				assert.InDelta(t, want, dist[i][j], 1e-12)
			}
		}
	}
	assert.Zero(t, dist[0][1], "warping absorbs the repeated sample")
}

func TestTwoMedoids_Errors(t *testing.T) {
	t.Run("too few", func(t *testing.T) {
		_, err := TwoMedoids(context.Background(), [][]float64{{1, 2}}, Options{})
		assert.ErrorIs(t, err, ErrTooFewSignals)
	})

	t.Run("empty signal", func(t *testing.T) {
		_, err := TwoMedoids(context.Background(), [][]float64{{1, 2}, {}}, Options{})
		assert.ErrorIs(t, err, dtw.ErrEmptySequence)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := TwoMedoids(ctx, [][]float64{{1}, {2}, {3}}, Options{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestTwoMedoids_TwoSignals(t *testing.T) {
	res, err := TwoMedoids(context.Background(), [][]float64{{1, 2, 3}, {7, 8, 9}}, Options{Window: 1})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, res.Assignments)
	assert.Zero(t, res.Cost)
}
