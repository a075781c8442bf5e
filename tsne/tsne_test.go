package tsne

import (
	"bytes"
	"log/slog"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clusters returns n points around the origin followed by n points around (sep,sep,sep).
func clusters(n int, sep float64) [][]float64 {
	rng := rand.New(rand.NewPCG(1, 2))
	points := make([][]float64, 0, 2*n)
	for c := 0; c < 2; c++ {
		for i := 0; i < n; i++ {
			off := float64(c) * sep
			points = append(points, []float64{off + rng.Float64(), off + rng.Float64(), off + rng.Float64()})
		}
	}
	return points
}

func TestStepAdvancesIter(t *testing.T) {
	points := clusters(5, 10)
	e, err := New(points, Config{Perplexity: 3, Dim: 3})
	require.NoError(t, err)
	assert.Equal(t, 0, e.Iter())
	sol := e.Solution()
	require.Len(t, sol, len(points))
	for _, row := range sol {
		require.Len(t, row, 3)
	}
	for i := 0; i < 10; i++ {
		e.Step()
	}
	assert.Equal(t, 10, e.Iter())
	e.StepN(10)
	assert.Equal(t, 20, e.Iter())
	assert.Len(t, e.Solution(), len(points))
	assert.Equal(t, len(points), e.Len())
	assert.Equal(t, 3, e.Dim())
}

func TestDefaults(t *testing.T) {
	e, err := New(clusters(3, 1), Config{})
	require.NoError(t, err)
	assert.Equal(t, 2, e.Dim())
	assert.Equal(t, 10.0, e.lr)
	for _, row := range e.Solution() {
		for _, v := range row {
			assert.Less(t, math.Abs(v), 1e-2)
		}
	}
}

func TestRecentered(t *testing.T) {
	e, err := New(clusters(6, 5), Config{Perplexity: 4, Dim: 2, Seed: 3})
	require.NoError(t, err)
	for range 5 {
		e.Step()
		var mean [2]float64
		for _, row := range e.Solution() {
			mean[0] += row[0]
			mean[1] += row[1]
		}
		assert.InDelta(t, 0, mean[0], 1e-9)
		assert.InDelta(t, 0, mean[1], 1e-9)
	}
}

func TestNoAliasing(t *testing.T) {
	points := clusters(5, 4)
	cfg := Config{Perplexity: 3, Seed: 7}
	a, err := New(points, cfg)
	require.NoError(t, err)
	for i := range points {
		for j := range points[i] {
			points[i][j] = -1000 * float64(i+j)
		}
	}
	b, err := New(clusters(5, 4), cfg)
	require.NoError(t, err)
	a.StepN(20)
	b.StepN(20)
	assert.Equal(t, b.Solution(), a.Solution())

	// Solution is a copy.
	sol := a.Solution()
	sol[0][0] = 1e9
	assert.NotEqual(t, sol[0][0], a.Solution()[0][0])
}

func TestAffinities(t *testing.T) {
	points := clusters(4, 3)
	e, err := New(points, Config{Perplexity: 2})
	require.NoError(t, err)
	n := e.Len()
	var sum float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			assert.Equal(t, e.p[i*n+j], e.p[j*n+i])
			assert.Greater(t, e.p[i*n+j], 0.0)
			sum += e.p[i*n+j]
		}
	}
	assert.InDelta(t, 1, sum, 1e-9)
}

func TestSeparatesClusters(t *testing.T) {
	points := clusters(10, 10)
	e, err := New(points, Config{Perplexity: 5, LearningRate: 10, Dim: 2, Seed: 42})
	require.NoError(t, err)
	first := e.Step()
	last := e.StepN(299)
	assert.Less(t, last, first)

	sol := e.Solution()
	centroid := func(rows [][]float64) (c [2]float64) {
		for _, r := range rows {
			c[0] += r[0] / float64(len(rows))
			c[1] += r[1] / float64(len(rows))
		}
		return c
	}
	ca, cb := centroid(sol[:10]), centroid(sol[10:])
	between := math.Hypot(ca[0]-cb[0], ca[1]-cb[1])
	for i, r := range sol {
		c := ca
		if i >= 10 {
			c = cb
		}
		assert.Less(t, math.Hypot(r[0]-c[0], r[1]-c[1]), between/2, "point %d", i)
	}
}

func TestFromDistances(t *testing.T) {
	_, err := NewFromDistances(nil, Config{})
	assert.ErrorIs(t, err, ErrNoData)
	_, err = New(nil, Config{})
	assert.ErrorIs(t, err, ErrNoData)
	_, err = NewFromDistances([][]float64{{0, 1}, {1}}, Config{})
	assert.Error(t, err)
	_, err = New([][]float64{{0, 1}, {1}}, Config{})
	assert.Error(t, err)

	d := [][]float64{
		{0, 1, 4},
		{1, 0, 1},
		{4, 1, 0},
	}
	a, err := NewFromDistances(d, Config{Perplexity: 1.5, Seed: 9})
	require.NoError(t, err)
	b, err := New([][]float64{{0}, {1}, {2}}, Config{Perplexity: 1.5, Seed: 9})
	require.NoError(t, err)
	assert.Equal(t, b.p, a.p)
}

func TestSinglePoint(t *testing.T) {
	e, err := New([][]float64{{1, 2, 3}}, Config{})
	require.NoError(t, err)
	cost := e.StepN(3)
	assert.Zero(t, cost)
	assert.Equal(t, [][]float64{{0, 0}}, e.Solution())
}

func TestProgressLogging(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e, err := New(clusters(3, 1), Config{Logger: log})
	require.NoError(t, err)
	e.StepN(50)
	assert.Contains(t, buf.String(), "tsne initialized")
	assert.Contains(t, buf.String(), "tsne step")
}
