// Package tsne implements exact t-distributed stochastic neighbor embedding
// with a step-wise API so callers can interleave optimization with other work.
package tsne

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// ErrNoData is returned when an engine is initialized without points.
var ErrNoData = errors.New("tsne: no data")

const (
	exaggerationIters = 100 // iterations during which affinities are exaggerated.
	exaggeration      = 4
	momentumSwitch    = 250 // iteration at which momentum increases.
	momentumEarly     = 0.5
	momentumLate      = 0.8
	minGain           = 0.01
	initStd           = 1e-4
	entropyTol        = 1e-4
	maxBetaTries      = 50
	minProb           = 1e-100
)

// Config parametrizes an [Engine]. Zero values select defaults.
type Config struct {
	// LearningRate scales gradient steps. Defaults to 10.
	LearningRate float64
	// Perplexity is roughly the number of effective neighbors of every point. Defaults to 30.
	Perplexity float64
	// Dim is the dimensionality of the embedding, usually 2 or 3. Defaults to 2.
	Dim int
	// Seed seeds the initial random layout. Equal seeds produce equal embeddings.
	Seed uint64
	// Logger receives progress at debug level. Nil discards logs.
	Logger *slog.Logger
}

func (cfg *Config) defaults() {
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 10
	}
	if cfg.Perplexity <= 0 {
		cfg.Perplexity = 30
	}
	if cfg.Dim <= 0 {
		cfg.Dim = 2
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// Engine holds the state of an embedding under optimization.
// It is not safe for concurrent use.
type Engine struct {
	n, dim int
	lr     float64
	iter   int
	// p holds the symmetrized input affinities, n×n row major.
	p []float64
	// y, gains and ystep are n×dim row major.
	y     []float64
	gains []float64
	ystep []float64
	// Scratch buffers for gradient computation.
	qu   []float64
	grad []float64

	log      *slog.Logger
	progress rate.Sometimes
}

// New initializes an engine embedding points, each a feature vector of the same length.
// Pairwise squared euclidean distances are computed up front so points is not retained.
func New(points [][]float64, cfg Config) (*Engine, error) {
	n := len(points)
	if n == 0 {
		return nil, ErrNoData
	}
	width := len(points[0])
	for i, row := range points {
		if len(row) != width {
			return nil, fmt.Errorf("tsne: row %d has %d columns, want %d", i, len(row), width)
		}
	}
	dist := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			var d float64
			for k := range points[i] {
				diff := points[i][k] - points[j][k]
				d += diff * diff
			}
			dist[i*n+j] = d
			dist[j*n+i] = d
		}
	}
	return newEngine(dist, n, cfg), nil
}

// NewFromDistances initializes an engine from a square matrix of pairwise
// distances. The matrix is not retained.
func NewFromDistances(d [][]float64, cfg Config) (*Engine, error) {
	n := len(d)
	if n == 0 {
		return nil, ErrNoData
	}
	dist := make([]float64, 0, n*n)
	for i, row := range d {
		if len(row) != n {
			return nil, fmt.Errorf("tsne: distance row %d has %d entries, want %d", i, len(row), n)
		}
		dist = append(dist, row...)
	}
	return newEngine(dist, n, cfg), nil
}

func newEngine(dist []float64, n int, cfg Config) *Engine {
	cfg.defaults()
	e := &Engine{
		n:        n,
		dim:      cfg.Dim,
		lr:       cfg.LearningRate,
		p:        affinities(dist, n, cfg.Perplexity),
		y:        make([]float64, n*cfg.Dim),
		gains:    make([]float64, n*cfg.Dim),
		ystep:    make([]float64, n*cfg.Dim),
		qu:       make([]float64, n*n),
		grad:     make([]float64, n*cfg.Dim),
		log:      cfg.Logger,
		progress: rate.Sometimes{First: 1, Interval: time.Second},
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	for i := range e.y {
		e.y[i] = rng.NormFloat64() * initStd
		e.gains[i] = 1
	}
	e.log.Debug("tsne initialized", slog.Int("points", n), slog.Int("dim", e.dim),
		slog.Float64("perplexity", cfg.Perplexity), slog.Float64("learning_rate", e.lr))
	return e
}

// affinities returns the symmetrized joint probabilities of the points whose
// squared distances are dist. Each conditional distribution is found by binary
// search on the gaussian precision to match the entropy log(perplexity).
func affinities(dist []float64, n int, perplexity float64) []float64 {
	htarget := math.Log(perplexity)
	cond := make([]float64, n*n)
	for i := 0; i < n; i++ {
		row := cond[i*n : (i+1)*n]
		drow := dist[i*n : (i+1)*n]
		beta := 1.0
		betamin, betamax := math.Inf(-1), math.Inf(1)
		for try := 0; try < maxBetaTries; try++ {
			var psum float64
			for j := range row {
				pj := 0.0
				if i != j {
					pj = math.Exp(-drow[j] * beta)
				}
				row[j] = pj
				psum += pj
			}
			var h float64
			for j := range row {
				pj := 0.0
				if psum != 0 {
					pj = row[j] / psum
				}
				row[j] = pj
				if pj > 1e-7 {
					h -= pj * math.Log(pj)
				}
			}
			if h > htarget {
				// Distribution too flat, sharpen.
				betamin = beta
				if math.IsInf(betamax, 1) {
					beta *= 2
				} else {
					beta = (beta + betamax) / 2
				}
			} else {
				betamax = beta
				if math.IsInf(betamin, -1) {
					beta /= 2
				} else {
					beta = (beta + betamin) / 2
				}
			}
			if math.Abs(h-htarget) < entropyTol {
				break
			}
		}
	}
	p := make([]float64, n*n)
	n2 := float64(2 * n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			p[i*n+j] = math.Max((cond[i*n+j]+cond[j*n+i])/n2, minProb)
		}
	}
	return p
}

// Len returns the number of points embedded.
func (e *Engine) Len() int { return e.n }

// Dim returns the dimensionality of the embedding.
func (e *Engine) Dim() int { return e.dim }

// Iter returns the number of steps performed.
func (e *Engine) Iter() int { return e.iter }

// Solution returns a copy of the current embedding, one row per input point in input order.
func (e *Engine) Solution() [][]float64 {
	sol := make([][]float64, e.n)
	flat := append([]float64(nil), e.y...)
	for i := range sol {
		sol[i] = flat[i*e.dim : (i+1)*e.dim : (i+1)*e.dim]
	}
	return sol
}

// Step performs one gradient descent iteration and returns the
// Kullback-Leibler divergence of the embedding before the update.
// The embedding is re-centered at the origin after every step.
func (e *Engine) Step() float64 {
	e.iter++
	cost := e.costGrad()
	momentum := momentumEarly
	if e.iter >= momentumSwitch {
		momentum = momentumLate
	}
	mean := make([]float64, e.dim)
	for i, g := range e.grad {
		step := e.ystep[i]
		gain := e.gains[i]
		if sign(g) == sign(step) {
			gain *= 0.8
		} else {
			gain += 0.2
		}
		gain = math.Max(gain, minGain)
		e.gains[i] = gain
		step = momentum*step - e.lr*gain*g
		e.ystep[i] = step
		e.y[i] += step
		mean[i%e.dim] += e.y[i]
	}
	for i := range e.y {
		e.y[i] -= mean[i%e.dim] / float64(e.n)
	}
	return cost
}

// StepN performs n steps and returns the cost of the last one.
// Progress is logged at most once a second.
func (e *Engine) StepN(n int) (cost float64) {
	for range n {
		cost = e.Step()
		e.progress.Do(func() {
			e.log.Debug("tsne step", slog.Int("iter", e.iter), slog.Float64("cost", cost))
		})
	}
	return cost
}

// costGrad computes the cost and stores the gradient in e.grad.
func (e *Engine) costGrad() float64 {
	n, dim := e.n, e.dim
	clear(e.grad)
	if n < 2 {
		return 0
	}
	pmul := 1.0
	if e.iter < exaggerationIters {
		pmul = exaggeration
	}
	var qsum float64
	for i := 0; i < n; i++ {
		yi := e.y[i*dim : (i+1)*dim]
		for j := i + 1; j < n; j++ {
			yj := e.y[j*dim : (j+1)*dim]
			var d2 float64
			for k := range yi {
				diff := yi[k] - yj[k]
				d2 += diff * diff
			}
			qu := 1 / (1 + d2)
			e.qu[i*n+j] = qu
			e.qu[j*n+i] = qu
			qsum += 2 * qu
		}
	}
	var cost float64
	for i := 0; i < n; i++ {
		yi := e.y[i*dim : (i+1)*dim]
		gi := e.grad[i*dim : (i+1)*dim]
		for j := 0; j < n; j++ {
			q := math.Max(e.qu[i*n+j]/qsum, minProb)
			p := e.p[i*n+j]
			cost -= p * math.Log(q)
			premult := 4 * (pmul*p - q) * e.qu[i*n+j]
			yj := e.y[j*dim : (j+1)*dim]
			for k := range gi {
				gi[k] += premult * (yi[k] - yj[k])
			}
		}
	}
	return cost
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
