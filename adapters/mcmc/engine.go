// Package mcmc drives gonum's Metropolis-Hastings sampler against a
// declarative model: initialization, proposal tuning, concurrent chains and
// predictive simulation.
package mcmc

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"bayesreg/domain/core"
	"bayesreg/domain/inference"
	"bayesreg/domain/model"
	"bayesreg/ports"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/samplemv"
)

const (
	defaultChunkSize   = 250
	defaultTuneWindows = 6
	maxJitterAttempts  = 50
)

// Engine implements ports.Sampler on top of samplemv.MetropolisHastingser
type Engine struct {
	logger      *zap.Logger
	rng         ports.RNGPort
	chunkSize   int
	tuneWindows int
	maximizer   *Maximizer
}

// Option configures an Engine
type Option func(*Engine)

// WithRNG replaces the default PCG stream factory
func WithRNG(rng ports.RNGPort) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithChunkSize sets how many iterations run between context checks
func WithChunkSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.chunkSize = n
		}
	}
}

// WithTuneWindows sets how many adaptation windows the tuning phase is split into
func WithTuneWindows(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.tuneWindows = n
		}
	}
}

// NewEngine creates a sampling engine
func NewEngine(logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		logger:      logger,
		rng:         NewRNGAdapter(),
		chunkSize:   defaultChunkSize,
		tuneWindows: defaultTuneWindows,
		maximizer:   NewMaximizer(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ ports.Sampler = (*Engine)(nil)

// SamplePriorPredictive draws n parameter vectors from the priors and simulates
// one response vector per draw. The observed response is never consulted.
func (e *Engine) SamplePriorPredictive(ctx context.Context, m *model.Model, n int, seed uint64) (*inference.PredictiveSamples, error) {
	if n <= 0 {
		return nil, fmt.Errorf("prior predictive sample count must be positive, got %d", n)
	}
	start := time.Now()
	src := e.rng.SeededStream("prior_predictive", seed)

	out := &inference.PredictiveSamples{
		Responses: make([][]float64, n),
		Params:    make([][]float64, n),
		Observed:  m.Observed(),
	}
	for i := 0; i < n; i++ {
		if i%e.chunkSize == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		theta := m.SamplePrior(src)
		out.Params[i] = theta
		out.Responses[i] = m.SimulateResponse(theta, src, nil)
	}

	e.logger.Debug("prior predictive complete",
		zap.String("model", m.Name()),
		zap.Int("samples", n),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

// SamplePosterior runs settings.Chains independent chains concurrently and
// returns the kept draws of each.
func (e *Engine) SamplePosterior(ctx context.Context, m *model.Model, settings inference.Settings) (*inference.Result, error) {
	dim := m.Dim()
	if err := settings.Validate(dim); err != nil {
		return nil, err
	}
	start := time.Now()

	starts, covs, err := e.initialize(ctx, m, settings)
	if err != nil {
		return nil, err
	}

	chains := make([]inference.Chain, settings.Chains)
	g, gctx := errgroup.WithContext(ctx)
	for c := 0; c < settings.Chains; c++ {
		g.Go(func() error {
			ch, err := e.runChain(gctx, m, settings, c, starts[c], covs[c])
			if err != nil {
				return fmt.Errorf("chain %d: %w", c, err)
			}
			chains[c] = *ch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &inference.Result{
		RunID:      core.NewRunID(),
		Model:      m.Name(),
		Variant:    string(m.Variant()),
		ParamNames: m.ParamNames(),
		Chains:     chains,
		Settings:   settings,
		StartedAt:  start,
	}

	if settings.PosteriorPredictive > 0 {
		pp, err := e.posteriorPredictive(ctx, m, res, settings.PosteriorPredictive, settings.Seed)
		if err != nil {
			return nil, err
		}
		res.PosteriorPredictive = pp
	}

	res.Duration = time.Since(start)
	if err := res.Validate(); err != nil {
		return nil, err
	}

	e.logger.Info("posterior sampling complete",
		zap.String("model", m.Name()),
		zap.Int("chains", settings.Chains),
		zap.Int("draws", settings.Draws),
		zap.Float64s("acceptance", res.AcceptanceRates()),
		zap.Duration("elapsed", res.Duration))
	return res, nil
}

// initialize picks a starting point and proposal covariance for every chain
func (e *Engine) initialize(ctx context.Context, m *model.Model, s inference.Settings) ([][]float64, []*mat.SymDense, error) {
	starts := make([][]float64, s.Chains)
	covs := make([]*mat.SymDense, s.Chains)

	if s.InitialPoints != nil {
		for c, p := range s.InitialPoints {
			if lp := m.LogProb(p); math.IsInf(lp, -1) || math.IsNaN(lp) {
				return nil, nil, fmt.Errorf("%w: initial point for chain %d has zero posterior density", core.ErrSamplerFailed, c)
			}
			starts[c] = append([]float64(nil), p...)
			covs[c] = e.proposalCovariance(m, p)
		}
		return starts, covs, nil
	}

	mapPoint, err := e.maximizer.Find(ctx, m)
	if err != nil {
		return nil, nil, err
	}
	cov := e.proposalCovariance(m, mapPoint)
	e.logger.Debug("initialized at posterior mode",
		zap.String("model", m.Name()),
		zap.Float64s("map", mapPoint))

	for c := 0; c < s.Chains; c++ {
		src := e.rng.SeededStream(fmt.Sprintf("jitter_%d", c), s.Seed)
		starts[c] = jitter(m, mapPoint, src)
		covs[c] = mat.NewSymDense(cov.SymmetricDim(), nil)
		covs[c].CopySym(cov)
	}
	return starts, covs, nil
}

// jitter perturbs every coordinate by U(-1, 1), retrying until the point has
// positive posterior density. Falls back to the unperturbed point.
func jitter(m *model.Model, center []float64, src rand.Source) []float64 {
	rnd := rand.New(src)
	p := make([]float64, len(center))
	for attempt := 0; attempt < maxJitterAttempts; attempt++ {
		for i, v := range center {
			p[i] = v + 2*rnd.Float64() - 1
		}
		if lp := m.LogProb(p); !math.IsInf(lp, -1) && !math.IsNaN(lp) {
			return p
		}
	}
	return append(p[:0], center...)
}

// proposalCovariance returns the Laplace covariance at x when it is positive
// definite, otherwise a diagonal built from a tenth of each prior scale.
func (e *Engine) proposalCovariance(m *model.Model, x []float64) *mat.SymDense {
	if cov, ok := LaplaceCovariance(m, x); ok {
		return cov
	}
	e.logger.Debug("laplace covariance not positive definite, using prior scales",
		zap.String("model", m.Name()))

	sd := m.PriorStdDevs()
	cov := mat.NewSymDense(len(sd), nil)
	for i, s := range sd {
		v := 0.1 * s
		if !(v > 0) || math.IsInf(v, 0) {
			v = 1
		}
		cov.SetSym(i, i, v*v)
	}
	return cov
}

// runChain tunes the proposal and then collects draws for one chain
func (e *Engine) runChain(ctx context.Context, m *model.Model, s inference.Settings, index int, start []float64, cov *mat.SymDense) (*inference.Chain, error) {
	src := e.rng.ChainStream(s.Seed, index)
	dim := m.Dim()

	tuner := newTuner(cov, dim)
	current := append([]float64(nil), start...)

	windows := windowSizes(s.Tune, e.tuneWindows)
	for w, n := range windows {
		prop, err := tuner.proposal(src)
		if err != nil {
			return nil, err
		}
		draws, accepted, err := e.advance(ctx, m, prop, src, current, n, 1)
		if err != nil {
			return nil, err
		}
		current = draws[len(draws)-1]
		// the first window only escapes the starting region and the last
		// one fixes the scale for the covariance that will be used
		tuner.update(draws, accepted, n, w > 0 && w < len(windows)-1)
	}

	prop, err := tuner.proposal(src)
	if err != nil {
		return nil, err
	}
	draws, accepted, err := e.advance(ctx, m, prop, src, current, s.Draws, s.Thin)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("chain complete",
		zap.Int("chain", index),
		zap.Float64("scale", tuner.scale),
		zap.Float64("acceptance", float64(accepted)/float64(s.Draws*s.Thin)))

	return &inference.Chain{
		Index:          index,
		Init:           append([]float64(nil), start...),
		Draws:          draws,
		AcceptanceRate: float64(accepted) / float64(s.Draws*s.Thin),
		StepScale:      tuner.scale,
	}, nil
}

// advance runs keep*thin Metropolis-Hastings iterations from current in
// chunks, checking ctx between chunks. It returns every thin-th state and the
// number of accepted proposals.
func (e *Engine) advance(ctx context.Context, m *model.Model, prop samplemv.MHProposal, src rand.Source,
	current []float64, keep, thin int) ([][]float64, int, error) {

	dim := len(current)
	total := keep * thin
	kept := make([][]float64, 0, keep)
	prev := append([]float64(nil), current...)
	accepted := 0

	for done := 0; done < total; {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		n := min(e.chunkSize, total-done)
		batch := mat.NewDense(n, dim, nil)
		samplemv.MetropolisHastingser{
			Initial:  prev,
			Target:   m,
			Proposal: prop,
			Src:      src,
		}.Sample(batch)

		for i := 0; i < n; i++ {
			row := batch.RawRowView(i)
			if !floats.Equal(row, prev) {
				accepted++
			}
			prev = append(prev[:0], row...)
			if (done+i+1)%thin == 0 {
				kept = append(kept, append([]float64(nil), row...))
			}
		}
		done += n
	}
	return kept, accepted, nil
}

// windowSizes splits tune iterations into at most windows adaptation windows
func windowSizes(tune, windows int) []int {
	if tune <= 0 {
		return nil
	}
	if tune < 100 || windows < 1 {
		return []int{tune}
	}
	size := tune / windows
	out := make([]int, windows)
	for i := range out {
		out[i] = size
	}
	out[windows-1] += tune - size*windows
	return out
}
