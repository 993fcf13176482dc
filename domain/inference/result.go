// Package inference holds the artifacts produced by the inference driver and
// consumed read-only by summaries, plots and the run store.
package inference

import (
	"fmt"
	"time"

	"bayesreg/domain/core"
)

// Settings controls posterior sampling
type Settings struct {
	Chains int    `json:"chains" koanf:"chains" validate:"min=1,max=64"`
	Draws  int    `json:"draws" koanf:"draws" validate:"min=10"`
	Tune   int    `json:"tune" koanf:"tune" validate:"min=0"`
	Thin   int    `json:"thin" koanf:"thin" validate:"min=1"`
	Seed   uint64 `json:"seed" koanf:"seed"`

	// PosteriorPredictive is the number of draws turned into replicated
	// responses; zero disables posterior-predictive simulation.
	PosteriorPredictive int `json:"posterior_predictive" koanf:"posterior_predictive_draws" validate:"min=0"`

	// InitialPoints, when set, holds one starting vector per chain and
	// bypasses MAP initialization and jitter.
	InitialPoints [][]float64 `json:"initial_points,omitempty" koanf:"-"`
}

// DefaultSettings mirrors the usual notebook defaults
func DefaultSettings() Settings {
	return Settings{
		Chains: 4,
		Draws:  2000,
		Tune:   2000,
		Thin:   1,
		Seed:   42,
	}
}

// Validate checks the settings against a model dimension
func (s Settings) Validate(dim int) error {
	if s.Chains < 1 {
		return fmt.Errorf("chains must be at least 1, got %d", s.Chains)
	}
	if s.Draws < 1 {
		return fmt.Errorf("draws must be positive, got %d", s.Draws)
	}
	if s.Tune < 0 {
		return fmt.Errorf("tune must not be negative, got %d", s.Tune)
	}
	if s.Thin < 1 {
		return fmt.Errorf("thin must be at least 1, got %d", s.Thin)
	}
	if s.InitialPoints != nil {
		if len(s.InitialPoints) != s.Chains {
			return core.NewDimensionMismatchError("initial points", s.Chains, len(s.InitialPoints))
		}
		for _, p := range s.InitialPoints {
			if len(p) != dim {
				return core.NewDimensionMismatchError("initial point", dim, len(p))
			}
		}
	}
	return nil
}

// Chain is one independent Markov chain after tuning and thinning
type Chain struct {
	Index          int         `json:"index"`
	Init           []float64   `json:"init"`
	Draws          [][]float64 `json:"-"` // draw x parameter
	AcceptanceRate float64     `json:"acceptance_rate"`
	StepScale      float64     `json:"step_scale"`
}

// PredictiveSamples is a set of simulated response vectors and the parameter
// draws that generated them.
type PredictiveSamples struct {
	Responses [][]float64 `json:"-"` // sample x observation
	Params    [][]float64 `json:"-"` // sample x parameter
	Observed  []float64   `json:"-"`
}

// Len returns the number of simulated response vectors
func (p *PredictiveSamples) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Responses)
}

// Flatten concatenates every simulated value
func (p *PredictiveSamples) Flatten() []float64 {
	if p == nil {
		return nil
	}
	n := 0
	for _, r := range p.Responses {
		n += len(r)
	}
	out := make([]float64, 0, n)
	for _, r := range p.Responses {
		out = append(out, r...)
	}
	return out
}

// Means returns the mean of each simulated response vector
func (p *PredictiveSamples) Means() []float64 {
	if p == nil {
		return nil
	}
	out := make([]float64, len(p.Responses))
	for i, r := range p.Responses {
		s := 0.0
		for _, v := range r {
			s += v
		}
		if len(r) > 0 {
			out[i] = s / float64(len(r))
		}
	}
	return out
}

// Result is the posterior sampling artifact for one model
type Result struct {
	RunID      core.RunID `json:"run_id"`
	Model      string     `json:"model"`
	Variant    string     `json:"variant"`
	ParamNames []string   `json:"param_names"`
	Chains     []Chain    `json:"chains"`
	Settings   Settings   `json:"settings"`

	PriorPredictive     *PredictiveSamples `json:"-"`
	PosteriorPredictive *PredictiveSamples `json:"-"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// NumChains returns the number of chains
func (r *Result) NumChains() int { return len(r.Chains) }

// NumDraws returns the number of kept draws per chain
func (r *Result) NumDraws() int {
	if len(r.Chains) == 0 {
		return 0
	}
	return len(r.Chains[0].Draws)
}

// ParamIndex returns the coordinate of a named parameter
func (r *Result) ParamIndex(name string) (int, error) {
	for i, n := range r.ParamNames {
		if n == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", core.ErrParameterNotFound, name)
}

// Param returns the draws of one parameter, chain by chain
func (r *Result) Param(name string) ([][]float64, error) {
	idx, err := r.ParamIndex(name)
	if err != nil {
		return nil, err
	}
	return r.ParamAt(idx), nil
}

// ParamAt returns the draws of the parameter at coordinate idx, chain by chain
func (r *Result) ParamAt(idx int) [][]float64 {
	out := make([][]float64, len(r.Chains))
	for c, ch := range r.Chains {
		col := make([]float64, len(ch.Draws))
		for i, d := range ch.Draws {
			col[i] = d[idx]
		}
		out[c] = col
	}
	return out
}

// Flatten pools every chain's draws of one parameter
func (r *Result) Flatten(name string) ([]float64, error) {
	chains, err := r.Param(name)
	if err != nil {
		return nil, err
	}
	return Pool(chains), nil
}

// AcceptanceRates returns the per-chain acceptance rates
func (r *Result) AcceptanceRates() []float64 {
	out := make([]float64, len(r.Chains))
	for i, ch := range r.Chains {
		out[i] = ch.AcceptanceRate
	}
	return out
}

// Validate checks that every chain has the same shape
func (r *Result) Validate() error {
	if len(r.Chains) == 0 {
		return fmt.Errorf("%w: no chains", core.ErrSamplerFailed)
	}
	n := len(r.Chains[0].Draws)
	for _, ch := range r.Chains {
		if len(ch.Draws) != n {
			return core.NewDimensionMismatchError(fmt.Sprintf("chain %d draws", ch.Index), n, len(ch.Draws))
		}
		for _, d := range ch.Draws {
			if len(d) != len(r.ParamNames) {
				return core.NewDimensionMismatchError("draw width", len(r.ParamNames), len(d))
			}
		}
	}
	return nil
}

// Pool concatenates per-chain samples
func Pool(chains [][]float64) []float64 {
	n := 0
	for _, c := range chains {
		n += len(c)
	}
	out := make([]float64, 0, n)
	for _, c := range chains {
		out = append(out, c...)
	}
	return out
}
