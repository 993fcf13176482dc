package mcmc

import (
	"context"
	"fmt"
	"math"

	"bayesreg/domain/core"
	"bayesreg/domain/model"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Maximizer finds the maximum a-posteriori point with Nelder-Mead
type Maximizer struct {
	MaxEvaluations int
	Restarts       int
}

// NewMaximizer returns a maximizer with defaults suited to small regressions
func NewMaximizer() *Maximizer {
	return &Maximizer{MaxEvaluations: 20000, Restarts: 2}
}

// Find starts at the prior means and restarts Nelder-Mead from the best point
// so the simplex can recover from early collapse.
func (mx *Maximizer) Find(ctx context.Context, m *model.Model) ([]float64, error) {
	x := m.PriorMeans()
	best := m.LogProb(x)
	if math.IsInf(best, -1) || math.IsNaN(best) {
		return nil, fmt.Errorf("%w: prior means have zero posterior density", core.ErrSamplerFailed)
	}

	negLogPost := func(p []float64) float64 {
		lp := m.LogProb(p)
		if math.IsNaN(lp) || math.IsInf(lp, -1) {
			return math.Inf(1)
		}
		return -lp
	}

	for i := 0; i <= mx.Restarts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := optimize.Minimize(
			optimize.Problem{Func: negLogPost},
			x,
			&optimize.Settings{FuncEvaluations: mx.MaxEvaluations},
			&optimize.NelderMead{},
		)
		if res == nil {
			break
		}
		if lp := -res.Location.F; lp > best {
			best = lp
			x = append([]float64(nil), res.Location.X...)
		}
		if err != nil {
			break
		}
	}
	return x, nil
}

// LaplaceCovariance inverts the Hessian of the negative log posterior at x.
// ok is false when the Hessian is not finite or not positive definite.
func LaplaceCovariance(m *model.Model, x []float64) (*mat.SymDense, bool) {
	var h mat.SymDense
	fd.Hessian(&h, func(p []float64) float64 { return -m.LogProb(p) }, x, &fd.Settings{Formula: fd.Central})

	d := h.SymmetricDim()
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			if v := h.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, false
			}
		}
	}

	var chol mat.Cholesky
	if !chol.Factorize(&h) {
		return nil, false
	}
	cov := mat.NewSymDense(d, nil)
	if err := chol.InverseTo(cov); err != nil {
		return nil, false
	}
	for i := 0; i < d; i++ {
		if v := cov.At(i, i); !(v > 0) || math.IsInf(v, 0) {
			return nil, false
		}
	}
	return cov, true
}
