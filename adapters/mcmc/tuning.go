package mcmc

import (
	"fmt"
	"math/rand/v2"

	"bayesreg/domain/core"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/samplemv"
)

// optimalScale is the asymptotically optimal random-walk scaling 2.38^2 / d
func optimalScale(dim int) float64 {
	return 2.38 * 2.38 / float64(dim)
}

// tuner adapts a multivariate normal random-walk proposal between windows
type tuner struct {
	base  *mat.SymDense // unscaled covariance estimate
	dim   int
	scale float64
}

func newTuner(cov *mat.SymDense, dim int) *tuner {
	return &tuner{base: cov, dim: dim, scale: 1}
}

// proposal builds a fresh proposal from the current covariance and scale
func (t *tuner) proposal(src rand.Source) (*samplemv.ProposalNormal, error) {
	sigma := mat.NewSymDense(t.dim, nil)
	sigma.ScaleSym(t.scale*optimalScale(t.dim), t.base)
	p, ok := samplemv.NewProposalNormal(sigma, src)
	if !ok {
		return nil, fmt.Errorf("%w: proposal covariance is not positive definite", core.ErrSamplerFailed)
	}
	return p, nil
}

// update rescales by the window's acceptance rate. When reestimate is set and
// the window mixed, the covariance is replaced by a regularized empirical
// estimate and the scale starts over.
func (t *tuner) update(draws [][]float64, accepted, iterations int, reestimate bool) {
	rate := float64(accepted) / float64(iterations)
	if reestimate && rate >= 0.05 && len(draws) > 2*t.dim {
		if cov, ok := regularizedCovariance(draws, t.dim); ok {
			t.base = cov
			t.scale = 1
			return
		}
	}
	t.scale *= scaleFactor(rate)
}

// scaleFactor maps an acceptance rate to a multiplicative step adjustment
func scaleFactor(rate float64) float64 {
	switch {
	case rate < 0.001:
		return 0.1
	case rate < 0.05:
		return 0.5
	case rate < 0.2:
		return 0.9
	case rate > 0.95:
		return 10
	case rate > 0.75:
		return 2
	case rate > 0.5:
		return 1.1
	}
	return 1
}

// regularizedCovariance shrinks the sample covariance toward a small multiple
// of the identity so that short windows still yield a positive definite matrix.
func regularizedCovariance(draws [][]float64, dim int) (*mat.SymDense, bool) {
	n := float64(len(draws))
	x := mat.NewDense(len(draws), dim, nil)
	for i, d := range draws {
		x.SetRow(i, d)
	}

	var sample mat.SymDense
	stat.CovarianceMatrix(&sample, x, nil)

	w := n / (n + 5)
	cov := mat.NewSymDense(dim, nil)
	cov.ScaleSym(w, &sample)
	for i := 0; i < dim; i++ {
		cov.SetSym(i, i, cov.At(i, i)+1e-3*(1-w))
	}

	var chol mat.Cholesky
	if !chol.Factorize(cov) {
		return nil, false
	}
	return cov, true
}
