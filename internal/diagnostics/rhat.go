// Package diagnostics computes MCMC convergence and efficiency statistics
// from per-chain draws of a single parameter.
package diagnostics

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// DefaultRHatThreshold is the acceptance threshold for split R-hat
const DefaultRHatThreshold = 1.05

// splitChains halves every chain so that within-chain drift shows up as
// between-sequence variance. An odd middle draw is dropped.
func splitChains(chains [][]float64) [][]float64 {
	out := make([][]float64, 0, 2*len(chains))
	for _, c := range chains {
		half := len(c) / 2
		if half == 0 {
			continue
		}
		out = append(out, c[:half], c[len(c)-half:])
	}
	return out
}

// shortest trims every sequence to the length of the shortest one
func shortest(seqs [][]float64) int {
	n := math.MaxInt
	for _, s := range seqs {
		n = min(n, len(s))
	}
	if n == math.MaxInt {
		return 0
	}
	return n
}

// RHat is the split potential scale reduction factor. Values near 1 indicate
// the chains agree; NaN is returned when fewer than four draws per chain exist.
func RHat(chains [][]float64) float64 {
	seqs := splitChains(chains)
	n := shortest(seqs)
	m := len(seqs)
	if m < 2 || n < 2 {
		return math.NaN()
	}

	means := make([]float64, m)
	w := 0.0
	for j, s := range seqs {
		mean, variance := stat.MeanVariance(s[:n], nil)
		means[j] = mean
		w += variance
	}
	w /= float64(m)

	// between-sequence variance of the means times n
	b := float64(n) * stat.Variance(means, nil)

	if w == 0 {
		if b == 0 {
			return 1
		}
		return math.Inf(1)
	}

	varPlus := float64(n-1)/float64(n)*w + b/float64(n)
	return math.Sqrt(varPlus / w)
}

// Converged reports whether every R-hat is finite and at most threshold
func Converged(rhats []float64, threshold float64) bool {
	for _, r := range rhats {
		if math.IsNaN(r) || r > threshold {
			return false
		}
	}
	return true
}
