package diagnostics

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// ESS estimates the effective sample size of the pooled draws using split
// chains and Geyer's initial monotone sequence over the combined
// autocorrelation.
func ESS(chains [][]float64) float64 {
	seqs := splitChains(chains)
	n := shortest(seqs)
	m := len(seqs)
	if m == 0 || n < 4 {
		return math.NaN()
	}

	centered := make([][]float64, m)
	means := make([]float64, m)
	for j, s := range seqs {
		mean := stat.Mean(s[:n], nil)
		means[j] = mean
		c := make([]float64, n)
		for i := range c {
			c[i] = s[i] - mean
		}
		centered[j] = c
	}

	// mean over sequences of the biased lag-t autocovariance
	acov := func(t int) float64 {
		total := 0.0
		for _, c := range centered {
			s := 0.0
			for i := 0; i+t < n; i++ {
				s += c[i] * c[i+t]
			}
			total += s / float64(n)
		}
		return total / float64(m)
	}

	nf := float64(n)
	meanVar := acov(0) * nf / (nf - 1)
	varPlus := meanVar * (nf - 1) / nf
	if m > 1 {
		varPlus += stat.Variance(means, nil)
	}
	if varPlus == 0 {
		return math.NaN()
	}
	rho := func(t int) float64 {
		if t == 0 {
			return 1
		}
		return 1 - (meanVar-acov(t))/varPlus
	}

	sum := 0.0
	prev := math.Inf(1)
	for t := 0; t+1 < n; t += 2 {
		pair := rho(t) + rho(t+1)
		if pair < 0 {
			break
		}
		if pair > prev {
			pair = prev
		}
		sum += pair
		prev = pair
	}

	total := float64(m * n)
	tau := -1 + 2*sum
	limit := total * math.Log10(total)
	if tau <= 0 {
		return limit
	}
	return math.Min(total/tau, limit)
}

// MCSE is the Monte Carlo standard error of the posterior mean
func MCSE(chains [][]float64) float64 {
	var pooled []float64
	for _, c := range chains {
		pooled = append(pooled, c...)
	}
	if len(pooled) < 2 {
		return math.NaN()
	}
	ess := ESS(chains)
	if math.IsNaN(ess) || ess <= 0 {
		return math.NaN()
	}
	return stat.StdDev(pooled, nil) / math.Sqrt(ess)
}
