package ols

import (
	"math"

	"bayesreg/internal/summary"
)

// DefaultTolerance is how many OLS standard errors a posterior mean may sit
// from the least-squares estimate and still count as agreeing.
const DefaultTolerance = 1.0

// ComparisonRow pairs one coefficient's posterior mean with its OLS estimate
type ComparisonRow struct {
	Param         string  `json:"param"`
	PosteriorMean float64 `json:"posterior_mean"`
	PosteriorSD   float64 `json:"posterior_sd"`
	OLSEstimate   float64 `json:"ols_estimate"`
	OLSStdErr     float64 `json:"ols_std_err"`
	DiffInSE      float64 `json:"diff_in_se"`
	Agrees        bool    `json:"agrees"`
}

// Compare lines up posterior means with OLS estimates by parameter name.
// Parameters without an OLS counterpart, like sigma, are skipped.
func Compare(post *summary.Table, fit *Result, tolerance float64) []ComparisonRow {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	var out []ComparisonRow
	for _, c := range fit.Coefficients {
		row, ok := post.Row(c.Name)
		if !ok {
			continue
		}
		diff := math.Abs(row.Mean-c.Estimate) / c.StdErr
		out = append(out, ComparisonRow{
			Param:         c.Name,
			PosteriorMean: row.Mean,
			PosteriorSD:   row.SD,
			OLSEstimate:   c.Estimate,
			OLSStdErr:     c.StdErr,
			DiffInSE:      diff,
			Agrees:        diff <= tolerance,
		})
	}
	return out
}

// AllAgree reports whether every compared coefficient agrees
func AllAgree(rows []ComparisonRow) bool {
	for _, r := range rows {
		if !r.Agrees {
			return false
		}
	}
	return true
}
