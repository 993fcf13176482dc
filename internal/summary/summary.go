// Package summary turns an inference result into per-parameter posterior
// summaries with convergence diagnostics.
package summary

import (
	"fmt"
	"math"

	"bayesreg/domain/inference"
	"bayesreg/domain/run"
	"bayesreg/internal/diagnostics"

	"gonum.org/v1/gonum/stat"
)

// Row summarizes the posterior of one parameter
type Row struct {
	Param   string  `json:"param"`
	Mean    float64 `json:"mean"`
	SD      float64 `json:"sd"`
	HDILow  float64 `json:"hdi_low"`
	HDIHigh float64 `json:"hdi_high"`
	MCSE    float64 `json:"mcse_mean"`
	ESS     float64 `json:"ess"`
	RHat    float64 `json:"r_hat"`
}

// Table is the posterior summary of a whole result
type Table struct {
	Model   string  `json:"model"`
	HDIProb float64 `json:"hdi_prob"`
	Rows    []Row   `json:"rows"`
}

// Summarize computes mean, sd, HDI, MCSE, ESS and split R-hat per parameter
func Summarize(res *inference.Result, hdiProb float64) (*Table, error) {
	if err := res.Validate(); err != nil {
		return nil, err
	}
	if hdiProb == 0 {
		hdiProb = diagnostics.DefaultHDIProb
	}

	t := &Table{Model: res.Model, HDIProb: hdiProb, Rows: make([]Row, len(res.ParamNames))}
	for i, name := range res.ParamNames {
		chains := res.ParamAt(i)
		pooled := inference.Pool(chains)

		mean, sd := stat.MeanStdDev(pooled, nil)
		lo, hi, err := diagnostics.HDI(pooled, hdiProb)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", name, err)
		}

		t.Rows[i] = Row{
			Param:   name,
			Mean:    mean,
			SD:      sd,
			HDILow:  lo,
			HDIHigh: hi,
			MCSE:    diagnostics.MCSE(chains),
			ESS:     diagnostics.ESS(chains),
			RHat:    diagnostics.RHat(chains),
		}
	}
	return t, nil
}

// Row returns the summary of a named parameter
func (t *Table) Row(param string) (Row, bool) {
	for _, r := range t.Rows {
		if r.Param == param {
			return r, true
		}
	}
	return Row{}, false
}

// RHats returns R-hat per row in order
func (t *Table) RHats() []float64 {
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.RHat
	}
	return out
}

// MaxRHat returns the largest R-hat, NaN if any is undefined
func (t *Table) MaxRHat() float64 {
	best := math.Inf(-1)
	for _, r := range t.Rows {
		if math.IsNaN(r.RHat) {
			return math.NaN()
		}
		best = math.Max(best, r.RHat)
	}
	return best
}

// Converged reports whether every R-hat is within threshold
func (t *Table) Converged(threshold float64) bool {
	return diagnostics.Converged(t.RHats(), threshold)
}

// Warnings lists parameters whose R-hat exceeds threshold. Non-convergence is
// surfaced for inspection only and never turned into an error.
func (t *Table) Warnings(threshold float64) []string {
	var out []string
	for _, r := range t.Rows {
		switch {
		case math.IsNaN(r.RHat):
			out = append(out, fmt.Sprintf("%s: r_hat is undefined (too few draws)", r.Param))
		case r.RHat > threshold:
			out = append(out, fmt.Sprintf("%s: r_hat %.3f exceeds %.2f, chains have not converged", r.Param, r.RHat, threshold))
		}
	}
	return out
}

// ToParameterSummaries converts rows for the run store
func (t *Table) ToParameterSummaries() []run.ParameterSummary {
	out := make([]run.ParameterSummary, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = run.ParameterSummary{
			Name:    r.Param,
			Mean:    r.Mean,
			SD:      r.SD,
			HDILow:  r.HDILow,
			HDIHigh: r.HDIHigh,
			MCSE:    r.MCSE,
			ESS:     r.ESS,
			RHat:    r.RHat,
		}
	}
	return out
}
