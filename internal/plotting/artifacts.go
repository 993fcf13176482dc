package plotting

import (
	"bayesreg/domain/inference"
	"bayesreg/internal/summary"
)

// Artifacts lists the figures written for one run; empty fields were skipped
type Artifacts struct {
	Trace               string `json:"trace,omitempty"`
	Forest              string `json:"forest,omitempty"`
	Distribution        string `json:"distribution,omitempty"`
	PriorPredictive     string `json:"prior_predictive,omitempty"`
	PosteriorPredictive string `json:"posterior_predictive,omitempty"`
}

// Paths returns the non-empty figure paths in display order
func (a Artifacts) Paths() []string {
	var out []string
	for _, p := range []string{a.Trace, a.Forest, a.Distribution, a.PriorPredictive, a.PosteriorPredictive} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// RenderRun writes every figure for a finished run. prior may be nil.
func (p *Plotter) RenderRun(res *inference.Result, tbl *summary.Table, prior *inference.PredictiveSamples) (Artifacts, error) {
	var a Artifacts
	var err error
	prefix := res.Model + "_"

	if a.Trace, err = p.TracePlot(res, prefix+"trace"); err != nil {
		return a, err
	}
	if a.Forest, err = p.ForestPlot(prefix+"forest", tbl); err != nil {
		return a, err
	}
	if a.Distribution, err = p.DistributionPlot(res, tbl, prefix+"posterior"); err != nil {
		return a, err
	}
	if prior.Len() > 0 {
		if a.PriorPredictive, err = p.PredictivePlot(prior, res.Model+" prior predictive", prefix+"prior_predictive"); err != nil {
			return a, err
		}
	}
	if res.PosteriorPredictive.Len() > 0 {
		if a.PosteriorPredictive, err = p.PredictivePlot(res.PosteriorPredictive, res.Model+" posterior predictive", prefix+"posterior_predictive"); err != nil {
			return a, err
		}
	}
	return a, nil
}
