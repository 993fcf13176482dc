package mcmc

import (
	"context"

	"bayesreg/domain/inference"
	"bayesreg/domain/model"

	"go.uber.org/zap"
)

// posteriorPredictive simulates replicated responses from count evenly
// spaced pooled draws.
func (e *Engine) posteriorPredictive(ctx context.Context, m *model.Model, res *inference.Result, count int, seed uint64) (*inference.PredictiveSamples, error) {
	var pooled [][]float64
	for _, ch := range res.Chains {
		pooled = append(pooled, ch.Draws...)
	}
	if count > len(pooled) {
		count = len(pooled)
	}

	src := e.rng.SeededStream("posterior_predictive", seed)
	out := &inference.PredictiveSamples{
		Responses: make([][]float64, count),
		Params:    make([][]float64, count),
		Observed:  m.Observed(),
	}
	step := float64(len(pooled)) / float64(count)
	for i := 0; i < count; i++ {
		if i%e.chunkSize == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		theta := pooled[int(float64(i)*step)]
		out.Params[i] = append([]float64(nil), theta...)
		out.Responses[i] = m.SimulateResponse(theta, src, nil)
	}

	e.logger.Debug("posterior predictive complete", zap.Int("samples", count))
	return out, nil
}
