package ports

import (
	"context"

	"bayesreg/domain/inference"
	"bayesreg/domain/model"
)

// Sampler is the inference driver: it accepts a declarative model and
// returns a structured inference artifact. Implementations own all randomness.
type Sampler interface {
	// SamplePriorPredictive draws n parameter vectors from the priors and one
	// simulated response vector per draw, ignoring the observed response.
	SamplePriorPredictive(ctx context.Context, m *model.Model, n int, seed uint64) (*inference.PredictiveSamples, error)

	// SamplePosterior runs MCMC against the model's log posterior
	SamplePosterior(ctx context.Context, m *model.Model, settings inference.Settings) (*inference.Result, error)
}
