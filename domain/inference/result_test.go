package inference

import (
	"testing"

	"bayesreg/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoChainResult() *Result {
	return &Result{
		ParamNames: []string{"mu", "sigma"},
		Chains: []Chain{
			{Index: 0, Draws: [][]float64{{1, 10}, {2, 11}}, AcceptanceRate: 0.3},
			{Index: 1, Draws: [][]float64{{3, 12}, {4, 13}}, AcceptanceRate: 0.4},
		},
	}
}

func TestResult_ParamAccess(t *testing.T) {
	r := twoChainResult()
	require.NoError(t, r.Validate())
	assert.Equal(t, 2, r.NumChains())
	assert.Equal(t, 2, r.NumDraws())

	sigma, err := r.Param("sigma")
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{10, 11}, {12, 13}}, sigma)

	flat, err := r.Flatten("mu")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, flat)

	_, err = r.Param("tau")
	assert.ErrorIs(t, err, core.ErrParameterNotFound)
	assert.Equal(t, []float64{0.3, 0.4}, r.AcceptanceRates())
}

func TestResult_ValidateRaggedChains(t *testing.T) {
	r := twoChainResult()
	r.Chains[1].Draws = r.Chains[1].Draws[:1]
	assert.ErrorIs(t, r.Validate(), core.ErrDimensionMismatch)

	assert.ErrorIs(t, (&Result{}).Validate(), core.ErrSamplerFailed)
}

func TestSettings_Validate(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate(3))

	s.InitialPoints = [][]float64{{1, 2, 3}}
	assert.ErrorIs(t, s.Validate(3), core.ErrDimensionMismatch)

	s.Chains = 1
	assert.NoError(t, s.Validate(3))
	assert.ErrorIs(t, s.Validate(2), core.ErrDimensionMismatch)

	s.Thin = 0
	assert.Error(t, s.Validate(3))
}

func TestPredictiveSamples(t *testing.T) {
	p := &PredictiveSamples{Responses: [][]float64{{1, 3}, {5, 7}}}
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, []float64{1, 3, 5, 7}, p.Flatten())
	assert.Equal(t, []float64{2, 6}, p.Means())

	var none *PredictiveSamples
	assert.Equal(t, 0, none.Len())
}
