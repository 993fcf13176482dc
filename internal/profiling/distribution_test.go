package profiling

import (
	"math"
	"testing"

	"bayesreg/domain/core"
	"bayesreg/domain/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeDistribution(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 100}

	p, err := NewDistributionAnalyzer().AnalyzeDistribution("x", data)
	require.NoError(t, err)
	assert.Equal(t, 10, p.Count)
	assert.Equal(t, 14.5, p.Mean)
	assert.Equal(t, 1.0, p.Min)
	assert.Equal(t, 100.0, p.Max)
	assert.Equal(t, 5.5, p.Median)
	assert.Equal(t, 1, p.Outliers)
	assert.Greater(t, p.Skewness, 2.0)
	assert.True(t, math.IsNaN(p.ResponseCorrelation))

	_, err = NewDistributionAnalyzer().AnalyzeDistribution("empty", nil)
	assert.Error(t, err)
}

func TestProfileTable(t *testing.T) {
	tbl, err := dataset.NewTable("t", "score",
		[]float64{90, 80, 70, 60},
		[]core.VariableKey{"siblings"},
		[][]float64{{0}, {1}, {2}, {3}},
	)
	require.NoError(t, err)

	profiles, err := NewDistributionAnalyzer().ProfileTable(tbl)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "score", profiles[0].Name)
	assert.Equal(t, "siblings", profiles[1].Name)
	assert.InDelta(t, -1, profiles[1].ResponseCorrelation, 1e-12)
}
