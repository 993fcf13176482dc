package ols

import (
	"testing"

	"bayesreg/domain/core"
	"bayesreg/domain/model"
	"bayesreg/internal/summary"
	"bayesreg/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func TestFit_ExactLine(t *testing.T) {
	x := [][]float64{{0}, {1}, {2}, {3}, {4}}
	y := []float64{1, 3, 5, 7, 9.0001}

	res, err := Fit(x, y, []string{"intercept", "slope"})
	require.NoError(t, err)
	assert.InDelta(t, 1, res.Coefficients[0].Estimate, 1e-3)
	assert.InDelta(t, 2, res.Coefficients[1].Estimate, 1e-3)
	assert.InDelta(t, 1, res.RSquared, 1e-6)
	assert.Equal(t, 3, res.DF)
}

func TestFit_MatchesSimpleRegression(t *testing.T) {
	tbl := testkit.LineTable(200, 10, -4, 2, 3)
	col, _ := tbl.GetColumnData("x")

	res, err := Fit(tbl.Matrix.Data, tbl.Response.Values, []string{"intercept", "x"})
	require.NoError(t, err)

	alpha, beta := stat.LinearRegression(col, tbl.Response.Values, nil, false)
	assert.InDelta(t, alpha, res.Coefficients[0].Estimate, 1e-8)
	assert.InDelta(t, beta, res.Coefficients[1].Estimate, 1e-8)
	assert.Less(t, res.Coefficients[1].PValue, 1e-6)
	assert.InDelta(t, 2, res.Sigma, 0.4)
}

func TestFit_Errors(t *testing.T) {
	_, err := Fit(nil, nil, []string{"intercept"})
	assert.ErrorIs(t, err, core.ErrEmptyDataset)

	_, err = Fit([][]float64{{1}, {2}}, []float64{1, 2}, []string{"intercept", "x"})
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	_, err = Fit([][]float64{{1}, {1}, {1}, {1}}, []float64{1, 2, 3, 4}, []string{"intercept", "x"})
	assert.Error(t, err, "collinear with the intercept")
}

func TestFitModel_Naive(t *testing.T) {
	tbl := testkit.LineTable(50, 70, 0, 5, 9)
	m, err := model.BuildNaive(tbl)
	require.NoError(t, err)

	res, err := FitModel(m)
	require.NoError(t, err)
	require.Len(t, res.Coefficients, 1)
	assert.Equal(t, "mu", res.Coefficients[0].Name)
	assert.InDelta(t, stat.Mean(tbl.Response.Values, nil), res.Coefficients[0].Estimate, 1e-9)
}

func TestCompare(t *testing.T) {
	fit := &Result{Coefficients: []Coefficient{
		{Name: "intercept", Estimate: 10, StdErr: 1},
		{Name: "slope[x]", Estimate: 2, StdErr: 0.1},
	}}
	post := &summary.Table{Rows: []summary.Row{
		{Param: "intercept", Mean: 10.5},
		{Param: "slope[x]", Mean: 2.5},
		{Param: "sigma", Mean: 3},
	}}

	rows := Compare(post, fit, 0)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Agrees)
	assert.InDelta(t, 5, rows[1].DiffInSE, 1e-9)
	assert.False(t, rows[1].Agrees)
	assert.False(t, AllAgree(rows))
}
