// Package ols fits the classical least-squares regression used to check
// that posterior means land where the data says they should.
package ols

import (
	"fmt"
	"math"

	"bayesreg/domain/core"
	"bayesreg/domain/model"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// maxCondition rejects design matrices too ill-conditioned to trust
const maxCondition = 1e12

// Coefficient is one least-squares estimate
type Coefficient struct {
	Name     string  `json:"name"`
	Estimate float64 `json:"estimate"`
	StdErr   float64 `json:"std_err"`
	TValue   float64 `json:"t"`
	PValue   float64 `json:"p"`
}

// Result is a fitted least-squares model
type Result struct {
	Coefficients []Coefficient `json:"coefficients"`
	Sigma        float64       `json:"sigma"` // residual standard error
	RSquared     float64       `json:"r_squared"`
	AdjRSquared  float64       `json:"adj_r_squared"`
	N            int           `json:"n"`
	DF           int           `json:"df"`
}

// Coefficient returns an estimate by name
func (r *Result) Coefficient(name string) (Coefficient, bool) {
	for _, c := range r.Coefficients {
		if c.Name == name {
			return c, true
		}
	}
	return Coefficient{}, false
}

// Fit regresses y on an intercept plus the columns of x. names holds the
// intercept name followed by one name per column.
func Fit(x [][]float64, y []float64, names []string) (*Result, error) {
	n := len(y)
	if n == 0 {
		return nil, core.ErrEmptyDataset
	}
	if len(x) != n {
		return nil, core.NewDimensionMismatchError("predictor rows", n, len(x))
	}
	d := 0
	if n > 0 {
		d = len(x[0])
	}
	p := d + 1
	if len(names) != p {
		return nil, core.NewDimensionMismatchError("coefficient names", p, len(names))
	}
	if n <= p {
		return nil, fmt.Errorf("%w: least squares needs more rows (%d) than coefficients (%d)", core.ErrDimensionMismatch, n, p)
	}

	a := mat.NewDense(n, p, nil)
	for i, row := range x {
		if len(row) != d {
			return nil, core.NewDimensionMismatchError(fmt.Sprintf("row %d", i), d, len(row))
		}
		a.Set(i, 0, 1)
		for j, v := range row {
			a.Set(i, j+1, v)
		}
	}
	yv := mat.NewVecDense(n, append([]float64(nil), y...))

	var qr mat.QR
	qr.Factorize(a)
	if c := qr.Cond(); c > maxCondition || math.IsInf(c, 1) {
		return nil, fmt.Errorf("design matrix is singular or nearly so (condition number %.3g)", c)
	}
	beta := mat.NewVecDense(p, nil)
	if err := qr.SolveVecTo(beta, false, yv); err != nil {
		return nil, fmt.Errorf("solve least squares: %w", err)
	}

	var fitted mat.VecDense
	fitted.MulVec(a, beta)
	var resid mat.VecDense
	resid.SubVec(yv, &fitted)
	rss := mat.Dot(&resid, &resid)

	mean := mat.Sum(yv) / float64(n)
	tss := 0.0
	for i := 0; i < n; i++ {
		dv := y[i] - mean
		tss += dv * dv
	}

	df := n - p
	sigma2 := rss / float64(df)

	var xtx mat.SymDense
	xtx.SymOuterK(1, a.T())
	var chol mat.Cholesky
	if !chol.Factorize(&xtx) {
		return nil, fmt.Errorf("X'X is not positive definite")
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, fmt.Errorf("invert X'X: %w", err)
	}

	tdist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
	res := &Result{
		Coefficients: make([]Coefficient, p),
		Sigma:        math.Sqrt(sigma2),
		N:            n,
		DF:           df,
	}
	for j := 0; j < p; j++ {
		est := beta.AtVec(j)
		se := math.Sqrt(sigma2 * inv.At(j, j))
		t := est / se
		res.Coefficients[j] = Coefficient{
			Name:     names[j],
			Estimate: est,
			StdErr:   se,
			TValue:   t,
			PValue:   2 * (1 - tdist.CDF(math.Abs(t))),
		}
	}
	if tss > 0 {
		res.RSquared = 1 - rss/tss
		res.AdjRSquared = 1 - (1-res.RSquared)*float64(n-1)/float64(df)
	}
	return res, nil
}

// FitModel fits least squares over the model's own data, naming coefficients
// after the model's location/intercept and slope parameters.
func FitModel(m *model.Model) (*Result, error) {
	center := m.CenterIndex()
	if center < 0 {
		return nil, fmt.Errorf("model %q has no linear intercept to compare", m.Name())
	}
	params := m.ParamNames()
	names := []string{params[center]}
	for _, idx := range m.SlopeIndices() {
		names = append(names, params[idx])
	}
	return Fit(m.Rows(), m.Observed(), names)
}
