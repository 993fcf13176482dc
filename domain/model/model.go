// Package model holds the declarative generative models: an ordered parameter
// registry with priors, the observed data the likelihood is conditioned on, and
// the linear predictor that links them. A Model never samples by itself; it only
// evaluates densities for an external engine.
package model

import (
	"fmt"
	"math"
	"math/rand/v2"

	"bayesreg/domain/core"
	"bayesreg/domain/dataset"

	"gonum.org/v1/gonum/stat/distuv"
)

// Variant identifies which of the documented model shapes a Model has
type Variant string

const (
	VariantNaive  Variant = "naive"
	VariantSimple Variant = "simple"
	VariantMulti  Variant = "multi"
	VariantCustom Variant = "custom"
)

// ParseVariant maps a CLI/config string to a Variant
func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantNaive, VariantSimple, VariantMulti:
		return Variant(s), nil
	}
	return "", fmt.Errorf("unknown model %q (want naive, simple or multi)", s)
}

// LinearPredictorFunc computes the likelihood location for one data row from a
// full parameter vector in registry order.
type LinearPredictorFunc func(theta, row []float64) float64

// Spec is everything needed to construct a Model
type Spec struct {
	Name       string
	Variant    Variant
	Parameters []ParameterDef
	Predictors []core.VariableKey
	X          [][]float64
	Y          []float64

	// Predictor overrides the default intercept + slopes . row. When set,
	// parameters with RoleFree are allowed and slope/column alignment is not checked.
	Predictor LinearPredictorFunc
}

// Model is an immutable generative model: priors over the registry plus
// y_i ~ Normal(mu_i, sigma) conditioned on the observed response.
type Model struct {
	name       string
	variant    Variant
	registry   *Registry
	predictors []core.VariableKey
	x          [][]float64
	y          []float64

	centerIdx int   // location or intercept coordinate
	slopeIdx  []int // slope coordinates, aligned with predictor columns
	scaleIdx  int
	custom    LinearPredictorFunc
}

// New validates a spec and freezes it into a Model
func New(spec Spec) (*Model, error) {
	if len(spec.Y) == 0 {
		return nil, core.ErrEmptyDataset
	}
	if len(spec.X) != len(spec.Y) {
		return nil, core.NewDimensionMismatchError("predictor rows", len(spec.Y), len(spec.X))
	}
	d := len(spec.Predictors)
	for i, row := range spec.X {
		if len(row) != d {
			return nil, fmt.Errorf("%w: row %d has %d values, expected %d", core.ErrDimensionMismatch, i, len(row), d)
		}
	}

	reg, err := NewRegistry(spec.Parameters)
	if err != nil {
		return nil, err
	}

	m := &Model{
		name:       spec.Name,
		variant:    spec.Variant,
		registry:   reg,
		predictors: append([]core.VariableKey(nil), spec.Predictors...),
		x:          copyRows(spec.X),
		y:          append([]float64(nil), spec.Y...),
		centerIdx:  -1,
		custom:     spec.Predictor,
	}
	if m.name == "" {
		m.name = string(spec.Variant)
	}

	scales := reg.ByRole(RoleScale)
	if len(scales) != 1 {
		return nil, fmt.Errorf("%w: model needs exactly one scale parameter, got %d", core.ErrDimensionMismatch, len(scales))
	}
	m.scaleIdx = scales[0]
	if def := reg.defs[m.scaleIdx]; !def.Prior.NonNegative() {
		return nil, core.NewInvalidPriorError(def.Name.String(), "scale prior must have non-negative support")
	}

	if m.custom != nil {
		return m, nil
	}

	if free := reg.ByRole(RoleFree); len(free) > 0 {
		return nil, fmt.Errorf("free parameter %q requires a custom linear predictor", reg.defs[free[0]].Name)
	}

	centers := append(reg.ByRole(RoleLocation), reg.ByRole(RoleIntercept)...)
	if len(centers) != 1 {
		return nil, fmt.Errorf("%w: model needs exactly one location or intercept, got %d", core.ErrDimensionMismatch, len(centers))
	}
	m.centerIdx = centers[0]

	m.slopeIdx = reg.ByRole(RoleSlope)
	if len(m.slopeIdx) != d {
		return nil, core.NewDimensionMismatchError("slope vector length", d, len(m.slopeIdx))
	}
	for j, idx := range m.slopeIdx {
		if p := reg.defs[idx].Predictor; p != spec.Predictors[j] {
			return nil, fmt.Errorf("%w: slope %d is for %q but predictor column %d is %q",
				core.ErrDimensionMismatch, j, p, j, spec.Predictors[j])
		}
	}

	return m, nil
}

// Name returns the model name
func (m *Model) Name() string { return m.name }

// Variant returns the model variant
func (m *Model) Variant() Variant { return m.variant }

// Dim returns the number of free parameters
func (m *Model) Dim() int { return m.registry.Len() }

// Parameters returns the registry definitions in coordinate order
func (m *Model) Parameters() []ParameterDef { return m.registry.Defs() }

// ParamNames returns the parameter names in coordinate order
func (m *Model) ParamNames() []string { return m.registry.Names() }

// Registry exposes the read-only parameter registry
func (m *Model) Registry() *Registry { return m.registry }

// Predictors returns the predictor column names the slopes are aligned with
func (m *Model) Predictors() []core.VariableKey {
	return append([]core.VariableKey(nil), m.predictors...)
}

// N returns the number of observations
func (m *Model) N() int { return len(m.y) }

// Observed returns a copy of the observed response
func (m *Model) Observed() []float64 { return append([]float64(nil), m.y...) }

// Rows returns a copy of the predictor rows
func (m *Model) Rows() [][]float64 { return copyRows(m.x) }

// ScaleIndex returns the coordinate of the likelihood standard deviation
func (m *Model) ScaleIndex() int { return m.scaleIdx }

// SlopeIndices returns the slope coordinates aligned with Predictors
func (m *Model) SlopeIndices() []int { return append([]int(nil), m.slopeIdx...) }

// CenterIndex returns the location/intercept coordinate, or -1 for custom models
func (m *Model) CenterIndex() int { return m.centerIdx }

// LinearPredictor evaluates mu_i for every observation
func (m *Model) LinearPredictor(theta []float64) ([]float64, error) {
	if len(theta) != m.Dim() {
		return nil, core.NewDimensionMismatchError("parameter vector", m.Dim(), len(theta))
	}
	mu := make([]float64, len(m.x))
	for i, row := range m.x {
		mu[i] = m.mu(theta, row)
	}
	return mu, nil
}

func (m *Model) mu(theta, row []float64) float64 {
	if m.custom != nil {
		return m.custom(theta, row)
	}
	v := theta[m.centerIdx]
	for j, idx := range m.slopeIdx {
		v += theta[idx] * row[j]
	}
	return v
}

// LogPrior sums the prior log densities
func (m *Model) LogPrior(theta []float64) float64 {
	lp := 0.0
	for i, d := range m.registry.defs {
		lp += d.Prior.LogProb(theta[i])
		if math.IsInf(lp, -1) {
			return lp
		}
	}
	return lp
}

// LogLikelihood is the Normal log likelihood of the observed response
func (m *Model) LogLikelihood(theta []float64) float64 {
	sigma := theta[m.scaleIdx]
	if !(sigma > 0) {
		return math.Inf(-1)
	}
	ll := 0.0
	for i, row := range m.x {
		ll += distuv.Normal{Mu: m.mu(theta, row), Sigma: sigma}.LogProb(m.y[i])
	}
	return ll
}

// LogProb is the unnormalized log posterior. It satisfies distmv.LogProber so
// a Model can be handed straight to the sampling engine. Safe for concurrent use.
func (m *Model) LogProb(theta []float64) float64 {
	lp := m.LogPrior(theta)
	if math.IsInf(lp, -1) || math.IsNaN(lp) {
		return math.Inf(-1)
	}
	return lp + m.LogLikelihood(theta)
}

// PriorMeans returns the prior mean of every parameter
func (m *Model) PriorMeans() []float64 {
	out := make([]float64, m.Dim())
	for i, d := range m.registry.defs {
		out[i] = d.Prior.Mean()
	}
	return out
}

// PriorStdDevs returns the prior standard deviation of every parameter
func (m *Model) PriorStdDevs() []float64 {
	out := make([]float64, m.Dim())
	for i, d := range m.registry.defs {
		out[i] = d.Prior.StdDev()
	}
	return out
}

// SamplePrior draws one parameter vector from the priors
func (m *Model) SamplePrior(src rand.Source) []float64 {
	theta := make([]float64, m.Dim())
	for i, d := range m.registry.defs {
		theta[i] = d.Prior.Rand(src)
	}
	return theta
}

// SimulateResponse draws y_i ~ Normal(mu_i, sigma) for every row into dst
func (m *Model) SimulateResponse(theta []float64, src rand.Source, dst []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(m.x))
	}
	sigma := theta[m.scaleIdx]
	for i, row := range m.x {
		dst[i] = distuv.Normal{Mu: m.mu(theta, row), Sigma: sigma, Src: src}.Rand()
	}
	return dst
}

// TableView returns the observed data as a dataset table
func (m *Model) TableView(source string, response core.VariableKey) (*dataset.Table, error) {
	return dataset.NewTable(source, response, m.y, m.predictors, m.x)
}

func copyRows(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		out[i] = append([]float64(nil), row...)
	}
	return out
}
