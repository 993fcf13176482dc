package model

import (
	"fmt"

	"bayesreg/domain/core"
	"bayesreg/domain/dataset"
)

// PriorSet holds the priors used by the documented model variants
type PriorSet struct {
	Location  Prior `json:"location" koanf:"location"`   // naive model mean
	Intercept Prior `json:"intercept" koanf:"intercept"` // regression intercept
	Slope     Prior `json:"slope" koanf:"slope"`         // every slope
	Scale     Prior `json:"scale" koanf:"scale"`         // likelihood sigma
}

// DefaultPriors returns the documented priors of a variant
func DefaultPriors(v Variant) PriorSet {
	ps := PriorSet{
		Location:  Normal(100, 20),
		Intercept: Normal(100, 50),
		Slope:     Normal(0, 10),
		Scale:     Uniform(0, 50),
	}
	if v == VariantMulti {
		ps.Scale = HalfNormal(25)
	}
	return ps
}

// merge fills unset priors of ps from defaults
func (ps PriorSet) merge(defaults PriorSet) PriorSet {
	if ps.Location.IsZero() {
		ps.Location = defaults.Location
	}
	if ps.Intercept.IsZero() {
		ps.Intercept = defaults.Intercept
	}
	if ps.Slope.IsZero() {
		ps.Slope = defaults.Slope
	}
	if ps.Scale.IsZero() {
		ps.Scale = defaults.Scale
	}
	return ps
}

type buildOptions struct {
	name   string
	priors PriorSet
	slopes []core.VariableKey
}

// Option customizes a builder
type Option func(*buildOptions)

// WithName sets the model name shown in reports
func WithName(name string) Option {
	return func(o *buildOptions) { o.name = name }
}

// WithPriors overrides any non-zero prior of the documented set
func WithPriors(ps PriorSet) Option {
	return func(o *buildOptions) { o.priors = ps }
}

// WithSlopes names the slope vector explicitly. Its length must equal the
// number of predictor columns and names must match them positionally.
func WithSlopes(names ...core.VariableKey) Option {
	return func(o *buildOptions) { o.slopes = append([]core.VariableKey(nil), names...) }
}

func resolve(v Variant, opts []Option) buildOptions {
	o := buildOptions{name: string(v)}
	for _, opt := range opts {
		opt(&o)
	}
	o.priors = o.priors.merge(DefaultPriors(v))
	return o
}

// BuildNaive builds the no-predictor model: y ~ Normal(mu, sigma)
func BuildNaive(t *dataset.Table, opts ...Option) (*Model, error) {
	if t == nil || t.RowCount() == 0 {
		return nil, core.ErrEmptyDataset
	}
	o := resolve(VariantNaive, opts)

	return New(Spec{
		Name:    o.name,
		Variant: VariantNaive,
		Parameters: []ParameterDef{
			{Name: "mu", Role: RoleLocation, Prior: o.priors.Location},
			{Name: "sigma", Role: RoleScale, Prior: o.priors.Scale},
		},
		X: make([][]float64, t.RowCount()),
		Y: t.Response.Values,
	})
}

// BuildSimple builds the one-predictor regression on the named column
func BuildSimple(t *dataset.Table, predictor core.VariableKey, opts ...Option) (*Model, error) {
	if t == nil || t.RowCount() == 0 {
		return nil, core.ErrEmptyDataset
	}
	sub, err := t.Select(predictor)
	if err != nil {
		return nil, err
	}
	return buildRegression(VariantSimple, sub, opts)
}

// BuildMulti builds the regression over every predictor column of the table
func BuildMulti(t *dataset.Table, opts ...Option) (*Model, error) {
	if t == nil || t.RowCount() == 0 {
		return nil, core.ErrEmptyDataset
	}
	return buildRegression(VariantMulti, t, opts)
}

func buildRegression(v Variant, t *dataset.Table, opts []Option) (*Model, error) {
	o := resolve(v, opts)

	predictors := t.Matrix.VariableKeys
	slopes := o.slopes
	if slopes == nil {
		slopes = predictors
	}
	if len(slopes) != len(predictors) {
		return nil, core.NewDimensionMismatchError("slope vector length", len(predictors), len(slopes))
	}

	params := make([]ParameterDef, 0, len(slopes)+2)
	params = append(params, ParameterDef{Name: "intercept", Role: RoleIntercept, Prior: o.priors.Intercept})
	for _, s := range slopes {
		params = append(params, ParameterDef{
			Name:      SlopeName(s),
			Role:      RoleSlope,
			Prior:     o.priors.Slope,
			Predictor: s,
		})
	}
	params = append(params, ParameterDef{Name: "sigma", Role: RoleScale, Prior: o.priors.Scale})

	m, err := New(Spec{
		Name:       o.name,
		Variant:    v,
		Parameters: params,
		Predictors: predictors,
		X:          t.Matrix.Data,
		Y:          t.Response.Values,
	})
	if err != nil {
		return nil, fmt.Errorf("build %s model: %w", v, err)
	}
	return m, nil
}

// Build dispatches on variant; predictor is only used by the simple model.
func Build(v Variant, t *dataset.Table, predictor core.VariableKey, opts ...Option) (*Model, error) {
	switch v {
	case VariantNaive:
		return BuildNaive(t, opts...)
	case VariantSimple:
		if predictor == "" {
			if t == nil || t.PredictorCount() == 0 {
				return nil, core.NewMissingColumnError("predictor")
			}
			predictor = t.Matrix.VariableKeys[0]
		}
		return BuildSimple(t, predictor, opts...)
	case VariantMulti:
		return BuildMulti(t, opts...)
	}
	return nil, fmt.Errorf("unknown model variant %q", v)
}
