// Package testkit provides synthetic datasets and model fixtures for tests
// and demos.
package testkit

import (
	"bayesreg/domain/core"
	"bayesreg/domain/dataset"
	"bayesreg/domain/model"
)

// RegressionConfig returns a noise-light, missing-free config with the given
// number of students and slopes, for checks against least squares.
func RegressionConfig(students int, seed uint64) StudentGeneratorConfig {
	cfg := DefaultStudentConfig()
	cfg.Students = students
	cfg.MissingRate = 0
	cfg.Seed = seed
	return cfg
}

// MustTable generates a complete table or panics
func MustTable(cfg StudentGeneratorConfig) *dataset.Table {
	cfg.MissingRate = 0
	t, err := NewStudentScoreGenerator(cfg).Generate().Table()
	if err != nil {
		panic(err)
	}
	return t
}

// LineTable returns y = intercept + slope*x + noise with x ~ N(0, 0.6)
func LineTable(n int, intercept, slope, noise float64, seed uint64) *dataset.Table {
	cfg := StudentGeneratorConfig{
		Students:   n,
		Intercept:  intercept,
		NoiseSD:    noise,
		Predictors: []PredictorSpec{{Name: "x", Mean: 0, SD: 0.6, Coef: slope}},
		Seed:       seed,
	}
	return MustTable(cfg)
}

// ProductModel is the unidentifiable regression mu = a + b1*b2*x: only the
// product b1*b2 is determined by the data, so (b1, b2) and (-b1, -b2) fit
// equally well.
func ProductModel(t *dataset.Table) (*model.Model, error) {
	return model.New(model.Spec{
		Name:    "product",
		Variant: model.VariantCustom,
		Parameters: []model.ParameterDef{
			{Name: "a", Role: model.RoleIntercept, Prior: model.Normal(0, 20)},
			{Name: "b1", Role: model.RoleFree, Prior: model.Normal(0, 10)},
			{Name: "b2", Role: model.RoleFree, Prior: model.Normal(0, 10)},
			{Name: "sigma", Role: model.RoleScale, Prior: model.HalfNormal(5)},
		},
		Predictors: []core.VariableKey{t.Matrix.VariableKeys[0]},
		X:          t.Matrix.Data,
		Y:          t.Response.Values,
		Predictor: func(theta, row []float64) float64 {
			return theta[0] + theta[1]*theta[2]*row[0]
		},
	})
}
