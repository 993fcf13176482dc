package model

import (
	"fmt"
	"math"
	"math/rand/v2"

	"bayesreg/domain/core"

	"gonum.org/v1/gonum/stat/distuv"
)

// Kind names a prior distribution family
type Kind string

const (
	KindNormal     Kind = "normal"
	KindUniform    Kind = "uniform"
	KindHalfNormal Kind = "half_normal"
)

// Prior is a declarative prior distribution. Only the fields used by Kind are read:
// Normal uses Mu/Sigma, HalfNormal uses Sigma, Uniform uses Lower/Upper.
type Prior struct {
	Kind  Kind    `json:"kind" koanf:"kind"`
	Mu    float64 `json:"mu,omitempty" koanf:"mu"`
	Sigma float64 `json:"sigma,omitempty" koanf:"sigma"`
	Lower float64 `json:"lower,omitempty" koanf:"lower"`
	Upper float64 `json:"upper,omitempty" koanf:"upper"`
}

// Normal returns a Normal(mu, sigma) prior
func Normal(mu, sigma float64) Prior {
	return Prior{Kind: KindNormal, Mu: mu, Sigma: sigma}
}

// Uniform returns a Uniform(lower, upper) prior
func Uniform(lower, upper float64) Prior {
	return Prior{Kind: KindUniform, Lower: lower, Upper: upper}
}

// HalfNormal returns a HalfNormal(sigma) prior with support [0, inf)
func HalfNormal(sigma float64) Prior {
	return Prior{Kind: KindHalfNormal, Sigma: sigma}
}

// IsZero reports whether the prior was left unset
func (p Prior) IsZero() bool {
	return p == Prior{}
}

// Validate checks the distribution parameters
func (p Prior) Validate(param string) error {
	switch p.Kind {
	case KindNormal, KindHalfNormal:
		if !(p.Sigma > 0) || math.IsInf(p.Sigma, 0) {
			return core.NewInvalidPriorError(param, fmt.Sprintf("sigma must be positive and finite, got %v", p.Sigma))
		}
	case KindUniform:
		if !(p.Upper > p.Lower) || math.IsInf(p.Lower, 0) || math.IsInf(p.Upper, 0) {
			return core.NewInvalidPriorError(param, fmt.Sprintf("uniform bounds must satisfy lower < upper, got [%v, %v]", p.Lower, p.Upper))
		}
	default:
		return core.NewInvalidPriorError(param, fmt.Sprintf("unknown kind %q", p.Kind))
	}
	return nil
}

// NonNegative reports whether the prior puts no mass below zero,
// which is required for a scale parameter.
func (p Prior) NonNegative() bool {
	switch p.Kind {
	case KindHalfNormal:
		return true
	case KindUniform:
		return p.Lower >= 0
	}
	return false
}

// LogProb evaluates the prior log density at x; -Inf outside the support.
func (p Prior) LogProb(x float64) float64 {
	switch p.Kind {
	case KindNormal:
		return distuv.Normal{Mu: p.Mu, Sigma: p.Sigma}.LogProb(x)
	case KindUniform:
		return distuv.Uniform{Min: p.Lower, Max: p.Upper}.LogProb(x)
	case KindHalfNormal:
		if x < 0 {
			return math.Inf(-1)
		}
		return math.Ln2 + distuv.Normal{Mu: 0, Sigma: p.Sigma}.LogProb(x)
	}
	return math.NaN()
}

// Rand draws one value from the prior using src
func (p Prior) Rand(src rand.Source) float64 {
	switch p.Kind {
	case KindNormal:
		return distuv.Normal{Mu: p.Mu, Sigma: p.Sigma, Src: src}.Rand()
	case KindUniform:
		return distuv.Uniform{Min: p.Lower, Max: p.Upper, Src: src}.Rand()
	case KindHalfNormal:
		return math.Abs(distuv.Normal{Mu: 0, Sigma: p.Sigma, Src: src}.Rand())
	}
	return math.NaN()
}

// Mean returns the prior mean
func (p Prior) Mean() float64 {
	switch p.Kind {
	case KindNormal:
		return p.Mu
	case KindUniform:
		return (p.Lower + p.Upper) / 2
	case KindHalfNormal:
		return p.Sigma * math.Sqrt(2/math.Pi)
	}
	return math.NaN()
}

// StdDev returns the prior standard deviation
func (p Prior) StdDev() float64 {
	switch p.Kind {
	case KindNormal:
		return p.Sigma
	case KindUniform:
		return (p.Upper - p.Lower) / math.Sqrt(12)
	case KindHalfNormal:
		return p.Sigma * math.Sqrt(1-2/math.Pi)
	}
	return math.NaN()
}

func (p Prior) String() string {
	switch p.Kind {
	case KindNormal:
		return fmt.Sprintf("Normal(mu=%g, sigma=%g)", p.Mu, p.Sigma)
	case KindUniform:
		return fmt.Sprintf("Uniform(lower=%g, upper=%g)", p.Lower, p.Upper)
	case KindHalfNormal:
		return fmt.Sprintf("HalfNormal(sigma=%g)", p.Sigma)
	}
	return fmt.Sprintf("Unknown(%s)", p.Kind)
}
