package report

import (
	"bayesreg/domain/inference"

	"github.com/montanaflynn/stats"
)

// Spread describes one set of response values
type Spread struct {
	N    int     `json:"n"`
	Mean float64 `json:"mean"`
	SD   float64 `json:"sd"`
	Low  float64 `json:"p3"`
	High float64 `json:"p97"`
}

// PredictiveCheck compares pooled simulated responses to the observed ones
type PredictiveCheck struct {
	Samples   int    `json:"samples"`
	Simulated Spread `json:"simulated"`
	Observed  Spread `json:"observed"`
}

// CheckPredictive summarizes a predictive sample set
func CheckPredictive(pp *inference.PredictiveSamples) PredictiveCheck {
	return PredictiveCheck{
		Samples:   pp.Len(),
		Simulated: spread(pp.Flatten()),
		Observed:  spread(pp.Observed),
	}
}

func spread(values []float64) Spread {
	if len(values) == 0 {
		return Spread{}
	}
	data := stats.Float64Data(values)
	s := Spread{N: len(values)}
	s.Mean, _ = data.Mean()
	if len(values) > 1 {
		s.SD, _ = data.StandardDeviationSample()
	}
	s.Low, _ = data.Percentile(3)
	s.High, _ = data.Percentile(97)
	return s
}
