// Package profiling describes the columns of a loaded table for the inspect
// command and the report's data overview.
package profiling

import (
	"math"

	"bayesreg/domain/dataset"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ColumnProfile holds summary and shape statistics of one numeric column
type ColumnProfile struct {
	Name     string  `json:"name"`
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std"`
	Min      float64 `json:"min"`
	Q25      float64 `json:"q25"`
	Median   float64 `json:"median"`
	Q75      float64 `json:"q75"`
	Max      float64 `json:"max"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`
	Outliers int     `json:"outliers"`
	IsNormal bool    `json:"is_normal"`
	NormalP  float64 `json:"normal_p"`

	// Correlation with the response; NaN for the response itself
	ResponseCorrelation float64 `json:"response_correlation"`
}

// DistributionAnalyzer handles distribution shape analysis
type DistributionAnalyzer struct{}

// NewDistributionAnalyzer creates a new distribution analyzer
func NewDistributionAnalyzer() *DistributionAnalyzer {
	return &DistributionAnalyzer{}
}

// AnalyzeDistribution computes summary statistics of one column
func (da *DistributionAnalyzer) AnalyzeDistribution(name string, data []float64) (ColumnProfile, error) {
	p := ColumnProfile{Name: name, Count: len(data), ResponseCorrelation: math.NaN()}

	mean, err := stats.Mean(data)
	if err != nil {
		return p, err
	}
	stdDev, err := stats.StandardDeviationSample(data)
	if err != nil {
		return p, err
	}
	min, err := stats.Min(data)
	if err != nil {
		return p, err
	}
	max, err := stats.Max(data)
	if err != nil {
		return p, err
	}
	median, err := stats.Median(data)
	if err != nil {
		return p, err
	}

	// Quartiles for IQR-based outlier detection
	q25, err := stats.Percentile(data, 25)
	if err != nil {
		return p, err
	}
	q75, err := stats.Percentile(data, 75)
	if err != nil {
		return p, err
	}

	p.Mean, p.StdDev = mean, stdDev
	p.Min, p.Max, p.Median = min, max, median
	p.Q25, p.Q75 = q25, q75
	p.Skewness = calculateSkewness(data, mean, stdDev)
	p.Kurtosis = calculateKurtosis(data, mean, stdDev)
	p.Outliers = detectOutliers(data, q25, q75)
	p.IsNormal, p.NormalP = testNormality(p.Skewness, p.Kurtosis, len(data))
	return p, nil
}

// ProfileTable profiles the response followed by every predictor
func (da *DistributionAnalyzer) ProfileTable(t *dataset.Table) ([]ColumnProfile, error) {
	resp, err := da.AnalyzeDistribution(t.Response.Key.String(), t.Response.Values)
	if err != nil {
		return nil, err
	}
	out := []ColumnProfile{resp}

	for _, key := range t.Matrix.VariableKeys {
		col, _ := t.GetColumnData(key)
		p, err := da.AnalyzeDistribution(key.String(), col)
		if err != nil {
			return nil, err
		}
		p.ResponseCorrelation = stat.Correlation(col, t.Response.Values, nil)
		out = append(out, p)
	}
	return out, nil
}

// calculateSkewness computes sample skewness using the adjusted Fisher-Pearson coefficient
func calculateSkewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 || stdDev == 0 {
		return 0
	}

	n := float64(len(data))
	sumCubedDeviations := 0.0
	for _, x := range data {
		deviation := (x - mean) / stdDev
		sumCubedDeviations += deviation * deviation * deviation
	}

	skewness := sumCubedDeviations / n

	// Bias correction for sample skewness
	correction := math.Sqrt(n*(n-1)) / (n - 2)
	return skewness * correction
}

// calculateKurtosis computes sample excess kurtosis
func calculateKurtosis(data []float64, mean, stdDev float64) float64 {
	if len(data) < 4 || stdDev == 0 {
		return 0
	}

	n := float64(len(data))
	sumFourthDeviations := 0.0
	for _, x := range data {
		deviation := (x - mean) / stdDev
		sumFourthDeviations += deviation * deviation * deviation * deviation
	}

	return sumFourthDeviations/n - 3
}

// testNormality is the Jarque-Bera test: JB = n/6 (S^2 + K^2/4) ~ chi2(2)
func testNormality(skewness, excessKurtosis float64, n int) (isNormal bool, pValue float64) {
	if n < 8 {
		return false, 1.0
	}
	jb := float64(n) / 6 * (skewness*skewness + excessKurtosis*excessKurtosis/4)
	pValue = 1 - distuv.ChiSquared{K: 2}.CDF(jb)
	return pValue > 0.05, pValue
}

// detectOutliers counts values outside the 1.5 IQR fences
func detectOutliers(data []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lowerBound := q25 - 1.5*iqr
	upperBound := q75 + 1.5*iqr

	outlierCount := 0
	for _, x := range data {
		if x < lowerBound || x > upperBound {
			outlierCount++
		}
	}
	return outlierCount
}
