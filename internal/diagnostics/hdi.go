package diagnostics

import (
	"fmt"
	"math"
	"sort"
)

// DefaultHDIProb is the default highest-density interval mass
const DefaultHDIProb = 0.94

// HDI returns the narrowest interval containing prob of the samples
func HDI(samples []float64, prob float64) (low, high float64, err error) {
	if prob <= 0 || prob >= 1 {
		return 0, 0, fmt.Errorf("hdi probability must be in (0, 1), got %v", prob)
	}
	n := len(samples)
	if n < 2 {
		return math.NaN(), math.NaN(), fmt.Errorf("hdi needs at least 2 samples, got %d", n)
	}

	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	inc := int(math.Floor(prob * float64(n)))
	intervals := n - inc
	if inc == 0 || intervals <= 0 {
		return sorted[0], sorted[n-1], nil
	}

	best := 0
	width := math.Inf(1)
	for i := 0; i < intervals; i++ {
		if w := sorted[i+inc] - sorted[i]; w < width {
			width = w
			best = i
		}
	}
	return sorted[best], sorted[best+inc], nil
}

// HDILabels returns the column names used for an interval, e.g. hdi_3% and hdi_97%
func HDILabels(prob float64) (string, string) {
	tail := (1 - prob) / 2 * 100
	return fmt.Sprintf("hdi_%s%%", trimFloat(tail)), fmt.Sprintf("hdi_%s%%", trimFloat(100-tail))
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.1f", v)
	if len(s) > 2 && s[len(s)-2:] == ".0" {
		return s[:len(s)-2]
	}
	return s
}
