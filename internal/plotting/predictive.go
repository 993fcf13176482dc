package plotting

import (
	"fmt"
	"image/color"

	"bayesreg/domain/inference"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// maxOverlay caps how many simulated datasets are overlaid
const maxOverlay = 50

var simColor = color.RGBA{R: 120, G: 120, B: 120, A: 90}

// PredictivePlot overlays the densities of simulated response vectors on the
// observed response density.
func (p *Plotter) PredictivePlot(pp *inference.PredictiveSamples, title, name string) (string, error) {
	if pp.Len() == 0 {
		return "", fmt.Errorf("no predictive samples to plot")
	}
	step := max(1, pp.Len()/maxOverlay)
	var shown [][]float64
	for i := 0; i < pp.Len(); i += step {
		shown = append(shown, pp.Responses[i])
	}
	lo, hi := bounds(append(shown, pp.Observed)...)

	pl := plot.New()
	pl.Title.Text = title
	pl.X.Label.Text = "response"
	pl.Y.Label.Text = "density"

	var simLine *plotter.Line
	for _, sim := range shown {
		l, err := plotter.NewLine(densityLine(sim, defaultBins, lo, hi))
		if err != nil {
			return "", fmt.Errorf("predictive density: %w", err)
		}
		l.LineStyle.Color = simColor
		l.LineStyle.Width = vg.Points(0.5)
		pl.Add(l)
		simLine = l
	}
	pl.Legend.Add("simulated", simLine)

	if len(pp.Observed) > 0 {
		obs, err := plotter.NewLine(densityLine(pp.Observed, defaultBins, lo, hi))
		if err != nil {
			return "", fmt.Errorf("observed density: %w", err)
		}
		obs.LineStyle.Color = color.Black
		obs.LineStyle.Width = vg.Points(1.5)
		pl.Add(obs)
		pl.Legend.Add("observed", obs)
	}
	pl.Legend.Top = true

	return p.saveSingle(pl, name, 1.5, 1.5)
}
