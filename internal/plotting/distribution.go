package plotting

import (
	"fmt"
	"image/color"

	"bayesreg/domain/inference"
	"bayesreg/internal/summary"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
)

var (
	fillColor = color.RGBA{R: 100, G: 149, B: 237, A: 160}
	meanColor = color.RGBA{R: 200, G: 30, B: 30, A: 255}
)

// DistributionPlot draws the pooled posterior histogram of every parameter
// with its mean and HDI bounds marked.
func (p *Plotter) DistributionPlot(res *inference.Result, tbl *summary.Table, name string) (string, error) {
	if err := res.Validate(); err != nil {
		return "", err
	}
	var grid [][]*plot.Plot
	for i, param := range res.ParamNames {
		pooled := inference.Pool(res.ParamAt(i))

		pl := plot.New()
		pl.Title.Text = param
		h, err := plotter.NewHist(plotter.Values(pooled), defaultBins)
		if err != nil {
			return "", fmt.Errorf("histogram %s: %w", param, err)
		}
		h.Normalize(1)
		h.FillColor = fillColor
		pl.Add(h)

		if row, ok := tbl.Row(param); ok {
			top := 0.0
			for _, b := range h.Bins {
				top = max(top, b.Weight)
			}
			marks := []struct {
				x      float64
				c      color.Color
				dashed bool
			}{
				{row.Mean, meanColor, false},
				{row.HDILow, color.Black, true},
				{row.HDIHigh, color.Black, true},
			}
			for _, mk := range marks {
				l, err := vline(mk.x, top, mk.c, mk.dashed)
				if err != nil {
					return "", err
				}
				pl.Add(l)
			}
		}

		grid = append(grid, []*plot.Plot{pl})
	}
	return p.saveGrid(grid, name)
}
