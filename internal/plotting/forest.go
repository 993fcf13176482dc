package plotting

import (
	"fmt"
	"image/color"

	"bayesreg/internal/summary"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// ForestPlot draws the posterior mean and HDI of every parameter, one row per
// parameter. Several tables are stacked so models can be compared.
func (p *Plotter) ForestPlot(name string, tables ...*summary.Table) (string, error) {
	var labels []string
	var rows []summary.Row
	var models []int
	for m, t := range tables {
		for _, r := range t.Rows {
			label := r.Param
			if len(tables) > 1 {
				label = t.Model + ": " + r.Param
			}
			labels = append(labels, label)
			rows = append(rows, r)
			models = append(models, m)
		}
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("forest plot needs at least one summary row")
	}

	pl := plot.New()
	pl.Title.Text = "posterior mean with HDI"
	if len(tables) == 1 {
		pl.Title.Text = fmt.Sprintf("%s: mean with %.0f%% HDI", tables[0].Model, tables[0].HDIProb*100)
	}

	n := len(rows)
	// first row at the top
	ordered := make([]string, n)
	for i, r := range rows {
		y := float64(n - 1 - i)
		ordered[n-1-i] = labels[i]

		interval, err := plotter.NewLine(plotter.XYs{{X: r.HDILow, Y: y}, {X: r.HDIHigh, Y: y}})
		if err != nil {
			return "", fmt.Errorf("forest interval %s: %w", r.Param, err)
		}
		interval.LineStyle.Width = vg.Points(2)
		interval.LineStyle.Color = chainColor(models[i])
		pl.Add(interval)

		mean, err := plotter.NewScatter(plotter.XYs{{X: r.Mean, Y: y}})
		if err != nil {
			return "", fmt.Errorf("forest mean %s: %w", r.Param, err)
		}
		mean.GlyphStyle.Shape = draw.CircleGlyph{}
		mean.GlyphStyle.Radius = vg.Points(3)
		mean.GlyphStyle.Color = color.Black
		pl.Add(mean)
	}
	pl.NominalY(ordered...)
	pl.Add(plotter.NewGrid())

	return p.saveSingle(pl, name, 1.5, 0.4+0.15*float64(n))
}
