package plotting

import (
	"fmt"

	"bayesreg/domain/inference"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// TracePlot writes one row per parameter: per-chain marginal densities on the
// left, per-chain draws against iteration on the right.
func (p *Plotter) TracePlot(res *inference.Result, name string) (string, error) {
	if err := res.Validate(); err != nil {
		return "", err
	}
	grid := make([][]*plot.Plot, len(res.ParamNames))
	for i, param := range res.ParamNames {
		chains := res.ParamAt(i)
		lo, hi := bounds(chains...)

		density := plot.New()
		density.Title.Text = param
		density.Y.Label.Text = "density"

		trace := plot.New()
		trace.Title.Text = param
		trace.X.Label.Text = "draw"

		for c, draws := range chains {
			dl, err := plotter.NewLine(densityLine(draws, defaultBins, lo, hi))
			if err != nil {
				return "", fmt.Errorf("trace density %s: %w", param, err)
			}
			dl.LineStyle.Color = chainColor(c)
			density.Add(dl)

			pts := make(plotter.XYs, len(draws))
			for k, v := range draws {
				pts[k].X = float64(k)
				pts[k].Y = v
			}
			tl, err := plotter.NewLine(pts)
			if err != nil {
				return "", fmt.Errorf("trace %s: %w", param, err)
			}
			tl.LineStyle.Color = chainColor(c)
			tl.LineStyle.Width = vg.Points(0.5)
			trace.Add(tl)
		}
		grid[i] = []*plot.Plot{density, trace}
	}
	return p.saveGrid(grid, name)
}
