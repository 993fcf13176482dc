package plotting

import (
	"bytes"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"bayesreg/domain/inference"
	"bayesreg/internal/summary"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func syntheticResult(chains, draws int) *inference.Result {
	rnd := rand.New(rand.NewPCG(1, 2))
	res := &inference.Result{
		Model:      "simple",
		ParamNames: []string{"intercept", "slope[x]", "sigma"},
		Settings:   inference.Settings{Chains: chains, Draws: draws, Thin: 1},
	}
	for c := 0; c < chains; c++ {
		ch := inference.Chain{Index: c}
		for i := 0; i < draws; i++ {
			ch.Draws = append(ch.Draws, []float64{
				85 + rnd.NormFloat64(),
				2 + 0.1*rnd.NormFloat64(),
				8 + 0.3*rnd.NormFloat64(),
			})
		}
		res.Chains = append(res.Chains, ch)
	}
	return res
}

func newTestPlotter(t *testing.T, format string) *Plotter {
	t.Helper()
	opts := DefaultOptions(t.TempDir())
	opts.Format = format
	p, err := New(opts, zaptest.NewLogger(t))
	require.NoError(t, err)
	return p
}

func assertFigure(t *testing.T, path, format string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, "."+format, filepath.Ext(path))
	switch format {
	case FormatPNG:
		assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), "png signature")
	case FormatSVG:
		assert.Contains(t, string(data), "<svg")
	}
}

func TestRenderRun(t *testing.T) {
	for _, format := range []string{FormatPNG, FormatSVG} {
		t.Run(format, func(t *testing.T) {
			p := newTestPlotter(t, format)
			res := syntheticResult(2, 200)
			tbl, err := summary.Summarize(res, 0)
			require.NoError(t, err)

			prior := &inference.PredictiveSamples{Observed: []float64{80, 85, 90}}
			for i := 0; i < 120; i++ {
				prior.Responses = append(prior.Responses, []float64{float64(60 + i%40), 85, float64(110 - i%30)})
			}

			art, err := p.RenderRun(res, tbl, prior)
			require.NoError(t, err)
			assert.Len(t, art.Paths(), 4)
			assert.Empty(t, art.PosteriorPredictive)
			for _, path := range art.Paths() {
				assertFigure(t, path, format)
			}
		})
	}
}

func TestForestPlot_MultipleModels(t *testing.T) {
	p := newTestPlotter(t, FormatPNG)
	a := &summary.Table{Model: "naive", HDIProb: 0.94, Rows: []summary.Row{{Param: "mu", Mean: 80, HDILow: 78, HDIHigh: 82}}}
	b := &summary.Table{Model: "simple", HDIProb: 0.94, Rows: []summary.Row{
		{Param: "intercept", Mean: 85, HDILow: 83, HDIHigh: 87},
		{Param: "slope[x]", Mean: 2, HDILow: 1.5, HDIHigh: 2.5},
	}}

	path, err := p.ForestPlot("compare", a, b)
	require.NoError(t, err)
	assertFigure(t, path, FormatPNG)

	_, err = p.ForestPlot("empty")
	assert.Error(t, err)
}

func TestPredictivePlot_Empty(t *testing.T) {
	p := newTestPlotter(t, FormatPNG)
	_, err := p.PredictivePlot(&inference.PredictiveSamples{}, "prior", "prior")
	assert.Error(t, err)
}

func TestNew_RejectsFormat(t *testing.T) {
	_, err := New(Options{Dir: t.TempDir(), Format: "gif"}, nil)
	assert.Error(t, err)
}

func TestDensityLine(t *testing.T) {
	data := []float64{0, 0.1, 0.2, 0.9, 1}
	pts := densityLine(data, 2, 0, 1)
	require.Len(t, pts, 2)
	assert.InDelta(t, 0.25, pts[0].X, 1e-12)
	// area under the outline is one
	assert.InDelta(t, 1, (pts[0].Y+pts[1].Y)*0.5, 1e-12)
	assert.InDelta(t, 3.0/5/0.5, pts[0].Y, 1e-12)
}
