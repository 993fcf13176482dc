// Package plotting renders sampler output as trace, forest, distribution and
// predictive-check figures with gonum/plot.
package plotting

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgsvg"
)

const (
	FormatPNG = "png"
	FormatSVG = "svg"

	defaultBins = 30
)

// Options controls where and how figures are written
type Options struct {
	Dir    string  `koanf:"dir"`
	Format string  `koanf:"format" validate:"oneof=png svg"`
	Width  float64 `koanf:"width" validate:"gt=0"`  // inches per panel
	Height float64 `koanf:"height" validate:"gt=0"` // inches per panel
}

// DefaultOptions writes PNGs into dir
func DefaultOptions(dir string) Options {
	return Options{Dir: dir, Format: FormatPNG, Width: 4, Height: 2.5}
}

// Plotter writes figures to a directory
type Plotter struct {
	opts   Options
	logger *zap.Logger
}

// New creates a plotter, creating the output directory if needed
func New(opts Options, logger *zap.Logger) (*Plotter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Format == "" {
		opts.Format = FormatPNG
	}
	if opts.Format != FormatPNG && opts.Format != FormatSVG {
		return nil, fmt.Errorf("unsupported plot format %q", opts.Format)
	}
	if opts.Width <= 0 {
		opts.Width = 4
	}
	if opts.Height <= 0 {
		opts.Height = 2.5
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create plot directory: %w", err)
	}
	return &Plotter{opts: opts, logger: logger}, nil
}

// path returns the output file for a figure name
func (p *Plotter) path(name string) string {
	return filepath.Join(p.opts.Dir, name+"."+p.opts.Format)
}

// panel returns the size of one panel
func (p *Plotter) panel() (vg.Length, vg.Length) {
	return vg.Length(p.opts.Width) * vg.Inch, vg.Length(p.opts.Height) * vg.Inch
}

type canvasWriter interface {
	vg.CanvasSizer
	io.WriterTo
}

func newCanvas(format string, w, h vg.Length) (canvasWriter, error) {
	switch strings.ToLower(format) {
	case FormatPNG:
		return vgimg.PngCanvas{Canvas: vgimg.New(w, h)}, nil
	case FormatSVG:
		return vgsvg.New(w, h), nil
	}
	return nil, fmt.Errorf("unsupported plot format %q", format)
}

// saveGrid lays plots out in a rows x cols grid and writes a single file
func (p *Plotter) saveGrid(plots [][]*plot.Plot, name string) (string, error) {
	rows := len(plots)
	if rows == 0 {
		return "", fmt.Errorf("no plots to save for %s", name)
	}
	cols := len(plots[0])
	pw, ph := p.panel()

	c, err := newCanvas(p.opts.Format, pw*vg.Length(cols), ph*vg.Length(rows))
	if err != nil {
		return "", err
	}
	tiles := draw.Tiles{
		Rows: rows, Cols: cols,
		PadX: vg.Millimeter, PadY: vg.Millimeter,
		PadTop: vg.Points(2), PadBottom: vg.Points(2),
		PadLeft: vg.Points(2), PadRight: vg.Points(2),
	}
	canvases := plot.Align(plots, tiles, draw.New(c))
	for i := range plots {
		for j := range plots[i] {
			if plots[i][j] != nil {
				plots[i][j].Draw(canvases[i][j])
			}
		}
	}
	return p.write(c, name)
}

// saveSingle writes one plot scaled by the given panel multiples
func (p *Plotter) saveSingle(pl *plot.Plot, name string, wScale, hScale float64) (string, error) {
	pw, ph := p.panel()
	c, err := newCanvas(p.opts.Format, vg.Length(wScale)*pw, vg.Length(hScale)*ph)
	if err != nil {
		return "", err
	}
	pl.Draw(draw.New(c))
	return p.write(c, name)
}

func (p *Plotter) write(c io.WriterTo, name string) (string, error) {
	path := p.path(name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	p.logger.Debug("wrote figure", zap.String("path", path))
	return path, nil
}

// chainColor picks a distinct color per chain
func chainColor(i int) color.Color {
	return plotutil.Color(i)
}

// densityLine is a normalized histogram outline through bin centers over [lo, hi]
func densityLine(data []float64, bins int, lo, hi float64) plotter.XYs {
	if bins < 1 {
		bins = defaultBins
	}
	if !(hi > lo) {
		lo, hi = lo-0.5, hi+0.5
	}
	width := (hi - lo) / float64(bins)
	counts := make([]float64, bins)
	n := 0
	for _, v := range data {
		if math.IsNaN(v) || v < lo || v > hi {
			continue
		}
		k := int((v - lo) / width)
		if k == bins {
			k--
		}
		counts[k]++
		n++
	}
	pts := make(plotter.XYs, bins)
	for k := range counts {
		pts[k].X = lo + (float64(k)+0.5)*width
		if n > 0 {
			pts[k].Y = counts[k] / (float64(n) * width)
		}
	}
	return pts
}

// bounds returns the min and max over several slices
func bounds(sets ...[]float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range sets {
		for _, v := range s {
			if math.IsNaN(v) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return lo, hi
}

// vline is a vertical segment at x from 0 to height
func vline(x, height float64, c color.Color, dashed bool) (*plotter.Line, error) {
	l, err := plotter.NewLine(plotter.XYs{{X: x, Y: 0}, {X: x, Y: height}})
	if err != nil {
		return nil, err
	}
	l.LineStyle.Color = c
	l.LineStyle.Width = vg.Points(1)
	if dashed {
		l.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	}
	return l, nil
}
