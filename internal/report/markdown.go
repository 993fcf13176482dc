package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bayesreg/domain/inference"
	"bayesreg/domain/model"
	"bayesreg/internal/diagnostics"
	"bayesreg/internal/ols"
	"bayesreg/internal/plotting"
	"bayesreg/internal/summary"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// DataOverview describes the dataset a run was fit on
type DataOverview struct {
	Path        string   `json:"path"`
	Rows        int      `json:"rows"`
	DroppedRows int      `json:"dropped_rows"`
	Response    string   `json:"response"`
	Predictors  []string `json:"predictors"`
	Hash        string   `json:"hash"`
}

// Document is everything a run report shows
type Document struct {
	RunID      string
	Model      string
	CreatedAt  time.Time
	Data       DataOverview
	Parameters []model.ParameterDef
	Settings   inference.Settings
	Summary    *summary.Table
	Prior      *PredictiveCheck
	OLS        *ols.Result
	Comparison []ols.ComparisonRow
	Artifacts  plotting.Artifacts

	RHatThreshold float64
}

// Markdown renders the report. Figure links are made relative to dir.
func (d *Document) Markdown(dir string) []byte {
	var b bytes.Buffer
	threshold := d.RHatThreshold
	if threshold == 0 {
		threshold = diagnostics.DefaultRHatThreshold
	}

	fmt.Fprintf(&b, "# %s model\n\n", d.Model)
	fmt.Fprintf(&b, "Run `%s`", d.RunID)
	if !d.CreatedAt.IsZero() {
		fmt.Fprintf(&b, ", %s", d.CreatedAt.UTC().Format(time.RFC3339))
	}
	b.WriteString("\n\n")

	b.WriteString("## Data\n\n")
	fmt.Fprintf(&b, "- source: `%s`\n", d.Data.Path)
	fmt.Fprintf(&b, "- rows: %d (%d dropped for missing values)\n", d.Data.Rows, d.Data.DroppedRows)
	fmt.Fprintf(&b, "- response: `%s`\n", d.Data.Response)
	if len(d.Data.Predictors) > 0 {
		fmt.Fprintf(&b, "- predictors: %s\n", strings.Join(quoteAll(d.Data.Predictors), ", "))
	}
	if d.Data.Hash != "" {
		fmt.Fprintf(&b, "- dataset hash: `%s`\n", d.Data.Hash)
	}
	b.WriteString("\n")

	if len(d.Parameters) > 0 {
		b.WriteString("## Priors\n\n| parameter | role | prior |\n|---|---|---|\n")
		for _, p := range d.Parameters {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", p.Name, p.Role, p.Prior)
		}
		b.WriteString("\n")
	}

	s := d.Settings
	fmt.Fprintf(&b, "## Sampler\n\n%d chains, %d draws after %d tuning iterations (thin %d, seed %d).\n\n",
		s.Chains, s.Draws, s.Tune, s.Thin, s.Seed)

	if d.Prior != nil {
		b.WriteString("## Prior predictive check\n\n| | mean | sd | p3 | p97 |\n|---|---|---|---|---|\n")
		writeSpreadRow(&b, "simulated", d.Prior.Simulated)
		if d.Prior.Observed.N > 0 {
			writeSpreadRow(&b, "observed", d.Prior.Observed)
		}
		fmt.Fprintf(&b, "\n%d simulated datasets.\n\n", d.Prior.Samples)
	}

	if d.Summary != nil {
		lo, hi := diagnostics.HDILabels(d.Summary.HDIProb)
		b.WriteString("## Posterior summary\n\n")
		fmt.Fprintf(&b, "| | mean | sd | %s | %s | mcse_mean | ess | r_hat |\n|---|---|---|---|---|---|---|---|\n", lo, hi)
		for _, r := range d.Summary.Rows {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s |\n", r.Param,
				num(r.Mean, 3), num(r.SD, 3), num(r.HDILow, 3), num(r.HDIHigh, 3),
				num(r.MCSE, 3), num(r.ESS, 0), num(r.RHat, 2))
		}
		b.WriteString("\n")
		if warnings := d.Summary.Warnings(threshold); len(warnings) > 0 {
			b.WriteString("**Convergence warnings**\n\n")
			for _, w := range warnings {
				fmt.Fprintf(&b, "- %s\n", w)
			}
			b.WriteString("\n")
		} else {
			fmt.Fprintf(&b, "Every r_hat is at most %.2f.\n\n", threshold)
		}
	}

	if d.OLS != nil {
		b.WriteString("## Ordinary least squares\n\n| | estimate | std err | t | p |\n|---|---|---|---|---|\n")
		for _, c := range d.OLS.Coefficients {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", c.Name, num(c.Estimate, 4), num(c.StdErr, 4), num(c.TValue, 3), formatP(c.PValue))
		}
		fmt.Fprintf(&b, "\nsigma %s, R² %s, adjusted R² %s, n = %d.\n\n",
			num(d.OLS.Sigma, 4), num(d.OLS.RSquared, 4), num(d.OLS.AdjRSquared, 4), d.OLS.N)
	}

	if len(d.Comparison) > 0 {
		b.WriteString("## Posterior vs least squares\n\n| | posterior mean | ols estimate | diff (se) | agrees |\n|---|---|---|---|---|\n")
		for _, r := range d.Comparison {
			agree := "yes"
			if !r.Agrees {
				agree = "no"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", r.Param, num(r.PosteriorMean, 4), num(r.OLSEstimate, 4), num(r.DiffInSE, 2), agree)
		}
		b.WriteString("\n")
	}

	if paths := d.Artifacts.Paths(); len(paths) > 0 {
		b.WriteString("## Figures\n\n")
		for _, p := range paths {
			link := p
			if rel, err := filepath.Rel(dir, p); err == nil {
				link = filepath.ToSlash(rel)
			}
			name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
			fmt.Fprintf(&b, "![%s](%s)\n\n", name, link)
		}
	}
	return b.Bytes()
}

func writeSpreadRow(b *bytes.Buffer, label string, s Spread) {
	fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n", label, num(s.Mean, 2), num(s.SD, 2), num(s.Low, 2), num(s.High, 2))
}

func quoteAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = "`" + s + "`"
	}
	return out
}

// ToHTML renders markdown as a standalone HTML page
func ToHTML(md []byte, title string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{
		Title: title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML(md, p, r)
}

// Files are the written report paths
type Files struct {
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

// Write renders the report into dir as <model>_report.md and .html
func (d *Document) Write(dir string) (Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("create report directory: %w", err)
	}
	md := d.Markdown(dir)
	files := Files{
		Markdown: filepath.Join(dir, d.Model+"_report.md"),
		HTML:     filepath.Join(dir, d.Model+"_report.html"),
	}
	if err := os.WriteFile(files.Markdown, md, 0o644); err != nil {
		return Files{}, fmt.Errorf("write markdown report: %w", err)
	}
	page := ToHTML(md, fmt.Sprintf("%s model report", d.Model))
	if err := os.WriteFile(files.HTML, page, 0o644); err != nil {
		return Files{}, fmt.Errorf("write html report: %w", err)
	}
	return files, nil
}
