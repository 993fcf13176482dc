// Package report renders analysis results for people: terminal tables,
// convergence warnings and a markdown/HTML run report.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"bayesreg/domain/model"
	"bayesreg/domain/run"
	"bayesreg/internal/diagnostics"
	"bayesreg/internal/ols"
	"bayesreg/internal/profiling"
	"bayesreg/internal/summary"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	return t
}

func num(v float64, prec int) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return fmt.Sprintf("%.*f", prec, v)
}

func alignRight(cols ...int) []table.ColumnConfig {
	out := make([]table.ColumnConfig, len(cols))
	for i, c := range cols {
		out[i] = table.ColumnConfig{Number: c, Align: text.AlignRight}
	}
	return out
}

// WriteTitle prints a styled heading
func WriteTitle(w io.Writer, title string) {
	fmt.Fprintln(w, Styles.Title.Render(title))
}

// WriteSummary prints the posterior summary table
func WriteSummary(w io.Writer, tbl *summary.Table) {
	lo, hi := diagnostics.HDILabels(tbl.HDIProb)
	t := newTable(w)
	t.AppendHeader(table.Row{"", "mean", "sd", lo, hi, "mcse_mean", "ess", "r_hat"})
	for _, r := range tbl.Rows {
		t.AppendRow(table.Row{
			r.Param, num(r.Mean, 3), num(r.SD, 3), num(r.HDILow, 3), num(r.HDIHigh, 3),
			num(r.MCSE, 3), num(r.ESS, 0), num(r.RHat, 2),
		})
	}
	t.SetColumnConfigs(alignRight(2, 3, 4, 5, 6, 7, 8))
	t.Render()
}

// WriteOLS prints least-squares coefficients and fit statistics
func WriteOLS(w io.Writer, fit *ols.Result) {
	t := newTable(w)
	t.AppendHeader(table.Row{"", "estimate", "std err", "t", "p"})
	for _, c := range fit.Coefficients {
		t.AppendRow(table.Row{c.Name, num(c.Estimate, 4), num(c.StdErr, 4), num(c.TValue, 3), formatP(c.PValue)})
	}
	t.AppendFooter(table.Row{"sigma", num(fit.Sigma, 4), "R²", num(fit.RSquared, 4), ""})
	t.AppendFooter(table.Row{"n", fit.N, "adj R²", num(fit.AdjRSquared, 4), ""})
	t.SetColumnConfigs(alignRight(2, 3, 4, 5))
	t.Render()
}

func formatP(p float64) string {
	if p < 1e-4 {
		return "<0.0001"
	}
	return num(p, 4)
}

// WriteComparison prints posterior means next to least-squares estimates
func WriteComparison(w io.Writer, rows []ols.ComparisonRow) {
	t := newTable(w)
	t.AppendHeader(table.Row{"", "posterior mean", "ols estimate", "ols se", "diff (se)", "agrees"})
	for _, r := range rows {
		mark := Styles.OK.Render("yes")
		if !r.Agrees {
			mark = Styles.Warning.Render("no")
		}
		t.AppendRow(table.Row{r.Param, num(r.PosteriorMean, 4), num(r.OLSEstimate, 4), num(r.OLSStdErr, 4), num(r.DiffInSE, 2), mark})
	}
	t.SetColumnConfigs(alignRight(2, 3, 4, 5))
	t.Render()
}

// WritePriors prints the parameter registry of a model
func WritePriors(w io.Writer, m *model.Model) {
	t := newTable(w)
	t.AppendHeader(table.Row{"parameter", "role", "prior"})
	for _, d := range m.Parameters() {
		t.AppendRow(table.Row{d.Name, d.Role, d.Prior.String()})
	}
	t.Render()
}

// WritePredictiveCheck prints simulated versus observed response statistics
func WritePredictiveCheck(w io.Writer, pc PredictiveCheck) {
	t := newTable(w)
	t.AppendHeader(table.Row{"", "mean", "sd", "p3", "p97"})
	t.AppendRow(table.Row{"simulated", num(pc.Simulated.Mean, 2), num(pc.Simulated.SD, 2), num(pc.Simulated.Low, 2), num(pc.Simulated.High, 2)})
	if pc.Observed.N > 0 {
		t.AppendRow(table.Row{"observed", num(pc.Observed.Mean, 2), num(pc.Observed.SD, 2), num(pc.Observed.Low, 2), num(pc.Observed.High, 2)})
	}
	t.SetColumnConfigs(alignRight(2, 3, 4, 5))
	t.Render()
}

// WriteProfiles prints per-column statistics for the inspect command
func WriteProfiles(w io.Writer, profiles []profiling.ColumnProfile) {
	t := newTable(w)
	t.AppendHeader(table.Row{"column", "n", "mean", "sd", "min", "median", "max", "skew", "normal", "r(score)"})
	for _, p := range profiles {
		normal := "no"
		if p.IsNormal {
			normal = "yes"
		}
		t.AppendRow(table.Row{
			p.Name, p.Count, num(p.Mean, 2), num(p.StdDev, 2), num(p.Min, 2), num(p.Median, 2),
			num(p.Max, 2), num(p.Skewness, 2), normal, num(p.ResponseCorrelation, 3),
		})
	}
	t.SetColumnConfigs(alignRight(2, 3, 4, 5, 6, 7, 8, 10))
	t.Render()
}

// WriteWarnings prints convergence warnings in a highlighted box, or a short
// confirmation when there are none.
func WriteWarnings(w io.Writer, warnings []string) {
	if len(warnings) == 0 {
		fmt.Fprintln(w, Styles.OK.Render("all chains converged"))
		return
	}
	lines := make([]string, len(warnings))
	for i, msg := range warnings {
		lines[i] = "! " + msg
	}
	fmt.Fprintln(w, Styles.WarnBox.Render(Styles.Warning.Render(strings.Join(lines, "\n"))))
}

// WriteRuns prints one line per stored run, newest first
func WriteRuns(w io.Writer, runs []*run.RunManifest) {
	t := newTable(w)
	t.AppendHeader(table.Row{"run", "model", "rows", "chains x draws", "max r_hat", "converged", "created"})
	for _, m := range runs {
		conv := Styles.OK.Render("yes")
		if !m.Converged {
			conv = Styles.Warning.Render("no")
		}
		t.AppendRow(table.Row{
			m.RunID, m.Model, m.Rows, fmt.Sprintf("%d x %d", m.Chains, m.Draws),
			num(m.MaxRHat, 3), conv, m.CreatedAt.Time().Format("2006-01-02 15:04"),
		})
	}
	t.SetColumnConfigs(alignRight(3, 5))
	t.Render()
}

// WriteRun prints the stored settings and parameter summaries of one run
func WriteRun(w io.Writer, m *run.RunManifest) {
	meta := newTable(w)
	meta.AppendRows([]table.Row{
		{"run", m.RunID},
		{"model", m.Model},
		{"data", m.DataPath},
		{"dataset hash", m.DatasetHash.Short()},
		{"rows / predictors", fmt.Sprintf("%d / %d", m.Rows, m.Predictors)},
		{"chains / draws / tune", fmt.Sprintf("%d / %d / %d", m.Chains, m.Draws, m.Tune)},
		{"seed", m.Seed},
		{"fingerprint", m.Fingerprint.Fingerprint.Short()},
		{"report", m.ReportPath},
	})
	meta.Render()

	lo, hi := diagnostics.HDILabels(m.HDIProb)
	t := newTable(w)
	t.AppendHeader(table.Row{"", "mean", "sd", lo, hi, "mcse_mean", "ess", "r_hat"})
	for _, p := range m.Parameters {
		t.AppendRow(table.Row{
			p.Name, num(p.Mean, 3), num(p.SD, 3), num(p.HDILow, 3), num(p.HDIHigh, 3),
			num(p.MCSE, 3), num(p.ESS, 0), num(p.RHat, 2),
		})
	}
	t.SetColumnConfigs(alignRight(2, 3, 4, 5, 6, 7, 8))
	t.Render()
}
