package main

import (
	"fmt"
	"time"

	"bayesreg/app"
	"bayesreg/domain/core"
	"bayesreg/domain/model"
	"bayesreg/internal/errors"
	"bayesreg/internal/ols"
	"bayesreg/internal/report"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [data]",
		Short: "Load a dataset and describe its columns",
		Long: `Load a CSV or XLSX table, drop incomplete rows and print per-column statistics.

Example: bayesreg-cli inspect data/students.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, args)
			if err != nil {
				return err
			}
			defer s.close()
			return runInspect(cmd, s)
		},
	}
	addDataFlags(cmd)
	return cmd
}

func runInspect(cmd *cobra.Command, s *session) error {
	path, err := s.dataPath()
	if err != nil {
		return err
	}
	svc, release, err := s.service(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer release()

	res, err := svc.Inspect(cmd.Context(), path)
	if err != nil {
		return err
	}
	t := res.Table
	report.WriteTitle(s.out, "Dataset "+path)
	fmt.Fprintf(s.out, "rows: %d  predictors: %d  dropped (missing): %d  hash: %s\n",
		t.RowCount(), t.PredictorCount(), t.DroppedRows, t.Fingerprint.Short())
	report.WriteProfiles(s.out, res.Profiles)
	return nil
}

func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().String("model", string(model.VariantMulti), "model: naive|simple|multi")
	cmd.Flags().String("predictor", "", "predictor of the simple model (default first column)")
}

func modelRequest(cmd *cobra.Command, s *session) (app.ModelRequest, error) {
	path, err := s.dataPath()
	if err != nil {
		return app.ModelRequest{}, err
	}
	name, _ := cmd.Flags().GetString("model")
	v, err := model.ParseVariant(name)
	if err != nil {
		return app.ModelRequest{}, errors.WithCode(errors.CodeInvalidInput, err)
	}
	var predictor core.VariableKey
	if cmd.Flags().Changed("predictor") {
		raw, _ := cmd.Flags().GetString("predictor")
		if predictor, err = core.ParseVariableKey(raw); err != nil {
			return app.ModelRequest{}, errors.WithCode(errors.CodeInvalidInput, err)
		}
	}
	return app.ModelRequest{
		DataPath:  path,
		Variant:   v,
		Predictor: predictor,
		Priors:    s.cfg.Priors,
	}, nil
}

func newPriorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prior [data]",
		Short: "Simulate responses from the priors of a model",
		Long: `Draw parameter vectors from the priors, simulate one response vector per
draw and compare the simulated spread with the observed scores.

Example: bayesreg-cli prior data/students.csv --model simple --samples 500`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, args)
			if err != nil {
				return err
			}
			defer s.close()
			return runPrior(cmd, s)
		},
	}
	addDataFlags(cmd)
	addModelFlags(cmd)
	addReportFlags(cmd)
	cmd.Flags().Int("samples", 0, "prior predictive samples (default 500)")
	cmd.Flags().Uint64("seed", 0, "random seed (default 42)")
	return cmd
}

func runPrior(cmd *cobra.Command, s *session) error {
	req, err := modelRequest(cmd, s)
	if err != nil {
		return err
	}
	svc, release, err := s.service(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer release()

	res, err := svc.PriorPredictive(cmd.Context(), req, s.cfg.Sampler.PriorPredictiveSamples, s.cfg.Sampler.Seed)
	if err != nil {
		return err
	}
	report.WriteTitle(s.out, fmt.Sprintf("%s model priors", res.Model.Name()))
	report.WritePriors(s.out, res.Model)
	report.WriteTitle(s.out, fmt.Sprintf("Prior predictive (%d samples)", res.Check.Samples))
	report.WritePredictiveCheck(s.out, res.Check)
	if res.Plot != "" {
		fmt.Fprintln(s.out, report.Styles.Muted.Render("figure: "+res.Plot))
	}
	return nil
}

func newFitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fit [data]",
		Short: "Sample the posterior, summarize it and compare with least squares",
		Long: `Run the full analysis: prior predictive, MCMC posterior sampling, summary
with HDI, MCSE, ESS and split R-hat, least-squares comparison, trace, forest and
distribution plots and a markdown/HTML report. --compare fits the naive, simple
and multi models on the same data and draws one forest plot across them.

Example: bayesreg-cli fit data/students.csv --model simple --predictor siblings --chains 4 --draws 2000 --save`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, args)
			if err != nil {
				return err
			}
			defer s.close()
			return runFit(cmd, s)
		},
	}
	addDataFlags(cmd)
	addModelFlags(cmd)
	addSamplerFlags(cmd)
	addReportFlags(cmd)
	cmd.Flags().Bool("save", false, "save the run to the configured store")
	cmd.Flags().Bool("compare", false, "fit naive, simple and multi models")
	cmd.Flags().String("dsn", "", "run store DSN (postgres://... or a sqlite path)")
	return cmd
}

func runFit(cmd *cobra.Command, s *session) error {
	req, err := modelRequest(cmd, s)
	if err != nil {
		return err
	}
	save, _ := cmd.Flags().GetBool("save")
	compare, _ := cmd.Flags().GetBool("compare")

	svc, release, err := s.service(cmd.Context(), save)
	if err != nil {
		return err
	}
	defer release()

	fr := app.FitRequest{ModelRequest: req, Settings: s.cfg.Sampler.Settings(), Save: save}
	if !compare {
		res, err := svc.Fit(cmd.Context(), fr)
		if err != nil {
			return err
		}
		printFit(s, res)
		return nil
	}

	results, err := svc.CompareModels(cmd.Context(), fr, model.VariantNaive, model.VariantSimple, model.VariantMulti)
	if err != nil {
		return err
	}
	for _, res := range results {
		printFit(s, res)
	}
	forest, err := svc.ForestAcross("comparison_forest", results...)
	if err != nil {
		return err
	}
	if forest != "" {
		fmt.Fprintln(s.out, report.Styles.Muted.Render("comparison figure: "+forest))
	}
	return nil
}

func printFit(s *session, res *app.FitResult) {
	report.WriteTitle(s.out, fmt.Sprintf("%s model  (run %s)", res.Model.Name(), res.RunID))
	fmt.Fprintf(s.out, "rows: %d  chains: %d  draws: %d  elapsed: %s\n",
		res.Model.N(), res.Posterior.Settings.Chains, res.Posterior.Settings.Draws, res.Duration.Round(time.Millisecond))
	report.WriteSummary(s.out, res.Summary)
	report.WriteWarnings(s.out, res.Warnings)

	if res.Prior != nil {
		fmt.Fprintln(s.out, report.Styles.Section.Render(fmt.Sprintf("Prior predictive (%d samples)", res.PriorCheck.Samples)))
		report.WritePredictiveCheck(s.out, res.PriorCheck)
	}
	if res.OLS != nil {
		fmt.Fprintln(s.out, report.Styles.Section.Render("Least squares"))
		report.WriteComparison(s.out, res.Comparison)
		if !ols.AllAgree(res.Comparison) {
			s.logger.Warn("posterior and least squares disagree", zap.String("model", res.Model.Name()))
		}
	}
	for _, p := range res.Artifacts.Paths() {
		fmt.Fprintln(s.out, report.Styles.Muted.Render("figure: "+p))
	}
	if res.Report.HTML != "" {
		fmt.Fprintln(s.out, report.Styles.Muted.Render("report: "+res.Report.HTML))
	}
}

func newOLSCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ols [data]",
		Short: "Fit ordinary least squares only",
		Long: `Fit the classical regression for a model shape and print coefficients,
standard errors, t statistics and p-values.

Example: bayesreg-cli ols data/students.csv --model multi`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, args)
			if err != nil {
				return err
			}
			defer s.close()
			return runOLS(cmd, s)
		},
	}
	addDataFlags(cmd)
	addModelFlags(cmd)
	return cmd
}

func runOLS(cmd *cobra.Command, s *session) error {
	req, err := modelRequest(cmd, s)
	if err != nil {
		return err
	}
	s.cfg.Report.SkipPlots = true
	svc, release, err := s.service(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer release()

	fit, m, err := svc.OLS(cmd.Context(), req)
	if err != nil {
		return err
	}
	report.WriteTitle(s.out, fmt.Sprintf("%s model least squares", m.Name()))
	report.WriteOLS(s.out, fit)
	return nil
}
