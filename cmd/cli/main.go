package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"bayesreg/adapters/mcmc"
	"bayesreg/adapters/store"
	"bayesreg/app"
	"bayesreg/internal"
	"bayesreg/internal/config"
	"bayesreg/internal/errors"
	"bayesreg/internal/loader"
	"bayesreg/internal/plotting"
	"bayesreg/internal/report"
	"bayesreg/ports"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd(os.Stdout)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, report.Styles.Warning.Render("error: "+err.Error()))
		stop()
		os.Exit(errors.ExitCode(err))
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bayesreg-cli",
		Short: "Bayesian regression of student scores with MCMC and least-squares checks",
		Long: `bayesreg-cli loads a table of student scores, builds a naive, simple or
multiple regression model, simulates from its priors, samples the posterior with
Metropolis-Hastings and reports summaries, diagnostics, plots and a comparison
against ordinary least squares.

Settings come from defaults, bayesreg.yaml, .env / BAYESREG_* variables and
flags, in increasing precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "YAML config file (default ./bayesreg.yaml when present)")
	pf.String("env-file", "", "dotenv file (default ./.env when present)")
	pf.String("log-level", "", "log level: error|warn|info|debug|trace")
	pf.String("log-encoding", "", "log encoding: console|json")
	pf.BoolP("verbose", "v", false, "shorthand for --log-level debug")

	rootCmd.AddCommand(
		newInspectCmd(),
		newPriorCmd(),
		newFitCmd(),
		newOLSCmd(),
		newRunsCmd(),
		newGenerateCmd(),
	)
	return rootCmd
}

// session is what every command needs after flags are parsed
type session struct {
	cfg    *config.Config
	log    *internal.Logger
	logger *zap.Logger
	out    io.Writer
}

func newSession(cmd *cobra.Command, args []string) (*session, error) {
	flags := cmd.Flags()
	cfgFile, _ := flags.GetString("config")
	envFile, _ := flags.GetString("env-file")

	cfg, err := config.Load(config.LoadOptions{ConfigFile: cfgFile, EnvFile: envFile, Flags: flags})
	if err != nil {
		return nil, err
	}
	if len(args) > 0 {
		cfg.Data.Path = args[0]
	}

	level, err := internal.ParseLogLevel(cfg.Log.Level)
	if err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if verbose, _ := flags.GetBool("verbose"); verbose && level < internal.LogLevelDebug {
		level = internal.LogLevelDebug
	}
	log, err := internal.NewLogger(level, cfg.Log.Encoding)
	if err != nil {
		return nil, errors.Wrap(err, "create logger")
	}

	return &session{cfg: cfg, log: log, logger: log.Zap(), out: cmd.OutOrStdout()}, nil
}

func (s *session) close() {
	_ = s.log.Sync()
}

func (s *session) dataPath() (string, error) {
	if s.cfg.Data.Path == "" {
		return "", errors.InvalidInput("no dataset given: pass a path or set data.path")
	}
	return s.cfg.Data.Path, nil
}

// service wires the analysis pipeline. The store is opened only when asked
// for and a DSN is configured; the returned func releases it.
func (s *session) service(ctx context.Context, withStore bool) (*app.AnalysisService, func(), error) {
	var plotter *plotting.Plotter
	if !s.cfg.Report.SkipPlots {
		var err error
		if plotter, err = plotting.New(s.cfg.Report.PlotOptions(), s.logger); err != nil {
			return nil, nil, errors.Wrap(err, "create plotter")
		}
	}

	var runs ports.RunRepository
	release := func() {}
	if withStore && s.cfg.Store.DSN != "" {
		repo, err := store.Open(ctx, s.cfg.Store.DSN, s.cfg.Store.MaxOpenConns, s.logger)
		if err != nil {
			return nil, nil, err
		}
		runs = repo
		release = func() { _ = repo.Close() }
	}

	opts := app.AnalysisOptions{
		HDIProb:       s.cfg.Report.HDIProb,
		RHatThreshold: s.cfg.Report.RHatThreshold,
		AgreementSE:   s.cfg.Report.AgreementSE,
		PriorSamples:  s.cfg.Sampler.PriorPredictiveSamples,
		ReportDir:     s.cfg.Report.Dir,
		WriteReport:   s.cfg.Report.WriteMarkdown,
	}
	svc := app.NewAnalysisService(
		loader.New(s.cfg.Data.LoaderOptions(), s.logger),
		mcmc.NewEngine(s.logger),
		runs,
		plotter,
		opts,
		s.logger,
	)
	return svc, release, nil
}

// openStore opens the configured run store for read commands
func (s *session) openStore(ctx context.Context) (*store.RunRepository, error) {
	if s.cfg.Store.DSN == "" {
		return nil, errors.ConfigInvalid("no run store configured: set store.dsn, BAYESREG_STORE_DSN or --dsn")
	}
	return store.Open(ctx, s.cfg.Store.DSN, s.cfg.Store.MaxOpenConns, s.logger)
}

// addDataFlags registers the flags that select how the dataset is read
func addDataFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("response", "", "response column (default score)")
	f.StringSlice("predictors", nil, "predictor columns to keep (default all)")
	f.String("sheet", "", "worksheet for .xlsx input (default first sheet)")
	f.Bool("no-index", false, "the first column is a predictor, not a row index")
}

// addSamplerFlags registers MCMC settings
func addSamplerFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("chains", 0, "number of chains (default 4)")
	f.Int("draws", 0, "kept draws per chain (default 2000)")
	f.Int("tune", 0, "tuning iterations per chain (default 2000)")
	f.Int("thin", 0, "keep every n-th draw (default 1)")
	f.Uint64("seed", 0, "random seed (default 42)")
	f.Int("ppc-draws", 0, "posterior draws turned into replicated responses")
	f.Int("samples", 0, "prior predictive samples, 0 keeps the configured count (default 500)")
}

// addReportFlags registers output settings
func addReportFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("out", "", "output directory for figures and reports (default reports)")
	f.String("format", "", "figure format: png|svg")
	f.Float64("hdi-prob", 0, "HDI probability mass (default 0.94)")
	f.Float64("rhat", 0, "R-hat warning threshold (default 1.05)")
	f.Float64("tolerance", 0, "least-squares agreement tolerance in standard errors (default 1)")
	f.Bool("no-plots", false, "skip figures")
}
