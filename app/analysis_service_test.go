package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"bayesreg/adapters/mcmc"
	"bayesreg/adapters/store"
	"bayesreg/domain/core"
	"bayesreg/domain/inference"
	"bayesreg/domain/model"
	"bayesreg/internal/errors"
	"bayesreg/internal/loader"
	"bayesreg/internal/plotting"
	"bayesreg/internal/testkit"
	"bayesreg/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func quickSettings() inference.Settings {
	return inference.Settings{Chains: 2, Draws: 300, Tune: 300, Thin: 1, Seed: 7, PosteriorPredictive: 20}
}

func writeScores(t *testing.T, name string) string {
	t.Helper()
	cfg := testkit.DefaultStudentConfig()
	cfg.Students = 120
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, testkit.NewStudentScoreGenerator(cfg).Generate().WriteFile(path))
	return path
}

func newService(t *testing.T, withStore bool) (*AnalysisService, *store.RunRepository, string) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	out := t.TempDir()

	pl, err := plotting.New(plotting.DefaultOptions(filepath.Join(out, "figures")), logger)
	require.NoError(t, err)

	var (
		repo *store.RunRepository
		runs ports.RunRepository
	)
	if withStore {
		repo, err = store.Open(context.Background(), "sqlite://"+filepath.Join(out, "runs.db"), 1, logger)
		require.NoError(t, err)
		t.Cleanup(func() { repo.Close() })
		runs = repo
	}

	opts := DefaultAnalysisOptions()
	opts.ReportDir = filepath.Join(out, "reports")
	opts.PriorSamples = 100

	ld := loader.New(loader.DefaultOptions(), logger)
	return NewAnalysisService(ld, mcmc.NewEngine(logger), runs, pl, opts, logger), repo, out
}

func TestAnalysisService_Inspect(t *testing.T) {
	svc, _, _ := newService(t, false)
	path := writeScores(t, "scores.csv")

	res, err := svc.Inspect(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Table.PredictorCount())
	assert.Less(t, res.Table.RowCount(), 120, "rows with NA are dropped")
	assert.Positive(t, res.Table.DroppedRows)
	assert.Len(t, res.Profiles, 4)

	_, err = svc.Inspect(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
}

func TestAnalysisService_PriorPredictive(t *testing.T) {
	svc, _, _ := newService(t, false)
	path := writeScores(t, "scores.xlsx")

	res, err := svc.PriorPredictive(context.Background(), ModelRequest{DataPath: path, Variant: model.VariantNaive}, 0, 3)
	require.NoError(t, err)
	assert.Len(t, res.Samples.Responses, 100)
	assert.Equal(t, 100, res.Check.Samples)
	assert.FileExists(t, res.Plot)
}

func TestAnalysisService_OLS(t *testing.T) {
	svc, _, _ := newService(t, false)
	tbl := testkit.MustTable(testkit.RegressionConfig(200, 5))

	fit, m, err := svc.OLS(context.Background(), ModelRequest{Table: tbl, Variant: model.VariantMulti})
	require.NoError(t, err)
	assert.Equal(t, "multi", m.Name())
	assert.Len(t, fit.Coefficients, 4)

	_, _, err = svc.OLS(context.Background(), ModelRequest{Table: tbl, Variant: model.VariantSimple, Predictor: "pets"})
	require.Error(t, err)
	assert.Equal(t, errors.CodeMissingColumn, errors.GetCode(err))
	assert.Equal(t, 2, errors.ExitCode(err))
}

func TestAnalysisService_FitSavesRun(t *testing.T) {
	svc, repo, _ := newService(t, true)
	path := writeScores(t, "scores.csv")

	res, err := svc.Fit(context.Background(), FitRequest{
		ModelRequest: ModelRequest{DataPath: path, Variant: model.VariantSimple, Predictor: "siblings"},
		Settings:     quickSettings(),
		Save:         true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"intercept", "slope[siblings]", "sigma"}, res.Model.ParamNames())
	assert.Len(t, res.Summary.Rows, 3)
	require.NotNil(t, res.OLS)
	assert.Len(t, res.Comparison, 2)
	assert.NotNil(t, res.Prior)
	assert.Equal(t, 100, res.PriorCheck.Samples)

	for _, p := range res.Artifacts.Paths() {
		assert.FileExists(t, p)
	}
	assert.FileExists(t, res.Report.Markdown)
	assert.FileExists(t, res.Report.HTML)
	md, err := os.ReadFile(res.Report.Markdown)
	require.NoError(t, err)
	assert.Contains(t, string(md), "slope[siblings]")

	stored, err := repo.Get(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, "simple", stored.Model)
	assert.Equal(t, res.Manifest.Fingerprint.Fingerprint, stored.Fingerprint.Fingerprint)
	assert.Equal(t, res.Report.HTML, stored.ReportPath)
	assert.Equal(t, uint64(7), stored.Seed)
}

func TestAnalysisService_FitDeterministicFingerprint(t *testing.T) {
	svc, _, _ := newService(t, false)
	tbl := testkit.LineTable(80, 90, 4, 2, 11)
	req := FitRequest{ModelRequest: ModelRequest{Table: tbl, Variant: model.VariantNaive}, Settings: quickSettings()}

	a, err := svc.Fit(context.Background(), req)
	require.NoError(t, err)
	b, err := svc.Fit(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, a.Manifest.Fingerprint.Fingerprint, b.Manifest.Fingerprint.Fingerprint)
	assert.Equal(t, a.Summary.Rows, b.Summary.Rows)
}

func TestAnalysisService_SaveWithoutStore(t *testing.T) {
	svc, _, _ := newService(t, false)
	tbl := testkit.LineTable(60, 90, 4, 2, 3)

	_, err := svc.Fit(context.Background(), FitRequest{
		ModelRequest: ModelRequest{Table: tbl, Variant: model.VariantNaive},
		Settings:     quickSettings(),
		Save:         true,
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestAnalysisService_FitErrors(t *testing.T) {
	svc, _, _ := newService(t, false)
	tbl := testkit.LineTable(60, 90, 4, 2, 3)

	t.Run("invalid settings", func(t *testing.T) {
		s := quickSettings()
		s.Chains = 0
		_, err := svc.Fit(context.Background(), FitRequest{
			ModelRequest: ModelRequest{Table: tbl, Variant: model.VariantNaive},
			Settings:     s,
		})
		require.Error(t, err)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := svc.Fit(ctx, FitRequest{
			ModelRequest: ModelRequest{Table: tbl, Variant: model.VariantNaive},
			Settings:     quickSettings(),
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, errors.CodeCanceled, errors.GetCode(err))
	})

	t.Run("bad prior", func(t *testing.T) {
		_, err := svc.Fit(context.Background(), FitRequest{
			ModelRequest: ModelRequest{Table: tbl, Variant: model.VariantNaive, Priors: model.PriorSet{Scale: model.Normal(0, 1)}},
			Settings:     quickSettings(),
		})
		assert.ErrorIs(t, err, core.ErrInvalidPrior)
	})
}

func TestAnalysisService_CompareModels(t *testing.T) {
	if testing.Short() {
		t.Skip("samples three models")
	}
	svc, _, _ := newService(t, false)
	tbl := testkit.MustTable(testkit.RegressionConfig(150, 9))

	results, err := svc.CompareModels(context.Background(), FitRequest{
		ModelRequest: ModelRequest{Table: tbl},
		Settings:     quickSettings(),
	}, model.VariantNaive, model.VariantSimple, model.VariantMulti)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 2, results[0].Model.Dim())
	assert.Equal(t, 3, results[1].Model.Dim())
	assert.Equal(t, 5, results[2].Model.Dim())

	forest, err := svc.ForestAcross("comparison_forest", results...)
	require.NoError(t, err)
	assert.FileExists(t, forest)
}
