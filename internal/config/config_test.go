package config

import (
	"os"
	"path/filepath"
	"testing"

	"bayesreg/domain/model"
	"bayesreg/internal/errors"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolated runs Load from an empty directory so no stray bayesreg.yaml or
// .env is picked up.
func isolated(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolated(t)

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "score", cfg.Data.Response)
	assert.True(t, cfg.Data.IndexColumn)
	assert.Equal(t, 4, cfg.Sampler.Chains)
	assert.Equal(t, 2000, cfg.Sampler.Draws)
	assert.Equal(t, uint64(42), cfg.Sampler.Seed)
	assert.Equal(t, 500, cfg.Sampler.PriorPredictiveSamples)
	assert.Equal(t, 0.94, cfg.Report.HDIProb)
	assert.Equal(t, 1.05, cfg.Report.RHatThreshold)
	assert.Equal(t, "png", cfg.Report.Format)
	assert.Empty(t, cfg.Store.DSN)
	assert.True(t, cfg.Priors.Slope.IsZero())

	s := cfg.Sampler.Settings()
	assert.NoError(t, s.Validate(3))
}

func TestLoad_Precedence(t *testing.T) {
	dir := isolated(t)

	yml := `
data:
  path: scores.xlsx
  predictors: [siblings, hours_studied]
sampler:
  chains: 2
  draws: 300
priors:
  slope:
    kind: normal
    mu: 0
    sigma: 2
report:
  format: svg
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bayesreg.yaml"), []byte(yml), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BAYESREG_SAMPLER_TUNE=123\n"), 0o644))
	t.Setenv("BAYESREG_SAMPLER_DRAWS", "400")

	flags := pflag.NewFlagSet("fit", pflag.ContinueOnError)
	flags.Int("draws", 0, "")
	flags.Int("chains", 0, "")
	flags.Bool("no-index", false, "")
	flags.String("unrelated", "", "")
	require.NoError(t, flags.Parse([]string{"--chains=3", "--no-index", "--unrelated=x"}))

	t.Cleanup(func() { os.Unsetenv("BAYESREG_SAMPLER_TUNE") })
	cfg, err := Load(LoadOptions{Flags: flags})
	require.NoError(t, err)

	assert.Equal(t, "scores.xlsx", cfg.Data.Path)
	assert.Equal(t, []string{"siblings", "hours_studied"}, cfg.Data.Predictors)
	assert.Equal(t, 3, cfg.Sampler.Chains, "flag beats file")
	assert.Equal(t, 400, cfg.Sampler.Draws, "env beats file, unchanged flag ignored")
	assert.Equal(t, 123, cfg.Sampler.Tune, "from .env")
	assert.False(t, cfg.Data.IndexColumn)
	assert.Equal(t, model.Normal(0, 2), cfg.Priors.Slope)
	assert.Equal(t, "svg", cfg.Report.Format)
}

func TestLoad_EnvPredictorList(t *testing.T) {
	isolated(t)
	t.Setenv("BAYESREG_DATA_PREDICTORS", "siblings, sleep_hours")
	t.Setenv("BAYESREG_PRIORS_SCALE_KIND", "half_normal")
	t.Setenv("BAYESREG_PRIORS_SCALE_SIGMA", "10")

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"siblings", "sleep_hours"}, cfg.Data.Predictors)
	assert.Equal(t, model.HalfNormal(10), cfg.Priors.Scale)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"chains":   "BAYESREG_SAMPLER_CHAINS",
		"hdi prob": "BAYESREG_REPORT_HDI_PROB",
		"format":   "BAYESREG_REPORT_FORMAT",
	}
	values := map[string]string{
		"chains":   "0",
		"hdi prob": "1.5",
		"format":   "gif",
	}
	for name, key := range tests {
		t.Run(name, func(t *testing.T) {
			isolated(t)
			t.Setenv(key, values[name])
			_, err := Load(LoadOptions{})
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}

func TestLoad_InvalidPrior(t *testing.T) {
	isolated(t)
	t.Setenv("BAYESREG_PRIORS_SLOPE_KIND", "normal")
	t.Setenv("BAYESREG_PRIORS_SLOPE_SIGMA", "-1")

	_, err := Load(LoadOptions{})
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestLoad_MissingConfigFile(t *testing.T) {
	isolated(t)
	_, err := Load(LoadOptions{ConfigFile: "nope.yaml"})
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "sampler.prior_predictive_samples", EnvKey("BAYESREG_SAMPLER_PRIOR_PREDICTIVE_SAMPLES"))
	assert.Equal(t, "priors.slope.sigma", EnvKey("BAYESREG_PRIORS_SLOPE_SIGMA"))
	assert.Equal(t, "store.dsn", EnvKey("BAYESREG_STORE_DSN"))
}
