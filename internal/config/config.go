// Package config layers defaults, a YAML file, .env/environment variables and
// command-line flags into one validated configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"bayesreg/domain/inference"
	"bayesreg/domain/model"
	"bayesreg/internal/errors"
	"bayesreg/internal/loader"
	"bayesreg/internal/plotting"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	EnvPrefix         = "BAYESREG_"
	DefaultConfigFile = "bayesreg.yaml"
	DefaultEnvFile    = ".env"
)

// Config represents the complete application configuration
type Config struct {
	Data    DataConfig     `koanf:"data"`
	Sampler SamplerConfig  `koanf:"sampler"`
	Priors  model.PriorSet `koanf:"priors"`
	Report  ReportConfig   `koanf:"report"`
	Store   StoreConfig    `koanf:"store"`
	Server  ServerConfig   `koanf:"server"`
	Log     LogConfig      `koanf:"log"`
}

// DataConfig says where the dataset is and how to read it
type DataConfig struct {
	Path        string   `koanf:"path"`
	Response    string   `koanf:"response" validate:"required"`
	IndexColumn bool     `koanf:"index_column"`
	Predictors  []string `koanf:"predictors"`
	Sheet       string   `koanf:"sheet"`
}

// SamplerConfig holds MCMC and predictive-simulation settings
type SamplerConfig struct {
	Chains                   int    `koanf:"chains" validate:"min=1,max=64"`
	Draws                    int    `koanf:"draws" validate:"min=10"`
	Tune                     int    `koanf:"tune" validate:"min=0"`
	Thin                     int    `koanf:"thin" validate:"min=1"`
	Seed                     uint64 `koanf:"seed"`
	PriorPredictiveSamples   int    `koanf:"prior_predictive_samples" validate:"min=1"`
	PosteriorPredictiveDraws int    `koanf:"posterior_predictive_draws" validate:"min=0"`
}

// ReportConfig controls figures, summaries and the OLS comparison
type ReportConfig struct {
	Dir           string  `koanf:"dir" validate:"required"`
	Format        string  `koanf:"format" validate:"oneof=png svg"`
	HDIProb       float64 `koanf:"hdi_prob" validate:"gt=0,lt=1"`
	RHatThreshold float64 `koanf:"rhat_threshold" validate:"gt=1"`
	AgreementSE   float64 `koanf:"agreement_se" validate:"gt=0"`
	PanelWidth    float64 `koanf:"panel_width" validate:"gt=0"`
	PanelHeight   float64 `koanf:"panel_height" validate:"gt=0"`
	SkipPlots     bool    `koanf:"skip_plots"`
	WriteMarkdown bool    `koanf:"write_markdown"`
}

// StoreConfig selects the run store; an empty DSN disables persistence
type StoreConfig struct {
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns" validate:"min=0"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port      string `koanf:"port" validate:"required,numeric"`
	GinMode   string `koanf:"gin_mode" validate:"oneof=debug release test"`
	DebugPort string `koanf:"debug_port" validate:"omitempty,numeric"` // pprof; empty disables
}

// LogConfig holds logger settings
type LogConfig struct {
	Level    string `koanf:"level" validate:"oneof=error warn info debug trace ERROR WARN INFO DEBUG TRACE"`
	Encoding string `koanf:"encoding" validate:"oneof=json console"`
}

// Defaults are the built-in values every other layer overrides
func Defaults() map[string]interface{} {
	s := inference.DefaultSettings()
	return map[string]interface{}{
		"data.response":                      loader.DefaultResponseColumn,
		"data.index_column":                  true,
		"sampler.chains":                     s.Chains,
		"sampler.draws":                      s.Draws,
		"sampler.tune":                       s.Tune,
		"sampler.thin":                       s.Thin,
		"sampler.seed":                       s.Seed,
		"sampler.prior_predictive_samples":   500,
		"sampler.posterior_predictive_draws": 0,
		"report.dir":                         "reports",
		"report.format":                      plotting.FormatPNG,
		"report.hdi_prob":                    0.94,
		"report.rhat_threshold":              1.05,
		"report.agreement_se":                1.0,
		"report.panel_width":                 4.0,
		"report.panel_height":                2.5,
		"report.write_markdown":              true,
		"store.max_open_conns":               4,
		"server.port":                        "8080",
		"server.gin_mode":                    "release",
		"log.level":                          "info",
		"log.encoding":                       "console",
	}
}

// LoadOptions names the optional sources
type LoadOptions struct {
	ConfigFile string         // explicit YAML file; bayesreg.yaml is used when present
	EnvFile    string         // dotenv file; .env is used when present
	Flags      *pflag.FlagSet // only changed flags with a known key are applied
}

// flagKeys maps CLI flag names to configuration keys
var flagKeys = map[string]string{
	"data":         "data.path",
	"response":     "data.response",
	"predictors":   "data.predictors",
	"sheet":        "data.sheet",
	"no-index":     "data.index_column",
	"chains":       "sampler.chains",
	"draws":        "sampler.draws",
	"tune":         "sampler.tune",
	"thin":         "sampler.thin",
	"seed":         "sampler.seed",
	"samples":      "sampler.prior_predictive_samples",
	"ppc-draws":    "sampler.posterior_predictive_draws",
	"out":          "report.dir",
	"format":       "report.format",
	"hdi-prob":     "report.hdi_prob",
	"rhat":         "report.rhat_threshold",
	"tolerance":    "report.agreement_se",
	"no-plots":     "report.skip_plots",
	"dsn":          "store.dsn",
	"port":         "server.port",
	"debug-port":   "server.debug_port",
	"log-level":    "log.level",
	"log-encoding": "log.encoding",
}

// Load merges, in increasing precedence: defaults, YAML file, .env and
// BAYESREG_* environment variables, changed flags.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults")
	}

	cfgFile := opts.ConfigFile
	if cfgFile == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			cfgFile = DefaultConfigFile
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("error reading config file %s: %w", cfgFile, err))
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("error reading env file %s: %w", envFile, err))
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", EnvKey), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load env vars")
	}

	if opts.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(opts.Flags, ".", k, flagValue(opts.Flags)), nil); err != nil {
			return nil, errors.Wrap(err, "failed to load flags")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("unable to decode config: %w", err))
	}
	cfg.Data.Predictors = splitList(cfg.Data.Predictors)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func flagValue(flags *pflag.FlagSet) func(*pflag.Flag) (string, interface{}) {
	return func(f *pflag.Flag) (string, interface{}) {
		if !f.Changed {
			return "", nil
		}
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		// negative flags
		if strings.HasPrefix(f.Name, "no-") && key == "data.index_column" {
			v, _ := flags.GetBool(f.Name)
			return key, !v
		}
		return key, posflag.FlagVal(flags, f)
	}
}

// EnvKey maps BAYESREG_SECTION_SOME_KEY to section.some_key, and
// BAYESREG_PRIORS_SLOPE_SIGMA to priors.slope.sigma.
func EnvKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, rest, ok := strings.Cut(s, "_")
	if !ok {
		return s
	}
	if section == "priors" {
		if name, field, ok := strings.Cut(rest, "_"); ok {
			return section + "." + name + "." + field
		}
	}
	return section + "." + rest
}

func splitList(in []string) []string {
	var out []string
	for _, v := range in {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

var validate = validator.New()

// Validate checks struct tags and cross-field rules
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, fmt.Errorf("configuration validation failed: %w", err))
	}
	for name, p := range map[string]model.Prior{
		"priors.location":  c.Priors.Location,
		"priors.intercept": c.Priors.Intercept,
		"priors.slope":     c.Priors.Slope,
		"priors.scale":     c.Priors.Scale,
	} {
		if p.IsZero() {
			continue
		}
		if err := p.Validate(name); err != nil {
			return errors.WithCode(errors.CodeConfigInvalid, err)
		}
	}
	return nil
}

// Settings converts the sampler section for the engine
func (s SamplerConfig) Settings() inference.Settings {
	return inference.Settings{
		Chains:              s.Chains,
		Draws:               s.Draws,
		Tune:                s.Tune,
		Thin:                s.Thin,
		Seed:                s.Seed,
		PosteriorPredictive: s.PosteriorPredictiveDraws,
	}
}

// LoaderOptions converts the data section for the loader
func (d DataConfig) LoaderOptions() loader.Options {
	return loader.Options{
		ResponseColumn: d.Response,
		IndexColumn:    d.IndexColumn,
		Predictors:     d.Predictors,
		Sheet:          d.Sheet,
	}
}

// PlotOptions converts the report section for the plotter
func (r ReportConfig) PlotOptions() plotting.Options {
	return plotting.Options{
		Dir:    r.Dir,
		Format: r.Format,
		Width:  r.PanelWidth,
		Height: r.PanelHeight,
	}
}
