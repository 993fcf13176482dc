package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"bayesreg/domain/core"
	"bayesreg/domain/dataset"
	"bayesreg/domain/inference"
	"bayesreg/domain/model"
	"bayesreg/domain/run"
	"bayesreg/internal/diagnostics"
	"bayesreg/internal/errors"
	"bayesreg/internal/loader"
	"bayesreg/internal/ols"
	"bayesreg/internal/plotting"
	"bayesreg/internal/profiling"
	"bayesreg/internal/report"
	"bayesreg/internal/summary"
	"bayesreg/ports"

	"go.uber.org/zap"
)

// CodeVersion is recorded in run fingerprints
const CodeVersion = "v0.3.0"

// AnalysisOptions are the reporting knobs shared by every request
type AnalysisOptions struct {
	HDIProb       float64
	RHatThreshold float64
	AgreementSE   float64
	PriorSamples  int
	ReportDir     string
	WriteReport   bool
}

// DefaultAnalysisOptions mirrors the config defaults
func DefaultAnalysisOptions() AnalysisOptions {
	return AnalysisOptions{
		HDIProb:       diagnostics.DefaultHDIProb,
		RHatThreshold: diagnostics.DefaultRHatThreshold,
		AgreementSE:   ols.DefaultTolerance,
		PriorSamples:  500,
		ReportDir:     "reports",
		WriteReport:   true,
	}
}

// AnalysisService runs the load, build, simulate, sample, summarize and
// report pipeline. The run store and plotter are optional.
type AnalysisService struct {
	loader  *loader.Loader
	sampler ports.Sampler
	runs    ports.RunRepository
	plotter *plotting.Plotter
	opts    AnalysisOptions
	logger  *zap.Logger
}

// NewAnalysisService wires the pipeline; runs and plotter may be nil
func NewAnalysisService(ld *loader.Loader, sampler ports.Sampler, runs ports.RunRepository,
	plotter *plotting.Plotter, opts AnalysisOptions, logger *zap.Logger) *AnalysisService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisService{
		loader:  ld,
		sampler: sampler,
		runs:    runs,
		plotter: plotter,
		opts:    opts,
		logger:  logger,
	}
}

// ModelRequest selects the data and model shape
type ModelRequest struct {
	DataPath  string
	Table     *dataset.Table // used instead of DataPath when set
	Variant   model.Variant
	Predictor core.VariableKey // simple model only; defaults to the first column
	Priors    model.PriorSet
}

// FitRequest is a ModelRequest plus sampler settings
type FitRequest struct {
	ModelRequest
	Settings inference.Settings
	Save     bool
}

// InspectResult describes a loaded dataset
type InspectResult struct {
	Table    *dataset.Table
	Profiles []profiling.ColumnProfile
}

// PriorResult is the outcome of a prior-predictive simulation
type PriorResult struct {
	Model   *model.Model
	Samples *inference.PredictiveSamples
	Check   report.PredictiveCheck
	Plot    string
}

// FitResult is everything a completed analysis produced
type FitResult struct {
	RunID      core.RunID
	Table      *dataset.Table
	Model      *model.Model
	Prior      *inference.PredictiveSamples
	PriorCheck report.PredictiveCheck
	Posterior  *inference.Result
	Summary    *summary.Table
	OLS        *ols.Result
	Comparison []ols.ComparisonRow
	Warnings   []string
	Artifacts  plotting.Artifacts
	Report     report.Files
	Manifest   *run.RunManifest
	Duration   time.Duration
}

// Converged reports whether every R-hat was within the threshold
func (r *FitResult) Converged(threshold float64) bool {
	return r.Summary != nil && r.Summary.Converged(threshold)
}

// Inspect loads a dataset and profiles every column
func (s *AnalysisService) Inspect(ctx context.Context, path string) (*InspectResult, error) {
	t, err := s.loader.Load(ctx, path)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	profiles, err := profiling.NewDistributionAnalyzer().ProfileTable(t)
	if err != nil {
		return nil, errors.Wrap(err, "profile columns")
	}
	return &InspectResult{Table: t, Profiles: profiles}, nil
}

// BuildModel loads the data if needed and builds the requested model
func (s *AnalysisService) BuildModel(ctx context.Context, req ModelRequest) (*dataset.Table, *model.Model, error) {
	t := req.Table
	if t == nil {
		var err error
		if t, err = s.loader.Load(ctx, req.DataPath); err != nil {
			return nil, nil, errors.Wrapf(err, "load %s", req.DataPath)
		}
	}
	m, err := model.Build(req.Variant, t, req.Predictor, model.WithPriors(req.Priors))
	if err != nil {
		return nil, nil, errors.Wrapf(err, "build %s model", req.Variant)
	}
	return t, m, nil
}

// PriorPredictive simulates responses from the priors alone
func (s *AnalysisService) PriorPredictive(ctx context.Context, req ModelRequest, samples int, seed uint64) (*PriorResult, error) {
	_, m, err := s.BuildModel(ctx, req)
	if err != nil {
		return nil, err
	}
	if samples <= 0 {
		samples = s.opts.PriorSamples
	}
	pp, err := s.sampler.SamplePriorPredictive(ctx, m, samples, seed)
	if err != nil {
		return nil, errors.Wrap(err, "prior predictive")
	}
	out := &PriorResult{Model: m, Samples: pp, Check: report.CheckPredictive(pp)}
	if s.plotter != nil {
		if out.Plot, err = s.plotter.PredictivePlot(pp, m.Name()+" prior predictive", m.Name()+"_prior_predictive"); err != nil {
			return nil, errors.Wrap(err, "plot prior predictive")
		}
	}
	return out, nil
}

// OLS fits least squares for the requested model shape only
func (s *AnalysisService) OLS(ctx context.Context, req ModelRequest) (*ols.Result, *model.Model, error) {
	_, m, err := s.BuildModel(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	fit, err := ols.FitModel(m)
	if err != nil {
		return nil, nil, errors.Wrap(err, "least squares")
	}
	return fit, m, nil
}

// Fit runs the whole pipeline. Non-convergence only adds warnings.
func (s *AnalysisService) Fit(ctx context.Context, req FitRequest) (*FitResult, error) {
	start := time.Now()
	t, m, err := s.BuildModel(ctx, req.ModelRequest)
	if err != nil {
		return nil, err
	}
	out := &FitResult{Table: t, Model: m}

	if s.opts.PriorSamples > 0 {
		if out.Prior, err = s.sampler.SamplePriorPredictive(ctx, m, s.opts.PriorSamples, req.Settings.Seed); err != nil {
			return nil, errors.Wrap(err, "prior predictive")
		}
		out.PriorCheck = report.CheckPredictive(out.Prior)
	}

	if out.Posterior, err = s.sampler.SamplePosterior(ctx, m, req.Settings); err != nil {
		return nil, errors.Wrap(err, "posterior sampling")
	}
	out.RunID = out.Posterior.RunID

	if out.Summary, err = summary.Summarize(out.Posterior, s.opts.HDIProb); err != nil {
		return nil, errors.Wrap(err, "summarize posterior")
	}
	out.Warnings = out.Summary.Warnings(s.opts.RHatThreshold)
	for _, w := range out.Warnings {
		s.logger.Warn("convergence", zap.String("run_id", out.RunID.String()), zap.String("detail", w))
	}

	if fit, err := ols.FitModel(m); err != nil {
		s.logger.Warn("least squares comparison skipped", zap.Error(err))
	} else {
		out.OLS = fit
		out.Comparison = ols.Compare(out.Summary, fit, s.opts.AgreementSE)
	}

	if s.plotter != nil {
		if out.Artifacts, err = s.plotter.RenderRun(out.Posterior, out.Summary, out.Prior); err != nil {
			return nil, errors.Wrap(err, "render figures")
		}
	}

	if s.opts.WriteReport {
		doc := s.document(req, out)
		if out.Report, err = doc.Write(s.opts.ReportDir); err != nil {
			return nil, errors.Wrap(err, "write report")
		}
	}

	out.Manifest = s.manifest(req, out)
	if req.Save {
		if s.runs == nil {
			return nil, errors.ConfigInvalid("saving runs needs store.dsn")
		}
		if err := s.runs.Save(ctx, out.Manifest); err != nil {
			return nil, errors.Wrap(err, "save run")
		}
	}

	out.Duration = time.Since(start)
	s.logger.Info("analysis complete",
		zap.String("run_id", out.RunID.String()),
		zap.String("model", m.Name()),
		zap.Int("rows", m.N()),
		zap.Float64("max_r_hat", out.Summary.MaxRHat()),
		zap.Bool("saved", req.Save),
		zap.Duration("elapsed", out.Duration))
	return out, nil
}

func (s *AnalysisService) document(req FitRequest, out *FitResult) *report.Document {
	prior := out.PriorCheck
	doc := &report.Document{
		RunID:     out.RunID.String(),
		Model:     out.Model.Name(),
		CreatedAt: time.Now(),
		Data: report.DataOverview{
			Path:        dataPath(req, out.Table),
			Rows:        out.Table.RowCount(),
			DroppedRows: out.Table.DroppedRows,
			Response:    out.Table.Response.Key.String(),
			Predictors:  out.Table.PredictorNames(),
			Hash:        out.Table.Fingerprint.Short(),
		},
		Parameters:    out.Model.Parameters(),
		Settings:      req.Settings,
		Summary:       out.Summary,
		OLS:           out.OLS,
		Comparison:    out.Comparison,
		Artifacts:     out.Artifacts,
		RHatThreshold: s.opts.RHatThreshold,
	}
	if out.Prior != nil {
		doc.Prior = &prior
	}
	return doc
}

func (s *AnalysisService) manifest(req FitRequest, out *FitResult) *run.RunManifest {
	set := out.Posterior.Settings
	m := &run.RunManifest{
		RunID:       out.RunID,
		Model:       out.Model.Name(),
		Variant:     string(out.Model.Variant()),
		DataPath:    dataPath(req, out.Table),
		DatasetHash: out.Table.Fingerprint,
		Rows:        out.Model.N(),
		Predictors:  len(out.Model.Predictors()),
		Chains:      set.Chains,
		Draws:       set.Draws,
		Tune:        set.Tune,
		Seed:        set.Seed,
		HDIProb:     out.Summary.HDIProb,
		MaxRHat:     out.Summary.MaxRHat(),
		Converged:   out.Summary.Converged(s.opts.RHatThreshold),
		Parameters:  out.Summary.ToParameterSummaries(),
		CreatedAt:   core.Now(),
		Fingerprint: run.NewRunFingerprint(out.Table.Fingerprint, out.Model.Name(), out.Model.ParamNames(),
			set.Chains, set.Draws, set.Tune, set.Seed, CodeVersion),
	}
	if out.Report.HTML != "" {
		m.ReportPath = out.Report.HTML
	}
	return m
}

func dataPath(req FitRequest, t *dataset.Table) string {
	if req.DataPath != "" {
		if abs, err := filepath.Abs(req.DataPath); err == nil {
			return abs
		}
		return req.DataPath
	}
	return t.Source
}

// CompareModels fits several variants on the same data and returns their
// results in request order, stopping at the first failure.
func (s *AnalysisService) CompareModels(ctx context.Context, base FitRequest, variants ...model.Variant) ([]*FitResult, error) {
	t := base.Table
	if t == nil {
		var err error
		if t, err = s.loader.Load(ctx, base.DataPath); err != nil {
			return nil, errors.Wrapf(err, "load %s", base.DataPath)
		}
	}
	out := make([]*FitResult, 0, len(variants))
	for _, v := range variants {
		req := base
		req.Table = t
		req.Variant = v
		res, err := s.Fit(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("%s model: %w", v, err)
		}
		out = append(out, res)
	}
	return out, nil
}

// ForestAcross draws one forest plot over several fitted models. It returns an
// empty path when plotting is disabled.
func (s *AnalysisService) ForestAcross(name string, results ...*FitResult) (string, error) {
	if s.plotter == nil || len(results) == 0 {
		return "", nil
	}
	tables := make([]*summary.Table, len(results))
	for i, r := range results {
		tables[i] = r.Summary
	}
	path, err := s.plotter.ForestPlot(name, tables...)
	if err != nil {
		return "", errors.Wrap(err, "render comparison forest plot")
	}
	return path, nil
}
