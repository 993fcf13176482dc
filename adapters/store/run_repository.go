package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"math"
	"time"

	"bayesreg/domain/core"
	"bayesreg/domain/run"
	"bayesreg/internal/errors"
	"bayesreg/ports"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// timeLayout sorts lexicographically in time order
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// RunRepository implements ports.RunRepository with sqlx
type RunRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

var _ ports.RunRepository = (*RunRepository)(nil)

// NewRunRepository wraps an already migrated database
func NewRunRepository(db *sqlx.DB, logger *zap.Logger) *RunRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunRepository{db: db, logger: logger}
}

// DB exposes the underlying handle
func (r *RunRepository) DB() *sqlx.DB { return r.db }

// Close closes the database
func (r *RunRepository) Close() error { return r.db.Close() }

type runRow struct {
	ID          string          `db:"id"`
	Model       string          `db:"model"`
	Variant     string          `db:"variant"`
	DataPath    string          `db:"data_path"`
	DatasetHash string          `db:"dataset_hash"`
	Rows        int             `db:"n_rows"`
	Predictors  int             `db:"n_predictors"`
	Chains      int             `db:"chains"`
	Draws       int             `db:"draws"`
	Tune        int             `db:"tune"`
	Seed        int64           `db:"seed"`
	HDIProb     float64         `db:"hdi_prob"`
	MaxRHat     sql.NullFloat64 `db:"max_r_hat"`
	Converged   bool            `db:"converged"`
	ReportPath  string          `db:"report_path"`
	Fingerprint string          `db:"fingerprint"`
	CodeVersion string          `db:"code_version"`
	CreatedAt   string          `db:"created_at"`
}

type paramRow struct {
	RunID    string          `db:"run_id"`
	Position int             `db:"position"`
	Name     string          `db:"name"`
	Mean     float64         `db:"mean"`
	SD       float64         `db:"sd"`
	HDILow   float64         `db:"hdi_low"`
	HDIHigh  float64         `db:"hdi_high"`
	MCSE     sql.NullFloat64 `db:"mcse_mean"`
	ESS      sql.NullFloat64 `db:"ess"`
	RHat     sql.NullFloat64 `db:"r_hat"`
}

const runColumns = `id, model, variant, data_path, dataset_hash, n_rows, n_predictors, chains, draws, tune,
	seed, hdi_prob, max_r_hat, converged, report_path, fingerprint, code_version, created_at`

const paramColumns = `run_id, position, name, mean, sd, hdi_low, hdi_high, mcse_mean, ess, r_hat`

// nullable stores NaN as NULL and infinities as the largest finite float of
// the same sign, since the drivers disagree on how to bind them
func nullable(v float64) sql.NullFloat64 {
	switch {
	case math.IsNaN(v):
		return sql.NullFloat64{}
	case math.IsInf(v, 1):
		v = math.MaxFloat64
	case math.IsInf(v, -1):
		v = -math.MaxFloat64
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNullable(v sql.NullFloat64) float64 {
	switch {
	case !v.Valid:
		return math.NaN()
	case v.Float64 == math.MaxFloat64:
		return math.Inf(1)
	case v.Float64 == -math.MaxFloat64:
		return math.Inf(-1)
	}
	return v.Float64
}

// Save stores a completed run and its parameter summaries atomically
func (r *RunRepository) Save(ctx context.Context, m *run.RunManifest) error {
	if err := m.Validate(); err != nil {
		return errors.WithCode(errors.CodeInvalidInput, err)
	}
	created := m.CreatedAt
	if created.IsZero() {
		created = core.Now()
	}

	row := runRow{
		ID:          m.RunID.String(),
		Model:       m.Model,
		Variant:     m.Variant,
		DataPath:    m.DataPath,
		DatasetHash: m.DatasetHash.String(),
		Rows:        m.Rows,
		Predictors:  m.Predictors,
		Chains:      m.Chains,
		Draws:       m.Draws,
		Tune:        m.Tune,
		Seed:        int64(m.Seed),
		HDIProb:     m.HDIProb,
		MaxRHat:     nullable(m.MaxRHat),
		Converged:   m.Converged,
		ReportPath:  m.ReportPath,
		Fingerprint: m.Fingerprint.Fingerprint.String(),
		CodeVersion: m.Fingerprint.CodeVersion,
		CreatedAt:   created.Time().UTC().Format(timeLayout),
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.WithCode(errors.CodeDatabaseError, fmt.Errorf("begin: %w", err))
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, `INSERT INTO analysis_runs (`+runColumns+`) VALUES (
		:id, :model, :variant, :data_path, :dataset_hash, :n_rows, :n_predictors, :chains, :draws, :tune,
		:seed, :hdi_prob, :max_r_hat, :converged, :report_path, :fingerprint, :code_version, :created_at)`, row); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, fmt.Errorf("insert run %s: %w", row.ID, err))
	}

	for i, p := range m.Parameters {
		pr := paramRow{
			RunID:    row.ID,
			Position: i,
			Name:     p.Name,
			Mean:     p.Mean,
			SD:       p.SD,
			HDILow:   p.HDILow,
			HDIHigh:  p.HDIHigh,
			MCSE:     nullable(p.MCSE),
			ESS:      nullable(p.ESS),
			RHat:     nullable(p.RHat),
		}
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO parameter_summaries (`+paramColumns+`) VALUES (
			:run_id, :position, :name, :mean, :sd, :hdi_low, :hdi_high, :mcse_mean, :ess, :r_hat)`, pr); err != nil {
			return errors.WithCode(errors.CodeDatabaseError, fmt.Errorf("insert parameter %s: %w", p.Name, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, fmt.Errorf("commit: %w", err))
	}
	r.logger.Debug("saved run",
		zap.String("run_id", row.ID),
		zap.String("model", row.Model),
		zap.Int("parameters", len(m.Parameters)))
	return nil
}

// Get retrieves a run by ID
func (r *RunRepository) Get(ctx context.Context, id core.RunID) (*run.RunManifest, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+runColumns+` FROM analysis_runs WHERE id = ?`), id.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, fmt.Errorf("get run %s: %w", id, err))
	}

	params, err := r.loadParameters(ctx, []string{row.ID})
	if err != nil {
		return nil, err
	}
	return toManifest(row, params[row.ID])
}

// List returns the most recent runs first; limit <= 0 returns all
func (r *RunRepository) List(ctx context.Context, limit int) ([]*run.RunManifest, error) {
	query := `SELECT ` + runColumns + ` FROM analysis_runs ORDER BY created_at DESC, id DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []runRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, fmt.Errorf("list runs: %w", err))
	}
	if len(rows) == 0 {
		return []*run.RunManifest{}, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	params, err := r.loadParameters(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*run.RunManifest, 0, len(rows))
	for _, row := range rows {
		m, err := toManifest(row, params[row.ID])
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *RunRepository) loadParameters(ctx context.Context, ids []string) (map[string][]paramRow, error) {
	query, args, err := sqlx.In(`SELECT `+paramColumns+` FROM parameter_summaries WHERE run_id IN (?) ORDER BY run_id, position`, ids)
	if err != nil {
		return nil, fmt.Errorf("build parameter query: %w", err)
	}
	var rows []paramRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, fmt.Errorf("load parameters: %w", err))
	}
	out := make(map[string][]paramRow, len(ids))
	for _, p := range rows {
		out[p.RunID] = append(out[p.RunID], p)
	}
	return out, nil
}

func toManifest(row runRow, params []paramRow) (*run.RunManifest, error) {
	created, err := time.Parse(timeLayout, row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("run %s: bad created_at %q: %w", row.ID, row.CreatedAt, err)
	}

	m := &run.RunManifest{
		RunID:       core.RunID(row.ID),
		Model:       row.Model,
		Variant:     row.Variant,
		DataPath:    row.DataPath,
		DatasetHash: core.DatasetHash(row.DatasetHash),
		Rows:        row.Rows,
		Predictors:  row.Predictors,
		Chains:      row.Chains,
		Draws:       row.Draws,
		Tune:        row.Tune,
		Seed:        uint64(row.Seed),
		HDIProb:     row.HDIProb,
		MaxRHat:     fromNullable(row.MaxRHat),
		Converged:   row.Converged,
		ReportPath:  row.ReportPath,
		Parameters:  make([]run.ParameterSummary, len(params)),
		CreatedAt:   core.NewTimestamp(created),
	}
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
		m.Parameters[i] = run.ParameterSummary{
			Name:    p.Name,
			Mean:    p.Mean,
			SD:      p.SD,
			HDILow:  p.HDILow,
			HDIHigh: p.HDIHigh,
			MCSE:    fromNullable(p.MCSE),
			ESS:     fromNullable(p.ESS),
			RHat:    fromNullable(p.RHat),
		}
	}
	m.Fingerprint = run.NewRunFingerprint(m.DatasetHash, m.Model, names,
		m.Chains, m.Draws, m.Tune, m.Seed, row.CodeVersion)
	return m, nil
}
