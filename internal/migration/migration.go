package migration

import (
	"context"
	"fmt"

	"bayesreg/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner creates the run-store schema. The statements stay within
// the SQL both Postgres and SQLite accept.
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order. It is idempotent.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createSchemaVersionTable(ctx, db); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to create schema_version table"))
	}

	if err := r.createAnalysisRunsTable(ctx, db); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to create analysis_runs table"))
	}

	if err := r.createParameterSummariesTable(ctx, db); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to create parameter_summaries table"))
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to create indexes"))
	}

	if err := r.recordVersion(ctx, db); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to record schema version"))
	}

	return nil
}

func (r *MigrationRunner) createSchemaVersionTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createAnalysisRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS analysis_runs (
			id TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			variant TEXT NOT NULL,
			data_path TEXT NOT NULL DEFAULT '',
			dataset_hash TEXT NOT NULL,
			n_rows INTEGER NOT NULL,
			n_predictors INTEGER NOT NULL,
			chains INTEGER NOT NULL,
			draws INTEGER NOT NULL,
			tune INTEGER NOT NULL,
			seed BIGINT NOT NULL,
			hdi_prob DOUBLE PRECISION NOT NULL,
			max_r_hat DOUBLE PRECISION,
			converged BOOLEAN NOT NULL,
			report_path TEXT NOT NULL DEFAULT '',
			fingerprint TEXT NOT NULL,
			code_version TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createParameterSummariesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS parameter_summaries (
			run_id TEXT NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			mean DOUBLE PRECISION NOT NULL,
			sd DOUBLE PRECISION NOT NULL,
			hdi_low DOUBLE PRECISION NOT NULL,
			hdi_high DOUBLE PRECISION NOT NULL,
			mcse_mean DOUBLE PRECISION,
			ess DOUBLE PRECISION,
			r_hat DOUBLE PRECISION,
			PRIMARY KEY (run_id, name)
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_analysis_runs_created_at ON analysis_runs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_runs_dataset_hash ON analysis_runs(dataset_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_runs_fingerprint ON analysis_runs(fingerprint)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

func (r *MigrationRunner) recordVersion(ctx context.Context, db *sqlx.DB) error {
	var n int
	if err := db.GetContext(ctx, &n, db.Rebind(`SELECT COUNT(*) FROM schema_version WHERE version = ?`), r.version); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err := db.ExecContext(ctx, db.Rebind(`INSERT INTO schema_version (version, applied_at) VALUES (?, CURRENT_TIMESTAMP)`), r.version)
	return err
}

// Reset drops every run-store table in reverse dependency order. Run must be
// called again before the store is used.
func (r *MigrationRunner) Reset(ctx context.Context, db *sqlx.DB) error {
	for _, table := range []string{"parameter_summaries", "analysis_runs", "schema_version"} {
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return errors.WithCode(errors.CodeDatabaseError, fmt.Errorf("drop %s: %w", table, err))
		}
	}
	return nil
}

// AppliedVersion is one row of schema_version
type AppliedVersion struct {
	Version   string `db:"version"`
	AppliedAt string `db:"applied_at"`
}

// Applied lists the recorded schema versions, oldest first
func (r *MigrationRunner) Applied(ctx context.Context, db *sqlx.DB) ([]AppliedVersion, error) {
	var out []AppliedVersion
	if err := db.SelectContext(ctx, &out, `SELECT version, applied_at FROM schema_version ORDER BY applied_at, version`); err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, fmt.Errorf("read schema_version: %w", err))
	}
	return out, nil
}
