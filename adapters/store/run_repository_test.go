package store

import (
	"context"
	"math"
	"regexp"
	"testing"
	"time"

	"bayesreg/domain/core"
	"bayesreg/domain/run"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func manifest(model string, created time.Time) *run.RunManifest {
	hash := core.DatasetHash("abc123")
	params := []run.ParameterSummary{
		{Name: "intercept", Mean: 85, SD: 1, HDILow: 83, HDIHigh: 87, MCSE: 0.03, ESS: 900, RHat: 1.001},
		{Name: "slope[siblings]", Mean: -2.5, SD: 0.4, HDILow: -3.2, HDIHigh: -1.8, MCSE: 0.01, ESS: 850, RHat: 1.002},
		{Name: "sigma", Mean: 8, SD: 0.3, HDILow: 7.5, HDIHigh: 8.5, MCSE: math.NaN(), ESS: math.NaN(), RHat: math.NaN()},
	}
	names := []string{"intercept", "slope[siblings]", "sigma"}
	return &run.RunManifest{
		RunID:       core.NewRunID(),
		Model:       model,
		Variant:     "simple",
		DataPath:    "scores.csv",
		DatasetHash: hash,
		Rows:        480,
		Predictors:  1,
		Chains:      4,
		Draws:       1000,
		Tune:        1000,
		Seed:        math.MaxUint64 - 7,
		HDIProb:     0.94,
		MaxRHat:     math.NaN(),
		Converged:   false,
		Fingerprint: run.NewRunFingerprint(hash, model, names, 4, 1000, 1000, math.MaxUint64-7, "test"),
		Parameters:  params,
		CreatedAt:   core.NewTimestamp(created),
	}
}

func openSQLite(t *testing.T) *RunRepository {
	t.Helper()
	repo, err := Open(context.Background(), ":memory:", 0, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRunRepository_SQLiteRoundTrip(t *testing.T) {
	repo := openSQLite(t)
	ctx := context.Background()

	want := manifest("simple", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Save(ctx, want))

	got, err := repo.Get(ctx, want.RunID)
	require.NoError(t, err)

	assert.Equal(t, want.RunID, got.RunID)
	assert.Equal(t, want.Seed, got.Seed, "uint64 seed survives the BIGINT column")
	assert.Equal(t, want.Fingerprint.Fingerprint, got.Fingerprint.Fingerprint)
	assert.True(t, math.IsNaN(got.MaxRHat))
	assert.False(t, got.Converged)
	assert.Equal(t, want.CreatedAt.Time(), got.CreatedAt.Time())

	require.Len(t, got.Parameters, 3)
	assert.Equal(t, "slope[siblings]", got.Parameters[1].Name)
	assert.Equal(t, -2.5, got.Parameters[1].Mean)
	assert.True(t, math.IsNaN(got.Parameters[2].RHat))
}

func TestRunRepository_InfiniteRHatSurvives(t *testing.T) {
	repo := openSQLite(t)
	ctx := context.Background()

	want := manifest("stuck", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	want.Parameters[0].RHat = math.Inf(1)
	want.MaxRHat = math.Inf(1)
	require.NoError(t, repo.Save(ctx, want))

	got, err := repo.Get(ctx, want.RunID)
	require.NoError(t, err)
	assert.True(t, math.IsInf(got.MaxRHat, 1))
	assert.True(t, math.IsInf(got.Parameters[0].RHat, 1))
	assert.True(t, math.IsNaN(got.Parameters[2].RHat), "undefined stays distinct from infinite")
}

func TestNullable(t *testing.T) {
	assert.False(t, nullable(math.NaN()).Valid)
	for _, v := range []float64{math.Inf(1), math.Inf(-1), 1.02, 0} {
		n := nullable(v)
		require.True(t, n.Valid)
		assert.False(t, math.IsInf(n.Float64, 0))
		assert.Equal(t, v, fromNullable(n))
	}
}

func TestRunRepository_ListNewestFirst(t *testing.T) {
	repo := openSQLite(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"naive", "simple", "multi"} {
		require.NoError(t, repo.Save(ctx, manifest(name, base.Add(time.Duration(i)*time.Hour))))
	}

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "multi", all[0].Model)
	assert.Equal(t, "naive", all[2].Model)
	assert.Len(t, all[1].Parameters, 3)

	two, err := repo.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestRunRepository_GetMissing(t *testing.T) {
	repo := openSQLite(t)
	_, err := repo.Get(context.Background(), core.NewRunID())
	assert.ErrorIs(t, err, core.ErrRunNotFound)
	assert.True(t, core.IsNotFoundError(err))
}

func TestRunRepository_SaveRejectsInvalid(t *testing.T) {
	repo := openSQLite(t)
	m := manifest("simple", time.Now())
	m.Parameters = nil
	assert.Error(t, repo.Save(context.Background(), m))
}

func TestRunRepository_EmptyList(t *testing.T) {
	repo := openSQLite(t)
	runs, err := repo.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func newMockRepo(t *testing.T) (*RunRepository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	return NewRunRepository(sqlx.NewDb(mockDB, DriverPostgres), nil), mock
}

func TestRunRepository_PostgresSave(t *testing.T) {
	repo, mock := newMockRepo(t)
	m := manifest("simple", time.Now())

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO analysis_runs")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	for range m.Parameters {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO parameter_summaries")).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), m))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepository_PostgresSaveRollsBack(t *testing.T) {
	repo, mock := newMockRepo(t)
	m := manifest("simple", time.Now())

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO analysis_runs")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO parameter_summaries")).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.Save(context.Background(), m)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRepository_PostgresGetUsesDollarPlaceholders(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := core.NewRunID()

	runCols := []string{"id", "model", "variant", "data_path", "dataset_hash", "n_rows", "n_predictors",
		"chains", "draws", "tune", "seed", "hdi_prob", "max_r_hat", "converged", "report_path",
		"fingerprint", "code_version", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM analysis_runs WHERE id = $1")).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows(runCols).AddRow(
			id.String(), "naive", "naive", "scores.csv", "abc", 10, 0,
			2, 100, 100, 42, 0.94, 1.01, true, "", "fp", "v1", "2026-01-02T03:04:05.000000000Z"))

	paramCols := []string{"run_id", "position", "name", "mean", "sd", "hdi_low", "hdi_high", "mcse_mean", "ess", "r_hat"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM parameter_summaries WHERE run_id IN ($1)")).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows(paramCols).
			AddRow(id.String(), 0, "mu", 80.0, 1.0, 78.0, 82.0, 0.02, 700.0, 1.0).
			AddRow(id.String(), 1, "sigma", 6.0, 0.5, 5.1, 6.9, nil, nil, nil))

	m, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), m.Seed)
	assert.True(t, m.Converged)
	assert.Equal(t, []string{"mu", "sigma"}, m.Fingerprint.Parameters)
	assert.True(t, math.IsNaN(m.Parameters[1].ESS))
	assert.Equal(t, 2026, m.CreatedAt.Time().Year())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDriverFor(t *testing.T) {
	tests := []struct {
		dsn, driver, source string
	}{
		{"postgres://u:p@localhost/bayes?sslmode=disable", DriverPostgres, "postgres://u:p@localhost/bayes?sslmode=disable"},
		{"host=localhost dbname=bayes", DriverPostgres, "host=localhost dbname=bayes"},
		{"sqlite://runs.db", DriverSQLite, "runs.db"},
		{"file:runs.db?_pragma=busy_timeout(5000)", DriverSQLite, "file:runs.db?_pragma=busy_timeout(5000)"},
		{":memory:", DriverSQLite, ":memory:"},
	}
	for _, tt := range tests {
		driver, source := DriverFor(tt.dsn)
		assert.Equal(t, tt.driver, driver, tt.dsn)
		assert.Equal(t, tt.source, source, tt.dsn)
	}
}
