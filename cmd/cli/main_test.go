package main

import (
	"bytes"
	"context"
	"path/filepath"
	"regexp"
	"testing"

	"bayesreg/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_Pipeline(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	data := filepath.Join(dir, "students.csv")
	dsn := filepath.Join(dir, "runs.db")

	out, err := execute(t, "generate", data, "--students", "150", "--seed", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 150 students")

	out, err = execute(t, "inspect", data, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "hours_studied")
	assert.Contains(t, out, "dropped (missing)")

	out, err = execute(t, "ols", data, "--model", "simple", "--predictor", "siblings", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "slope[siblings]")

	out, err = execute(t, "prior", data, "--model", "naive", "--samples", "50", "--no-plots", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Prior predictive (50 samples)")

	out, err = execute(t, "fit", data,
		"--model", "naive", "--chains", "2", "--draws", "200", "--tune", "200",
		"--samples", "50", "--out", filepath.Join(dir, "reports"),
		"--save", "--dsn", dsn, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "naive model")
	assert.Contains(t, out, "Prior predictive (50 samples)")
	assert.Contains(t, out, "report: ")

	id := regexp.MustCompile(`run ([0-9a-f-]{36})`).FindStringSubmatch(out)
	require.Len(t, id, 2)

	out, err = execute(t, "runs", "list", "--dsn", dsn, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, id[1])

	out, err = execute(t, "runs", "show", id[1], "--dsn", dsn, "--json", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, `"model": "naive"`)
}

func TestCLI_Errors(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	t.Run("no dataset", func(t *testing.T) {
		_, err := execute(t, "inspect", "--log-level", "error")
		require.Error(t, err)
		assert.Equal(t, 2, errors.ExitCode(err))
	})

	t.Run("unknown model", func(t *testing.T) {
		_, err := execute(t, "ols", "x.csv", "--model", "quadratic", "--log-level", "error")
		require.Error(t, err)
		assert.Equal(t, 2, errors.ExitCode(err))
	})

	t.Run("blank predictor", func(t *testing.T) {
		_, err := execute(t, "ols", "x.csv", "--model", "simple", "--predictor", " ", "--log-level", "error")
		require.Error(t, err)
		assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := execute(t, "fit", "x.csv", "--chains", "-1", "--log-level", "error")
		require.Error(t, err)
		assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
	})

	t.Run("runs without store", func(t *testing.T) {
		_, err := execute(t, "runs", "list", "--log-level", "error")
		require.Error(t, err)
		assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
	})

	t.Run("bad run id", func(t *testing.T) {
		_, err := execute(t, "runs", "show", "not-a-uuid", "--dsn", filepath.Join(dir, "r.db"))
		require.Error(t, err)
		assert.Equal(t, 2, errors.ExitCode(err))
	})

	t.Run("missing run", func(t *testing.T) {
		_, err := execute(t, "runs", "show", "0199f0aa-0000-7000-8000-000000000001",
			"--dsn", filepath.Join(dir, "r.db"), "--log-level", "error")
		require.Error(t, err)
		assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
	})
}
