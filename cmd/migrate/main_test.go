package main

import (
	"context"
	"path/filepath"
	"testing"

	"bayesreg/adapters/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestMigrate_Reset(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "runs.db")
	logger := zaptest.NewLogger(t)

	require.NoError(t, migrate(ctx, dsn, false, logger))
	require.NoError(t, migrate(ctx, dsn, true, logger))

	repo, err := store.Open(ctx, dsn, 1, logger)
	require.NoError(t, err)
	defer repo.Close()
	runs, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestMigrate_BadDSN(t *testing.T) {
	err := migrate(context.Background(), "", false, zaptest.NewLogger(t))
	require.Error(t, err)
}
