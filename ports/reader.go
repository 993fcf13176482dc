package ports

import (
	"context"

	"bayesreg/domain/core"
	"bayesreg/domain/run"
)

// ReaderPort provides read-only access to stored runs for the report server.
// This ensures the UI cannot write to the run store.
type ReaderPort interface {
	ListRuns(ctx context.Context, limit int) ([]*run.RunManifest, error)
	GetRun(ctx context.Context, id core.RunID) (*run.RunManifest, error)
}

// RunReader adapts a RunRepository to the read-only port
type RunReader struct {
	repo RunRepository
}

// NewRunReader wraps a repository
func NewRunReader(repo RunRepository) *RunReader {
	return &RunReader{repo: repo}
}

func (r *RunReader) ListRuns(ctx context.Context, limit int) ([]*run.RunManifest, error) {
	return r.repo.List(ctx, limit)
}

func (r *RunReader) GetRun(ctx context.Context, id core.RunID) (*run.RunManifest, error) {
	return r.repo.Get(ctx, id)
}
