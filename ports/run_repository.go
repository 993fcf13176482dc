package ports

import (
	"context"

	"bayesreg/domain/core"
	"bayesreg/domain/run"
)

// RunRepository defines the interface for persisted analysis runs
type RunRepository interface {
	// Save stores a completed run and its parameter summaries atomically
	Save(ctx context.Context, m *run.RunManifest) error

	// Get retrieves a run by ID, returning core.ErrRunNotFound when absent
	Get(ctx context.Context, id core.RunID) (*run.RunManifest, error)

	// List returns the most recent runs first, optionally limited
	List(ctx context.Context, limit int) ([]*run.RunManifest, error)
}
