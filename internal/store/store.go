package store

import (
	"context"
	"errors"
	"strings"

	"lrpsolve/internal/model"
)

const (
	ModeSolve    = "solve"
	ModeValidate = "validate"
)

// Store persists the history of solve and validation runs.
type Store interface {
	// SaveSolution records a solve run. An empty ID is assigned.
	SaveSolution(ctx context.Context, run model.RunSummary) (model.RunSummary, error)
	// SaveValidation records a validation run. An empty ID is assigned.
	SaveValidation(ctx context.Context, run model.RunSummary) (model.RunSummary, error)
	// GetSolution returns the solution document of a solve run.
	GetSolution(ctx context.Context, id string) (model.SolutionFile, error)
	GetRun(ctx context.Context, id string) (model.RunSummary, error)
	// ListRuns pages through runs oldest first; mode "" lists every mode.
	ListRuns(ctx context.Context, mode, cursor string, limit int) ([]model.RunSummary, string, error)
	Close() error
}

var ErrNotFound = errors.New("not found")

// Open returns a Postgres store when dsn is set and an in-memory store otherwise.
func Open(ctx context.Context, dsn string, migrate bool) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return NewMemory(), nil
	}
	p, err := NewPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := p.Migrate(ctx); err != nil {
			_ = p.Close()
			return nil, err
		}
	}
	return p, nil
}

func solutionOf(run model.RunSummary) model.SolutionFile {
	return model.SolutionFile{
		Objective:     run.Objective,
		NumOpenDepots: len(run.OpenDepots),
		OpenDepots:    append([]int(nil), run.OpenDepots...),
	}
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}
