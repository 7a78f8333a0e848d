package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"lrpsolve/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu    sync.Mutex
	runs  map[string]model.RunSummary
	order []string // insertion order
}

func NewMemory() *Memory {
	return &Memory{runs: map[string]model.RunSummary{}}
}

func (m *Memory) SaveSolution(ctx context.Context, run model.RunSummary) (model.RunSummary, error) {
	run.Mode = ModeSolve
	return m.save(run)
}

func (m *Memory) SaveValidation(ctx context.Context, run model.RunSummary) (model.RunSummary, error) {
	run.Mode = ModeValidate
	return m.save(run)
}

func (m *Memory) save(run model.RunSummary) (model.RunSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if _, ok := m.runs[run.ID]; ok {
		return model.RunSummary{}, fmt.Errorf("save run: duplicate id %s", run.ID)
	}
	if run.CreatedAt == "" {
		run.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	m.runs[run.ID] = run
	m.order = append(m.order, run.ID)
	return run, nil
}

func (m *Memory) GetRun(ctx context.Context, id string) (model.RunSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return model.RunSummary{}, ErrNotFound
	}
	return r, nil
}

func (m *Memory) GetSolution(ctx context.Context, id string) (model.SolutionFile, error) {
	r, err := m.GetRun(ctx, id)
	if err != nil {
		return model.SolutionFile{}, err
	}
	if r.Mode != ModeSolve {
		return model.SolutionFile{}, ErrNotFound
	}
	return solutionOf(r), nil
}

func (m *Memory) ListRuns(ctx context.Context, mode, cursor string, limit int) ([]model.RunSummary, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit = clampLimit(limit)
	start := 0
	if cursor != "" {
		start = len(m.order)
		for i, id := range m.order {
			if id == cursor {
				start = i + 1
				break
			}
		}
	}
	var out []model.RunSummary
	for _, id := range m.order[start:] {
		r := m.runs[id]
		if mode != "" && r.Mode != mode {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	next := ""
	if len(out) == limit {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

func (m *Memory) Close() error { return nil }
