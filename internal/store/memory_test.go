package store

import (
	"context"
	"errors"
	"testing"

	"lrpsolve/internal/model"
)

func TestMemorySaveAndGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	saved, err := m.SaveSolution(ctx, model.RunSummary{Objective: 12.5, OpenDepots: []int{0, 3}})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ID == "" || saved.CreatedAt == "" || saved.Mode != ModeSolve {
		t.Fatalf("unexpected saved run: %+v", saved)
	}
	sol, err := m.GetSolution(ctx, saved.ID)
	if err != nil {
		t.Fatalf("get solution: %v", err)
	}
	if sol.Objective != 12.5 || sol.NumOpenDepots != 2 || sol.OpenDepots[1] != 3 {
		t.Fatalf("unexpected solution: %+v", sol)
	}
	if _, err := m.GetRun(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestMemoryGetSolutionRejectsValidationRuns(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	v, err := m.SaveValidation(ctx, model.RunSummary{OpenDepots: []int{1}})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := m.GetSolution(ctx, v.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := m.SaveValidation(ctx, v); err == nil {
		t.Fatalf("duplicate id must be rejected")
	}
}

func TestMemoryListRunsPagesInOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	var ids []string
	for i := 0; i < 5; i++ {
		save := m.SaveSolution
		if i%2 == 1 {
			save = m.SaveValidation
		}
		r, err := save(ctx, model.RunSummary{Objective: float64(i)})
		if err != nil {
			t.Fatalf("save: %v", err)
		}
		ids = append(ids, r.ID)
	}

	page, next, err := m.ListRuns(ctx, "", "", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 || page[0].ID != ids[0] || next != ids[1] {
		t.Fatalf("unexpected first page: %v next=%s", page, next)
	}
	page, next, err = m.ListRuns(ctx, "", next, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 3 || next != "" {
		t.Fatalf("unexpected second page: %d next=%s", len(page), next)
	}

	solves, _, err := m.ListRuns(ctx, ModeSolve, "", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(solves) != 3 {
		t.Fatalf("solve runs = %d, want 3", len(solves))
	}
}

func TestOpenWithoutDSNUsesMemory(t *testing.T) {
	s, err := Open(context.Background(), "  ", true)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Fatalf("want *Memory, got %T", s)
	}
}
