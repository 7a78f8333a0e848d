package lrp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairConfig(t *testing.T, cat *Catalog, seq int, ids ...int) *DepotConfiguration {
	t.Helper()
	sites := make([]DepotSite, len(ids))
	for i, id := range ids {
		sites[i] = cat.Site(id)
	}
	cfg, err := NewDepotConfiguration(seq, sites...)
	require.NoError(t, err)
	return cfg
}

func TestEvaluateAggregatesMeanOverScenarios(t *testing.T) {
	cat := exampleCatalog(t)
	a, b := newFake(70), newFake(60, Point{X: 20, Y: 20})
	set := newSet(t, a, b)
	ev := NewEvaluator(set, time.Millisecond)
	cfg := pairConfig(t, cat, 0, 0, 1)

	eval, err := ev.Evaluate(context.Background(), cfg, 10)
	require.NoError(t, err)
	require.Len(t, eval.PerScenario, 2)
	assert.Equal(t, 10, eval.Budget)
	assert.InDelta(t, eval.PerScenario[0]+eval.PerScenario[1], eval.RoutingSum, 1e-9)
	assert.InDelta(t, eval.RoutingSum/2, eval.RoutingMean, 1e-9)
	assert.InDelta(t, 18+eval.RoutingMean, eval.Cost, 1e-9)
	assert.Equal(t, StatusEvaluated, cfg.Status())
	cost, ok := cfg.Cost()
	assert.True(t, ok)
	assert.Equal(t, eval.Cost, cost)
	assert.Equal(t, 1, a.optimizes)
	assert.Equal(t, 1, b.optimizes)
}

func TestEvaluateZeroBudgetOnlyConstructs(t *testing.T) {
	cat := exampleCatalog(t)
	m := newFake(70)
	set := newSet(t, m)
	ev := NewEvaluator(set, time.Millisecond)
	cfg := pairConfig(t, cat, 0, 0, 1)

	_, err := ev.Evaluate(context.Background(), cfg, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusEstimated, cfg.Status())
	assert.Equal(t, 1, m.constructs)
	assert.Zero(t, m.optimizes)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	cat := exampleCatalog(t)
	set := newSet(t, newFake(70), newFake(40))
	ev := NewEvaluator(set, time.Millisecond)
	cfg := pairConfig(t, cat, 0, 0, 2)

	first, err := ev.Evaluate(context.Background(), cfg, 25)
	require.NoError(t, err)
	second, err := ev.Evaluate(context.Background(), cfg, 25)
	require.NoError(t, err)
	assert.Equal(t, first.Cost, second.Cost)
	assert.Equal(t, first.PerScenario, second.PerScenario)
}

func TestEvaluateRejectsInfeasible(t *testing.T) {
	cat := exampleCatalog(t)
	m := newFake(70)
	set := newSet(t, m)
	ev := NewEvaluator(set, time.Millisecond)
	cfg := pairConfig(t, cat, 0, 0)

	_, err := ev.Evaluate(context.Background(), cfg, 10)
	require.ErrorIs(t, err, ErrInfeasibleConfiguration)
	assert.Equal(t, StatusInfeasible, cfg.Status())
	assert.False(t, cfg.Valid())
	assert.Zero(t, m.constructs, "infeasible configurations are never solved")
}

func TestEvaluateFailureMarksConfigurationAndWaitsForSiblings(t *testing.T) {
	cat := exampleCatalog(t)
	ok1, bad, ok2 := newFake(70), newFake(70), newFake(70)
	bad.failOn = map[int]bool{1: true}
	set := newSet(t, ok1, bad, ok2)
	ev := NewEvaluator(set, time.Millisecond)
	cfg := pairConfig(t, cat, 0, 0, 1)

	eval, err := ev.Evaluate(context.Background(), cfg, 5)
	require.ErrorIs(t, err, ErrSolverFailure)
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, StatusFailed, cfg.Status())
	_, valid := cfg.Cost()
	assert.False(t, valid)
	assert.Nil(t, eval.PerScenario)
	assert.Zero(t, eval.Cost)

	require.Len(t, eval.Outcomes, 3)
	assert.NoError(t, eval.Outcomes[0].Err)
	assert.Error(t, eval.Outcomes[1].Err)
	assert.NoError(t, eval.Outcomes[2].Err)
	assert.Equal(t, 1, ok1.optimizes, "sibling solves still complete")
	assert.Equal(t, 1, ok2.optimizes)
}

func TestEvaluateRecoversWorkerPanic(t *testing.T) {
	cat := exampleCatalog(t)
	m := newFake(70)
	m.panicOpt = true
	set := newSet(t, newFake(70), m)
	ev := NewEvaluator(set, time.Millisecond)
	cfg := pairConfig(t, cat, 0, 0, 1)

	_, err := ev.Evaluate(context.Background(), cfg, 5)
	require.ErrorIs(t, err, ErrSolverFailure)
	assert.Equal(t, StatusFailed, cfg.Status())
}

func TestEvaluateRejectsNonFiniteCost(t *testing.T) {
	cat := exampleCatalog(t)
	m := newFake(70)
	m.nanCost = true
	set := newSet(t, m)
	ev := NewEvaluator(set, time.Millisecond)
	cfg := pairConfig(t, cat, 0, 0, 1)

	_, err := ev.Evaluate(context.Background(), cfg, 5)
	require.ErrorIs(t, err, ErrSolverFailure)
	assert.Equal(t, StatusFailed, cfg.Status())
}

func TestEvaluateRecoveryAfterFailureReplacesState(t *testing.T) {
	cat := exampleCatalog(t)
	m := newFake(70)
	m.failOn = map[int]bool{0: true}
	set := newSet(t, m)
	ev := NewEvaluator(set, time.Millisecond)
	cfg := pairConfig(t, cat, 0, 0, 1)

	_, err := ev.Evaluate(context.Background(), cfg, 5)
	require.Error(t, err)
	m.failOn = nil
	_, err = ev.Evaluate(context.Background(), cfg, 5)
	require.NoError(t, err)
	assert.Equal(t, StatusEvaluated, cfg.Status())
	assert.Nil(t, cfg.Evaluation().Err)
}

func TestEvaluateUsesOverrideDemand(t *testing.T) {
	cat := exampleCatalog(t)
	override := 85
	set, err := NewScenarioSet([]*Scenario{{Name: "s", Model: newFake(10)}}, &override)
	require.NoError(t, err)
	ev := NewEvaluator(set, time.Millisecond)

	assert.ErrorIs(t, ev.Feasible(pairConfig(t, cat, 0, 0, 2)), ErrInfeasibleConfiguration)
	assert.NoError(t, ev.Feasible(pairConfig(t, cat, 1, 0, 1)))
}
