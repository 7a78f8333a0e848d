package lrp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Evaluator scores configurations against every scenario of a set. One
// worker goroutine per scenario is forked for each call and joined before
// aggregation. Calls are serialized because scenario models are stateful.
type Evaluator struct {
	scenarios    *ScenarioSet
	perIteration time.Duration

	Logger   *slog.Logger
	Observer Observer

	mu sync.Mutex
}

func NewEvaluator(scenarios *ScenarioSet, perIteration time.Duration) *Evaluator {
	return &Evaluator{scenarios: scenarios, perIteration: perIteration}
}

func (e *Evaluator) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e *Evaluator) observer() Observer {
	if e.Observer != nil {
		return e.Observer
	}
	return nopObserver{}
}

// Feasible checks that the configuration's capacity covers the demand of
// every scenario.
func (e *Evaluator) Feasible(cfg *DepotConfiguration) error {
	for i := 0; i < e.scenarios.Len(); i++ {
		if d := e.scenarios.Demand(i); !cfg.HasSufficientCapacity(d) {
			return fmt.Errorf("configuration %s: capacity %d below demand %d of scenario %q: %w",
				cfg.Key(), cfg.Capacity(), d, e.scenarios.Scenario(i).Name, ErrInfeasibleConfiguration)
		}
	}
	return nil
}

// Evaluate scores cfg with the given local-search budget and overwrites its
// cost. Budget 0 only constructs starting solutions, giving a cheap estimate.
//
// An infeasible configuration is marked and ErrInfeasibleConfiguration is
// returned. If any scenario solve fails, the configuration is marked failed
// and an error wrapping ErrSolverFailure is returned after every sibling
// worker has finished.
func (e *Evaluator) Evaluate(ctx context.Context, cfg *DepotConfiguration, budget int) (Evaluation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.Feasible(cfg); err != nil {
		cfg.markInfeasible()
		return cfg.Evaluation(), err
	}
	if budget < 0 {
		budget = 0
	}

	n := e.scenarios.Len()
	outcomes := make([]ScenarioOutcome, n)
	sites := cfg.Sites()
	timeLimit := time.Duration(budget) * e.perIteration

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = e.solveScenario(ctx, i, sites, budget, timeLimit)
		}(i)
	}
	wg.Wait()

	eval := Evaluation{
		Budget:      budget,
		OpeningCost: cfg.OpeningCost(),
		Outcomes:    outcomes,
	}
	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			e.logger().Warn("scenario solve failed",
				"config", cfg.Key(), "scenario", o.Scenario, "name", e.scenarios.Scenario(o.Scenario).Name, "err", o.Err)
			errs = append(errs, o.Err)
		}
	}

	if len(errs) > 0 {
		eval.Err = fmt.Errorf("configuration %s: %w", cfg.Key(), errors.Join(errs...))
		cfg.record(eval, StatusFailed)
	} else {
		per := make([]float64, n)
		for i, o := range outcomes {
			per[i] = o.Cost
		}
		eval.PerScenario = per
		eval.RoutingSum = floats.Sum(per)
		eval.RoutingMean = stat.Mean(per, nil)
		eval.Cost = eval.OpeningCost + eval.RoutingMean
		status := StatusEvaluated
		if budget == 0 {
			status = StatusEstimated
		}
		cfg.record(eval, status)
	}

	e.observer().ConfigurationEvaluated(cfg, eval)
	return eval, eval.Err
}

// solveScenario runs one scenario worker. Panics raised by the model are
// reported as solver failures of that scenario only.
func (e *Evaluator) solveScenario(ctx context.Context, idx int, sites []DepotSite, budget int, timeLimit time.Duration) (out ScenarioOutcome) {
	out.Scenario = idx
	start := time.Now()
	defer func() {
		out.Duration = time.Since(start)
		if r := recover(); r != nil {
			out.Cost = 0
			out.Err = fmt.Errorf("scenario %d: panic: %v: %w", idx, r, ErrSolverFailure)
		}
	}()

	model := e.scenarios.Scenario(idx).Model
	model.SetDepots(sites)
	if _, err := model.ConstructStartingSolution(); err != nil {
		out.Err = fmt.Errorf("scenario %d: construct: %w: %w", idx, ErrSolverFailure, err)
		return out
	}
	if err := model.CheckSolution(); err != nil {
		out.Err = fmt.Errorf("scenario %d: check: %w: %w", idx, ErrSolverFailure, err)
		return out
	}
	if budget > 0 {
		if err := model.OptimizeRoutes(ctx, budget, timeLimit); err != nil {
			out.Err = fmt.Errorf("scenario %d: optimize: %w: %w", idx, ErrSolverFailure, err)
			return out
		}
	}
	cost := model.SolutionCost()
	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		out.Err = fmt.Errorf("scenario %d: cost %v: %w", idx, cost, ErrSolverFailure)
		return out
	}
	out.Cost = cost
	return out
}
