package lrp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// Result is the outcome of a solve or validation run.
type Result struct {
	Validation    bool
	Configuration *DepotConfiguration
	Objective     float64
	OpeningCost   float64
	PerScenario   []float64 // routing cost per scenario, load order
	ScenarioNames []string

	Bound       int
	Enumeration Enumeration
	Stages      []StageSummary
	Elapsed     time.Duration
}

// OpenDepots returns the catalog ids of the chosen configuration.
func (r *Result) OpenDepots() []int { return r.Configuration.IDs() }

// Pipeline drives bound estimation, enumeration and staged pruning over one
// catalog and scenario set.
type Pipeline struct {
	cfg       RunConfig
	catalog   *Catalog
	scenarios *ScenarioSet
	evaluator *Evaluator

	Logger   *slog.Logger
	Observer Observer
}

func NewPipeline(cfg RunConfig, catalog *Catalog, scenarios *ScenarioSet) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("run config: %w", err)
	}
	if catalog == nil || catalog.Len() == 0 {
		return nil, ErrEmptyCatalog
	}
	if scenarios == nil || scenarios.Len() == 0 {
		return nil, ErrNoScenarios
	}
	return &Pipeline{
		cfg:       cfg,
		catalog:   catalog,
		scenarios: scenarios,
		evaluator: NewEvaluator(scenarios, cfg.IterationTimeLimit()),
	}, nil
}

func (p *Pipeline) Config() RunConfig { return p.cfg }

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func (p *Pipeline) observer() Observer {
	if p.Observer != nil {
		return p.Observer
	}
	return nopObserver{}
}

func (p *Pipeline) prepare() {
	p.evaluator.Logger = p.logger()
	p.evaluator.Observer = p.observer()
}

// Solve searches for the cheapest configuration. It fails with
// ErrNoFeasibleConfiguration when enumeration or any stage leaves no valid
// candidate.
func (p *Pipeline) Solve(ctx context.Context) (*Result, error) {
	p.prepare()
	log := p.logger()
	start := time.Now()

	est := BoundEstimator{Catalog: p.catalog, Order: p.cfg.CapacityOrder}
	bound, err := est.UpperBound(p.scenarios)
	if err != nil {
		return nil, fmt.Errorf("bound: %w", err)
	}
	log.Info("bound computed", "bound", bound, "catalog", p.catalog.Len(), "order", p.cfg.CapacityOrder.String())

	enum := Enumerator{Catalog: p.catalog, Evaluator: p.evaluator, Logger: log}
	pool, stats, err := enum.Enumerate(ctx, bound)
	if err != nil {
		return nil, fmt.Errorf("enumerate: %w", err)
	}
	log.Info("enumeration finished", "generated", stats.Generated(), "kept", stats.Kept())
	best := pool.Best()
	if best == nil {
		return nil, fmt.Errorf("enumeration: %w", ErrNoFeasibleConfiguration)
	}
	log.Info("best after enumeration", "config", best.Key(), "cost", best.cost)

	res := &Result{Bound: bound, Enumeration: stats, ScenarioNames: p.scenarios.Names()}
	caps := p.cfg.StageCaps()
	for i, k := range caps {
		summary, err := p.runStage(ctx, pool, StageInfo{
			Index:  i,
			Count:  len(caps),
			Cap:    k,
			Budget: StageBudget(p.cfg.RuntimeBudget, len(caps), k, p.cfg.FinalIterations),
		})
		if err != nil {
			return nil, err
		}
		res.Stages = append(res.Stages, summary)
	}

	winner := pool.Best()
	eval := winner.Evaluation()
	res.Configuration = winner
	res.Objective = eval.Cost
	res.OpeningCost = eval.OpeningCost
	res.PerScenario = append([]float64(nil), eval.PerScenario...)
	res.Elapsed = time.Since(start)
	log.Info("search finished", "config", winner.Key(), "objective", res.Objective, "elapsed", res.Elapsed)
	return res, nil
}

// runStage truncates the pool to the stage cap, re-evaluates every survivor
// with the stage budget and re-sorts.
func (p *Pipeline) runStage(ctx context.Context, pool *CandidatePool, info StageInfo) (StageSummary, error) {
	log := p.logger()
	pool.Truncate(info.Cap)
	info.PoolSize = pool.Len()
	p.observer().StageStarted(info)
	log.Debug("stage started", "stage", info.Index, "cap", info.Cap, "budget", info.Budget, "pool", info.PoolSize)

	summary := StageSummary{StageInfo: info}
	for _, c := range pool.Configurations() {
		if _, err := p.evaluator.Evaluate(ctx, c, info.Budget); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, ctxErr
			}
			summary.Failed++
		}
	}
	pool.Sort()
	summary.Best = pool.Best()
	p.observer().StageCompleted(summary)

	if summary.Best == nil {
		return summary, fmt.Errorf("stage %d (cap %d): %w", info.Index, info.Cap, ErrNoFeasibleConfiguration)
	}
	log.Info("stage completed",
		"stage", info.Index, "cap", info.Cap, "budget", info.Budget,
		"evaluated", info.PoolSize, "failed", summary.Failed,
		"best", summary.Best.Key(), "cost", summary.Best.cost)
	return summary, nil
}

// Validate evaluates the configuration opening exactly openDepots at the final
// budget and reports the routing cost of every scenario. Duplicate ids collapse.
func (p *Pipeline) Validate(ctx context.Context, openDepots []int) (*Result, error) {
	p.prepare()
	start := time.Now()

	seen := make(map[int]bool, len(openDepots))
	var ids []int
	for _, id := range openDepots {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	sites := make([]DepotSite, 0, len(ids))
	for _, id := range ids {
		s, ok := p.catalog.Lookup(id)
		if !ok {
			return nil, fmt.Errorf("validate: depot %d not in catalog of %d sites: %w", id, p.catalog.Len(), ErrInputMalformed)
		}
		sites = append(sites, s)
	}
	cfg, err := NewDepotConfiguration(0, sites...)
	if err != nil {
		return nil, fmt.Errorf("validate: %w: %w", ErrInputMalformed, err)
	}

	eval, err := p.evaluator.Evaluate(ctx, cfg, p.cfg.FinalIterations)
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	res := &Result{
		Validation:    true,
		Configuration: cfg,
		Objective:     eval.Cost,
		OpeningCost:   eval.OpeningCost,
		PerScenario:   append([]float64(nil), eval.PerScenario...),
		ScenarioNames: p.scenarios.Names(),
		Elapsed:       time.Since(start),
	}
	p.logger().Info("validation finished", "config", cfg.Key(), "objective", res.Objective, "opening_cost", res.OpeningCost)
	return res, nil
}
