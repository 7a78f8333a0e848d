package lrp

import (
	"context"
	"fmt"
	"time"
)

// Point is a planar customer location.
type Point struct{ X, Y float64 }

// RoutingModel is the per-scenario routing solver the engine delegates to.
// Implementations are stateful and need not be safe for concurrent use: the
// engine never drives one model from two goroutines at once.
type RoutingModel interface {
	// SetDepots installs sites as the active depot network.
	SetDepots(sites []DepotSite)
	// ConstructStartingSolution builds an initial feasible solution and returns its cost.
	ConstructStartingSolution() (float64, error)
	// CheckSolution validates the internal consistency of the current solution.
	CheckSolution() error
	// OptimizeRoutes runs bounded local search on the current solution.
	OptimizeRoutes(ctx context.Context, maxIterations int, timeLimit time.Duration) error
	// SolutionCost reports the total cost of the current solution.
	SolutionCost() float64
	TotalDemand() int
	VehicleCapacity() int
	Customers() []Point
}

// Scenario is one customer-demand instance.
type Scenario struct {
	Name  string
	Model RoutingModel
}

// ScenarioSet holds scenarios and their demands in load order.
type ScenarioSet struct {
	scenarios []*Scenario
	demands   []int
}

// NewScenarioSet computes every scenario's demand once. A positive override
// replaces the computed demand of every scenario.
func NewScenarioSet(scenarios []*Scenario, override *int) (*ScenarioSet, error) {
	if len(scenarios) == 0 {
		return nil, ErrNoScenarios
	}
	if override != nil && *override <= 0 {
		return nil, fmt.Errorf("minimum capacity override must be > 0 (got %d)", *override)
	}
	set := &ScenarioSet{
		scenarios: append([]*Scenario(nil), scenarios...),
		demands:   make([]int, len(scenarios)),
	}
	for i, sc := range scenarios {
		if sc == nil || sc.Model == nil {
			return nil, fmt.Errorf("scenario %d has no routing model", i)
		}
		if override != nil {
			set.demands[i] = *override
		} else {
			set.demands[i] = sc.Model.TotalDemand()
		}
	}
	return set, nil
}

func (s *ScenarioSet) Len() int { return len(s.scenarios) }

func (s *ScenarioSet) Scenario(i int) *Scenario { return s.scenarios[i] }

func (s *ScenarioSet) Demand(i int) int { return s.demands[i] }

func (s *ScenarioSet) Demands() []int { return append([]int(nil), s.demands...) }

func (s *ScenarioSet) Names() []string {
	out := make([]string, len(s.scenarios))
	for i, sc := range s.scenarios {
		out[i] = sc.Name
	}
	return out
}
