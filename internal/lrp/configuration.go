package lrp

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Status is the evaluation state of a DepotConfiguration.
type Status int

const (
	StatusPending    Status = iota // built, not yet scored
	StatusEstimated                // construction-only cost
	StatusEvaluated                // cost after local search
	StatusInfeasible               // capacity shortfall
	StatusFailed                   // at least one scenario solve failed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusEstimated:
		return "estimated"
	case StatusEvaluated:
		return "evaluated"
	case StatusInfeasible:
		return "infeasible"
	case StatusFailed:
		return "failed"
	default:
		return "status(" + strconv.Itoa(int(s)) + ")"
	}
}

// ScenarioOutcome is the result of one scenario worker.
type ScenarioOutcome struct {
	Scenario int
	Cost     float64
	Duration time.Duration
	Err      error
}

// Evaluation records the last scoring of a configuration.
type Evaluation struct {
	Budget      int
	OpeningCost float64
	Outcomes    []ScenarioOutcome // load order
	PerScenario []float64         // routing cost per scenario, load order
	RoutingSum  float64
	RoutingMean float64
	Cost        float64 // OpeningCost + RoutingMean
	Err         error
}

// Failed reports whether any scenario solve failed.
func (e Evaluation) Failed() bool { return e.Err != nil }

// DepotConfiguration is a frozen set of open depot sites plus its mutable
// evaluation state.
type DepotConfiguration struct {
	seq         int
	sites       []DepotSite
	capacity    int
	openingCost float64

	status Status
	cost   float64
	eval   Evaluation
}

// NewDepotConfiguration builds a configuration from sites. seq is the
// enumeration order used to break cost ties.
func NewDepotConfiguration(seq int, sites ...DepotSite) (*DepotConfiguration, error) {
	if len(sites) == 0 {
		return nil, fmt.Errorf("configuration needs at least one depot")
	}
	sorted := append([]DepotSite(nil), sites...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	cfg := &DepotConfiguration{seq: seq, sites: sorted}
	for i, s := range sorted {
		if i > 0 && sorted[i-1].ID == s.ID {
			return nil, fmt.Errorf("duplicate depot id %d", s.ID)
		}
		cfg.capacity += s.Capacity
		cfg.openingCost += s.OpeningCost
	}
	return cfg, nil
}

func (c *DepotConfiguration) Seq() int { return c.seq }

func (c *DepotConfiguration) Sites() []DepotSite { return append([]DepotSite(nil), c.sites...) }

// IDs returns the member site ids in ascending order.
func (c *DepotConfiguration) IDs() []int {
	out := make([]int, len(c.sites))
	for i, s := range c.sites {
		out[i] = s.ID
	}
	return out
}

func (c *DepotConfiguration) Size() int { return len(c.sites) }

func (c *DepotConfiguration) Capacity() int { return c.capacity }

func (c *DepotConfiguration) OpeningCost() float64 { return c.openingCost }

// Key is a stable textual id such as "0-2-5".
func (c *DepotConfiguration) Key() string {
	parts := make([]string, len(c.sites))
	for i, s := range c.sites {
		parts[i] = strconv.Itoa(s.ID)
	}
	return strings.Join(parts, "-")
}

func (c *DepotConfiguration) HasSufficientCapacity(demand int) bool {
	return c.capacity >= demand
}

func (c *DepotConfiguration) Status() Status { return c.status }

// Cost returns the latest cost and whether it is usable for comparison.
func (c *DepotConfiguration) Cost() (float64, bool) {
	return c.cost, c.Valid()
}

// Valid reports whether the configuration carries a comparable cost.
func (c *DepotConfiguration) Valid() bool {
	return c.status == StatusEstimated || c.status == StatusEvaluated
}

func (c *DepotConfiguration) Evaluation() Evaluation { return c.eval }

// record overwrites the evaluation state; re-evaluation replaces, never accumulates.
func (c *DepotConfiguration) record(eval Evaluation, status Status) {
	c.eval = eval
	c.status = status
	if status == StatusEstimated || status == StatusEvaluated {
		c.cost = eval.Cost
	} else {
		c.cost = 0
	}
}

func (c *DepotConfiguration) markInfeasible() {
	c.record(Evaluation{OpeningCost: c.openingCost, Err: ErrInfeasibleConfiguration}, StatusInfeasible)
}

// less orders valid configurations before invalid ones, then by cost, then by
// enumeration order.
func less(a, b *DepotConfiguration) bool {
	if a.Valid() != b.Valid() {
		return a.Valid()
	}
	if a.Valid() && a.cost != b.cost {
		return a.cost < b.cost
	}
	return a.seq < b.seq
}

func (c *DepotConfiguration) String() string {
	if c.Valid() {
		return fmt.Sprintf("[%s] cost=%.3f (%s)", c.Key(), c.cost, c.status)
	}
	return fmt.Sprintf("[%s] (%s)", c.Key(), c.status)
}
