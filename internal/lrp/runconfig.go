package lrp

import (
	"fmt"
	"strings"
	"time"
)

// SortOrder is the direction capacities and opening costs are sorted in by
// the bound estimator. Descending is the default.
type SortOrder int

const (
	Descending SortOrder = iota
	Ascending
)

func (o SortOrder) String() string {
	if o == Ascending {
		return "ascending"
	}
	return "descending"
}

func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc", "descending":
		return Descending, nil
	case "asc", "ascending":
		return Ascending, nil
	default:
		return Descending, fmt.Errorf("unknown sort order %q (want ascending or descending)", s)
	}
}

const (
	DefaultRuntimeBudget         = 60000
	DefaultFinalIterations       = 3000
	DefaultPerIterationTimeLimit = 30.0 // milliseconds
	DefaultSeed                  = 1
)

// DefaultStages are the stage caps of a solve run.
var DefaultStages = []int{100, 10, 3, 1}

// RunConfig is the immutable option set of one run. It is built once and
// passed by value.
type RunConfig struct {
	ValidationMode        bool
	MinCapacityOverride   *int
	PerIterationTimeLimit float64 // milliseconds per local-search iteration
	Stages                []int
	RuntimeBudget         int
	FinalIterations       int
	CapacityOrder         SortOrder
	Seed                  int64
}

func DefaultRunConfig() RunConfig {
	return RunConfig{
		PerIterationTimeLimit: DefaultPerIterationTimeLimit,
		Stages:                append([]int(nil), DefaultStages...),
		RuntimeBudget:         DefaultRuntimeBudget,
		FinalIterations:       DefaultFinalIterations,
		CapacityOrder:         Descending,
		Seed:                  DefaultSeed,
	}
}

func (c RunConfig) Validate() error {
	if c.PerIterationTimeLimit <= 0 {
		return fmt.Errorf("per-iteration time limit must be > 0 (got %f)", c.PerIterationTimeLimit)
	}
	if c.MinCapacityOverride != nil && *c.MinCapacityOverride <= 0 {
		return fmt.Errorf("minimum capacity override must be > 0 (got %d)", *c.MinCapacityOverride)
	}
	if c.FinalIterations <= 0 {
		return fmt.Errorf("final iterations must be > 0 (got %d)", c.FinalIterations)
	}
	if c.ValidationMode {
		return nil
	}
	if len(c.Stages) == 0 {
		return fmt.Errorf("at least one stage cap is required")
	}
	for i, k := range c.Stages {
		if k <= 0 {
			return fmt.Errorf("stage %d: cap must be > 0 (got %d)", i, k)
		}
		if i > 0 && k > c.Stages[i-1] {
			return fmt.Errorf("stage %d: cap %d exceeds previous cap %d", i, k, c.Stages[i-1])
		}
	}
	if last := c.Stages[len(c.Stages)-1]; last != 1 {
		return fmt.Errorf("last stage cap must be 1 (got %d)", last)
	}
	if c.RuntimeBudget <= 0 {
		return fmt.Errorf("runtime budget must be > 0 (got %d)", c.RuntimeBudget)
	}
	return nil
}

// StageCaps returns a copy of the stage caps.
func (c RunConfig) StageCaps() []int { return append([]int(nil), c.Stages...) }

// IterationTimeLimit converts the per-iteration limit to a duration.
func (c RunConfig) IterationTimeLimit() time.Duration {
	return time.Duration(c.PerIterationTimeLimit * float64(time.Millisecond))
}

// DemandOverride returns the minimum capacity override, if any.
func (c RunConfig) DemandOverride() (int, bool) {
	if c.MinCapacityOverride == nil {
		return 0, false
	}
	return *c.MinCapacityOverride, true
}

// StageBudget is the local-search iteration count for one configuration in a
// stage with the given cap. Wide stages get shallow budgets and the final
// stage (cap 1) always gets finalIterations.
func StageBudget(runtimeBudget, stageCount, stageCap, finalIterations int) int {
	if stageCap == 1 {
		return finalIterations
	}
	divisor := stageCount - 1
	if divisor < 1 {
		divisor = 1
	}
	timeLimit := runtimeBudget / (100 * divisor * stageCap)
	budget := timeLimit * 10
	if budget < 1 {
		budget = 1
	}
	return budget
}
