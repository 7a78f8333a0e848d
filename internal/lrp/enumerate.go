package lrp

import (
	"context"
	"errors"
	"log/slog"
)

// Combinations walks every k-combination of {0..n-1} in lexicographic order.
//
//	c := NewCombinations(4, 2)
//	for c.Next() {
//		use(c.Indices())
//	}
type Combinations struct {
	n, k    int
	idx     []int
	started bool
	done    bool
}

func NewCombinations(n, k int) *Combinations {
	return &Combinations{n: n, k: k, done: k <= 0 || k > n}
}

// Next advances to the next combination and reports whether one exists. The
// first call yields {0, 1, ..., k-1}.
func (c *Combinations) Next() bool {
	if c.done {
		return false
	}
	if !c.started {
		c.started = true
		c.idx = make([]int, c.k)
		for i := range c.idx {
			c.idx[i] = i
		}
		return true
	}
	// Rightmost position not yet at its maximum n-k+i.
	i := c.k - 1
	for i >= 0 && c.idx[i] == c.n-c.k+i {
		i--
	}
	if i < 0 {
		c.done = true
		return false
	}
	c.idx[i]++
	for j := i + 1; j < c.k; j++ {
		c.idx[j] = c.idx[j-1] + 1
	}
	return true
}

// Indices returns a copy of the current combination.
func (c *Combinations) Indices() []int { return append([]int(nil), c.idx...) }

// Binomial returns C(n, k), or 0 when k is out of range.
func Binomial(n, k int) int {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}
	r := 1
	for i := 1; i <= k; i++ {
		r = r * (n - k + i) / i
	}
	return r
}

// SizeStats counts the configurations of one subset size.
type SizeStats struct {
	Size       int
	Generated  int
	Infeasible int
	Failed     int // estimate could not be computed
	Kept       int
}

// Enumeration summarizes one enumeration pass.
type Enumeration struct {
	Bound int
	Sizes []SizeStats
}

func (e Enumeration) Generated() int {
	n := 0
	for _, s := range e.Sizes {
		n += s.Generated
	}
	return n
}

func (e Enumeration) Kept() int {
	n := 0
	for _, s := range e.Sizes {
		n += s.Kept
	}
	return n
}

// Enumerator generates every feasible depot subset up to a size bound.
type Enumerator struct {
	Catalog   *Catalog
	Evaluator *Evaluator
	Logger    *slog.Logger
}

// Enumerate builds the initial candidate pool. Infeasible subsets are dropped
// at birth; the rest receive a construction-only cost estimate and the pool is
// sorted by it. Configurations whose estimate fails stay in the pool marked
// failed and are removed by the first truncation.
func (e *Enumerator) Enumerate(ctx context.Context, bound int) (*CandidatePool, Enumeration, error) {
	log := e.Logger
	if log == nil {
		log = slog.Default()
	}
	bound = min(bound, e.Catalog.Len())
	stats := Enumeration{Bound: bound}
	var configs []*DepotConfiguration
	seq := 0

	for k := 1; k <= bound; k++ {
		st := SizeStats{Size: k}
		comb := NewCombinations(e.Catalog.Len(), k)
		for comb.Next() {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
			idx := comb.Indices()
			sites := make([]DepotSite, len(idx))
			for i, id := range idx {
				sites[i] = e.Catalog.Site(id)
			}
			cfg, err := NewDepotConfiguration(seq, sites...)
			if err != nil {
				return nil, stats, err
			}
			seq++
			st.Generated++

			if err := e.Evaluator.Feasible(cfg); err != nil {
				st.Infeasible++
				continue
			}
			if _, err := e.Evaluator.Evaluate(ctx, cfg, 0); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, stats, ctxErr
				}
				if !errors.Is(err, ErrSolverFailure) {
					return nil, stats, err
				}
				st.Failed++
			}
			configs = append(configs, cfg)
			st.Kept++
		}
		log.Debug("enumerated size class", "size", k, "generated", st.Generated, "infeasible", st.Infeasible, "kept", st.Kept)
		stats.Sizes = append(stats.Sizes, st)
	}
	return NewCandidatePool(configs), stats, nil
}
