package lrp

import "sort"

// CandidatePool is the pipeline's working set of configurations. It only
// shrinks, and the pipeline is its single writer.
type CandidatePool struct {
	configs []*DepotConfiguration
}

func NewCandidatePool(configs []*DepotConfiguration) *CandidatePool {
	p := &CandidatePool{configs: append([]*DepotConfiguration(nil), configs...)}
	p.Sort()
	return p
}

func (p *CandidatePool) Len() int { return len(p.configs) }

// Configurations returns the pool in its current order.
func (p *CandidatePool) Configurations() []*DepotConfiguration {
	return append([]*DepotConfiguration(nil), p.configs...)
}

// Sort orders the pool ascending by cost with ties broken by enumeration order.
// Configurations without a valid cost sink to the end.
func (p *CandidatePool) Sort() {
	sort.SliceStable(p.configs, func(i, j int) bool { return less(p.configs[i], p.configs[j]) })
}

// Best returns the cheapest valid configuration, or nil.
func (p *CandidatePool) Best() *DepotConfiguration {
	p.Sort()
	if len(p.configs) == 0 || !p.configs[0].Valid() {
		return nil
	}
	return p.configs[0]
}

// ValidCount reports how many configurations carry a comparable cost.
func (p *CandidatePool) ValidCount() int {
	n := 0
	for _, c := range p.configs {
		if c.Valid() {
			n++
		}
	}
	return n
}

// Truncate drops every invalid configuration and keeps at most the k
// cheapest. It returns the number of configurations discarded.
func (p *CandidatePool) Truncate(k int) int {
	before := len(p.configs)
	p.Sort()
	kept := p.configs[:0]
	for _, c := range p.configs {
		if c.Valid() {
			kept = append(kept, c)
		}
	}
	if k >= 0 && len(kept) > k {
		kept = kept[:k]
	}
	for i := len(kept); i < before; i++ {
		p.configs[i] = nil
	}
	p.configs = kept
	return before - len(kept)
}
