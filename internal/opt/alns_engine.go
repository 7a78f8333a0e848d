package opt

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"
)

type Metrics struct {
	RemovalSelects        [2]int // random, shaw
	InsertSelects         [2]int // greedy, regret2
	Iterations            int
	Improvements          int
	AcceptedWorse         int
	Rejected              int
	StartCost             float64
	BestCost              float64
	Elapsed               time.Duration
	FinalRemovalWeights   [2]float64
	FinalInsertionWeights [2]float64
}

// OptimizeRoutes runs an ALNS-like search with random/Shaw removal, greedy and
// regret-2 reinsertion, 2-opt repair and simulated-annealing acceptance. It
// stops after maxIterations, once timeLimit has elapsed (0 = no time cap) or
// when ctx is done. The best solution found replaces the current one.
func (m *Model) OptimizeRoutes(ctx context.Context, maxIterations int, timeLimit time.Duration) (Metrics, error) {
	if m.sol == nil {
		return Metrics{}, ErrNoSolution
	}
	start := time.Now()
	seed := m.params.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	curr := m.sol.clone()
	best := curr.clone()
	remW := []float64{1, 1} // random, shaw
	insW := []float64{1, 1} // greedy, regret2
	if len(m.params.InitialRemovalWeights) == 2 {
		remW = []float64{m.params.InitialRemovalWeights[0], m.params.InitialRemovalWeights[1]}
	}
	if len(m.params.InitialInsertionWeights) == 2 {
		insW = []float64{m.params.InitialInsertionWeights[0], m.params.InitialInsertionWeights[1]}
	}
	temp := 0.01 * curr.Cost
	if m.params.InitialTemp > 0 {
		temp = m.params.InitialTemp
	}
	if temp <= 0 {
		temp = 1
	}
	cool := 0.995
	if m.params.Cooling > 0 && m.params.Cooling < 1 {
		cool = m.params.Cooling
	}
	var deadline time.Time
	if timeLimit > 0 {
		deadline = start.Add(timeLimit)
	}

	mt := Metrics{StartCost: curr.Cost, BestCost: best.Cost}
	n := len(m.customers)
	var runErr error
	for n > 0 && mt.Iterations < maxIterations {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			break
		}
		mt.Iterations++
		k := 1 + rng.Intn(minInt(n, 3+n/10))
		op := selectOp(remW, rng)
		mt.RemovalSelects[op]++
		ip := selectOp(insW, rng)
		mt.InsertSelects[ip]++

		cand := curr.clone()
		var removed []int
		switch op {
		case 0:
			removed = pickRandomCustomers(cand, k, rng)
		case 1:
			removed = m.shawRemoval(cand, k, rng)
		}
		touched := removeCustomers(&cand, removed)
		var ok bool
		switch ip {
		case 0:
			ok = m.greedyInsert(&cand, removed, touched)
		case 1:
			ok = m.regretInsert(&cand, removed, touched)
		}
		if !ok {
			// slight penalty for operators that produced no feasible repair
			remW[op] = math.Max(0.01, remW[op]*0.999)
			insW[ip] = math.Max(0.01, insW[ip]*0.999)
			mt.Rejected++
			temp *= cool
			continue
		}
		for ri := range touched {
			r := &cand.Routes[ri]
			r.Stops = ImproveOrder2Opt(m.depots[r.Depot].Point, m.points, r.Stops, 1)
		}
		cand = dropEmptyRoutes(cand)
		cand.Cost = m.cost(cand)

		// acceptance criterion (simulated annealing)
		delta := cand.Cost - curr.Cost
		if delta < 0 || rng.Float64() < math.Exp(-delta/(temp+1e-9)) {
			curr = cand
			if curr.Cost+1e-9 < best.Cost {
				best = curr.clone()
				remW[op] += 0.1
				insW[ip] += 0.1
				mt.Improvements++
				mt.BestCost = best.Cost
			} else {
				remW[op] += 0.01
				insW[ip] += 0.01
				mt.AcceptedWorse++
			}
		} else {
			remW[op] = math.Max(0.01, remW[op]*0.999)
			insW[ip] = math.Max(0.01, insW[ip]*0.999)
			mt.Rejected++
		}
		temp *= cool
	}

	m.sol = &best
	mt.BestCost = best.Cost
	mt.Elapsed = time.Since(start)
	mt.FinalRemovalWeights = [2]float64{remW[0], remW[1]}
	mt.FinalInsertionWeights = [2]float64{insW[0], insW[1]}
	m.metrics = mt
	return mt, runErr
}

func pickRandomCustomers(sol Solution, k int, rng *rand.Rand) []int {
	var all []int
	for _, r := range sol.Routes {
		all = append(all, r.Stops...)
	}
	removed := []int{}
	for i := 0; i < k && len(all) > 0; i++ {
		j := rng.Intn(len(all))
		removed = append(removed, all[j])
		all = append(all[:j], all[j+1:]...)
	}
	return removed
}

// shawRemoval selects k customers related by distance and demand.
func (m *Model) shawRemoval(sol Solution, k int, rng *rand.Rand) []int {
	var assigned []int
	for _, r := range sol.Routes {
		assigned = append(assigned, r.Stops...)
	}
	if len(assigned) == 0 {
		return nil
	}
	seedIdx := assigned[rng.Intn(len(assigned))]
	type pair struct {
		idx   int
		score float64
	}
	rel := make([]pair, 0, len(assigned))
	sc := m.customers[seedIdx]
	for _, idx := range assigned {
		if idx == seedIdx {
			continue
		}
		c := m.customers[idx]
		score := dist(sc.Point, c.Point) + math.Abs(float64(sc.Demand-c.Demand))
		rel = append(rel, pair{idx: idx, score: score})
	}
	sort.Slice(rel, func(i, j int) bool {
		if rel[i].score != rel[j].score {
			return rel[i].score < rel[j].score
		}
		return rel[i].idx < rel[j].idx
	})
	removed := []int{seedIdx}
	for i := 0; i < len(rel) && len(removed) < k; i++ {
		removed = append(removed, rel[i].idx)
	}
	return removed
}

// removeCustomers strips the given customers from sol and reports the indices
// of the routes it modified. Route indices are preserved.
func removeCustomers(sol *Solution, removed []int) map[int]bool {
	touched := map[int]bool{}
	if len(removed) == 0 {
		return touched
	}
	rm := make(map[int]bool, len(removed))
	for _, i := range removed {
		rm[i] = true
	}
	for ri := range sol.Routes {
		kept := sol.Routes[ri].Stops[:0]
		for _, idx := range sol.Routes[ri].Stops {
			if rm[idx] {
				touched[ri] = true
				continue
			}
			kept = append(kept, idx)
		}
		sol.Routes[ri].Stops = kept
	}
	return touched
}

func dropEmptyRoutes(sol Solution) Solution {
	out := Solution{Routes: make([]Route, 0, len(sol.Routes)), Cost: sol.Cost}
	for _, r := range sol.Routes {
		if len(r.Stops) > 0 {
			out.Routes = append(out.Routes, r)
		}
	}
	return out
}

// insertion describes where a customer goes; route -1 opens a new route at depot.
type insertion struct {
	route int
	pos   int
	depot int
	delta float64
}

type loads struct {
	route []int
	depot []int
}

func (m *Model) loadsOf(sol Solution) loads {
	l := loads{route: make([]int, len(sol.Routes)), depot: make([]int, len(m.depots))}
	for ri, r := range sol.Routes {
		for _, ci := range r.Stops {
			l.route[ri] += m.customers[ci].Demand
		}
		l.depot[r.Depot] += l.route[ri]
	}
	return l
}

// bestInsertions returns the cheapest and second cheapest feasible insertion
// of customer ci. ok is false when no feasible position exists.
func (m *Model) bestInsertions(sol Solution, l loads, ci int) (first, second insertion, ok bool) {
	first = insertion{delta: math.MaxFloat64}
	second = insertion{delta: math.MaxFloat64}
	c := m.customers[ci]
	consider := func(ins insertion) {
		if ins.delta < first.delta {
			second = first
			first = ins
			ok = true
		} else if ins.delta < second.delta {
			second = ins
		}
	}
	for ri, r := range sol.Routes {
		if l.route[ri]+c.Demand > m.vehicleCapacity || l.depot[r.Depot]+c.Demand > m.depots[r.Depot].Capacity {
			continue
		}
		for pos := 0; pos <= len(r.Stops); pos++ {
			consider(insertion{route: ri, pos: pos, depot: r.Depot, delta: m.deltaInsert(r, ci, pos)})
		}
	}
	for di, d := range m.depots {
		if l.depot[di]+c.Demand > d.Capacity {
			continue
		}
		consider(insertion{route: -1, depot: di, delta: 2*dist(d.Point, c.Point) + m.params.RouteCost})
	}
	return first, second, ok
}

func (m *Model) deltaInsert(r Route, ci, pos int) float64 {
	depot := m.depots[r.Depot].Point
	prev, next := depot, depot
	if pos > 0 {
		prev = m.points[r.Stops[pos-1]]
	}
	if pos < len(r.Stops) {
		next = m.points[r.Stops[pos]]
	}
	p := m.points[ci]
	delta := dist(prev, p) + dist(p, next) - dist(prev, next)
	if len(r.Stops) == 0 {
		delta += m.params.RouteCost
	}
	return delta
}

func (m *Model) apply(sol *Solution, l *loads, ci int, ins insertion, touched map[int]bool) {
	demand := m.customers[ci].Demand
	if ins.route < 0 {
		sol.Routes = append(sol.Routes, Route{Depot: ins.depot, Stops: []int{ci}})
		l.route = append(l.route, demand)
		l.depot[ins.depot] += demand
		touched[len(sol.Routes)-1] = true
		return
	}
	r := &sol.Routes[ins.route]
	r.Stops = append(r.Stops, 0)
	copy(r.Stops[ins.pos+1:], r.Stops[ins.pos:])
	r.Stops[ins.pos] = ci
	l.route[ins.route] += demand
	l.depot[ins.depot] += demand
	touched[ins.route] = true
}

// greedyInsert repeatedly places the customer with the cheapest feasible insertion.
func (m *Model) greedyInsert(sol *Solution, removed []int, touched map[int]bool) bool {
	l := m.loadsOf(*sol)
	nodes := append([]int(nil), removed...)
	for len(nodes) > 0 {
		bestNode := -1
		var bestIns insertion
		for ni, ci := range nodes {
			ins, _, ok := m.bestInsertions(*sol, l, ci)
			if !ok {
				return false
			}
			if bestNode == -1 || ins.delta < bestIns.delta {
				bestNode, bestIns = ni, ins
			}
		}
		m.apply(sol, &l, nodes[bestNode], bestIns, touched)
		nodes = append(nodes[:bestNode], nodes[bestNode+1:]...)
	}
	return true
}

// regretInsert places first the customer that loses most by missing its best position.
func (m *Model) regretInsert(sol *Solution, removed []int, touched map[int]bool) bool {
	l := m.loadsOf(*sol)
	nodes := append([]int(nil), removed...)
	for len(nodes) > 0 {
		bestNode := -1
		bestRegret := -1.0
		var bestIns insertion
		for ni, ci := range nodes {
			first, second, ok := m.bestInsertions(*sol, l, ci)
			if !ok {
				return false
			}
			regret := math.MaxFloat64
			if second.delta < math.MaxFloat64 {
				regret = second.delta - first.delta
			}
			if bestNode == -1 || regret > bestRegret || (regret == bestRegret && first.delta < bestIns.delta) {
				bestNode, bestRegret, bestIns = ni, regret, first
			}
		}
		m.apply(sol, &l, nodes[bestNode], bestIns, touched)
		nodes = append(nodes[:bestNode], nodes[bestNode+1:]...)
	}
	return true
}

func selectOp(weights []float64, rng *rand.Rand) int {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return 0
	}
	r := rng.Float64() * sum
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r <= acc {
			return i
		}
	}
	return len(weights) - 1
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
