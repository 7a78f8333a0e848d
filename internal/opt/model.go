// Package opt implements the multi-depot vehicle routing model that scores a
// single customer scenario against a set of open depots.
//
// A Model is stateful: SetDepots installs the active network, the construction
// heuristic builds a first solution and OptimizeRoutes improves it in place.
// A Model is not safe for concurrent use.
package opt

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrNoDepots        = errors.New("no active depots")
	ErrNoSolution      = errors.New("no solution constructed")
	ErrVehicleCapacity = errors.New("customer demand exceeds vehicle capacity")
	ErrDepotCapacity   = errors.New("depot capacity exhausted")
	ErrInconsistent    = errors.New("inconsistent solution")
)

// Point is a planar location.
type Point struct{ X, Y float64 }

type Customer struct {
	Point
	Demand int
}

type Depot struct {
	Point
	Capacity int
}

// Route is a closed tour that starts and ends at Depot.
type Route struct {
	Depot int   // index into the active depots
	Stops []int // indices into the model customers
}

type Solution struct {
	Routes []Route
	Cost   float64
}

func (s Solution) clone() Solution {
	out := Solution{Routes: make([]Route, len(s.Routes)), Cost: s.Cost}
	for i, r := range s.Routes {
		out.Routes[i] = Route{Depot: r.Depot, Stops: append([]int(nil), r.Stops...)}
	}
	return out
}

// Params tunes cost and search behaviour.
type Params struct {
	RouteCost               float64   // fixed cost per non-empty route
	Seed                    int64     // 0 seeds from the clock
	InitialTemp             float64   // initial temperature for SA, 0 derives it from the start cost
	Cooling                 float64   // cooling factor per iteration
	InitialRemovalWeights   []float64 // [random, shaw]
	InitialInsertionWeights []float64 // [greedy, regret2]
}

type Model struct {
	customers       []Customer
	points          []Point
	vehicleCapacity int
	params          Params

	depots  []Depot
	sol     *Solution
	metrics Metrics
}

func NewModel(customers []Customer, vehicleCapacity int, params Params) (*Model, error) {
	if vehicleCapacity <= 0 {
		return nil, fmt.Errorf("vehicle capacity must be > 0 (got %d)", vehicleCapacity)
	}
	if params.RouteCost < 0 {
		return nil, fmt.Errorf("route cost must be >= 0 (got %f)", params.RouteCost)
	}
	points := make([]Point, len(customers))
	for i, c := range customers {
		if c.Demand < 0 {
			return nil, fmt.Errorf("customer %d: demand must be >= 0 (got %d)", i, c.Demand)
		}
		points[i] = c.Point
	}
	return &Model{
		customers:       append([]Customer(nil), customers...),
		points:          points,
		vehicleCapacity: vehicleCapacity,
		params:          params,
	}, nil
}

// SetDepots replaces the active depot network and drops the current solution.
func (m *Model) SetDepots(depots []Depot) {
	m.depots = append([]Depot(nil), depots...)
	m.sol = nil
	m.metrics = Metrics{}
}

func (m *Model) Depots() []Depot { return append([]Depot(nil), m.depots...) }

func (m *Model) Customers() []Point { return append([]Point(nil), m.points...) }

func (m *Model) VehicleCapacity() int { return m.vehicleCapacity }

func (m *Model) TotalDemand() int {
	total := 0
	for _, c := range m.customers {
		total += c.Demand
	}
	return total
}

// SolutionCost reports the cost of the current solution, +Inf when none exists.
func (m *Model) SolutionCost() float64 {
	if m.sol == nil {
		return math.Inf(1)
	}
	return m.sol.Cost
}

func (m *Model) Solution() (Solution, bool) {
	if m.sol == nil {
		return Solution{}, false
	}
	return m.sol.clone(), true
}

// LastMetrics returns the statistics of the most recent OptimizeRoutes call.
func (m *Model) LastMetrics() Metrics { return m.metrics }

// ConstructStartingSolution assigns customers to depots by regret order and
// builds capacity-bounded nearest-neighbour routes from every depot. When the
// regret pass leaves a customer without room, a bounded packing search is
// tried before reporting ErrDepotCapacity.
func (m *Model) ConstructStartingSolution() (float64, error) {
	m.sol = nil
	if len(m.depots) == 0 {
		return 0, ErrNoDepots
	}
	for i, c := range m.customers {
		if c.Demand > m.vehicleCapacity {
			return 0, fmt.Errorf("customer %d (demand %d): %w", i, c.Demand, ErrVehicleCapacity)
		}
	}

	assigned, err := m.assignGreedy()
	if err != nil {
		var ok bool
		if assigned, ok = m.assignDecreasing(); !ok {
			return 0, err
		}
	}

	sol := Solution{}
	for di, custs := range assigned {
		sol.Routes = append(sol.Routes, m.nearestNeighbourRoutes(di, custs)...)
	}
	sol.Cost = m.cost(sol)
	m.sol = &sol
	return sol.Cost, nil
}

// assignGreedy hands each customer, in regret order, to the nearest depot
// with capacity left.
func (m *Model) assignGreedy() ([][]int, error) {
	remaining := make([]int, len(m.depots))
	for i, d := range m.depots {
		remaining[i] = d.Capacity
	}
	assigned := make([][]int, len(m.depots))
	for _, ci := range m.assignmentOrder() {
		c := m.customers[ci]
		best, bestDist := -1, math.MaxFloat64
		for di, d := range m.depots {
			if remaining[di] < c.Demand {
				continue
			}
			if dd := dist(c.Point, d.Point); dd < bestDist {
				best, bestDist = di, dd
			}
		}
		if best < 0 {
			return nil, fmt.Errorf("customer %d (demand %d): %w", ci, c.Demand, ErrDepotCapacity)
		}
		remaining[best] -= c.Demand
		assigned[best] = append(assigned[best], ci)
	}
	return assigned, nil
}

// maxPackNodes bounds the search of assignDecreasing.
const maxPackNodes = 200000

// assignDecreasing searches for a packing of customers into depots when the
// greedy pass strands a customer. Customers are placed largest demand first,
// each trying its depots nearest first, backtracking on dead ends. Depots with
// equal remaining capacity are interchangeable for feasibility, so only the
// nearest of them is tried. It gives up after maxPackNodes placements.
func (m *Model) assignDecreasing() ([][]int, bool) {
	total, capacity := 0, 0
	for _, c := range m.customers {
		total += c.Demand
	}
	remaining := make([]int, len(m.depots))
	for i, d := range m.depots {
		remaining[i] = d.Capacity
		capacity += d.Capacity
	}
	if capacity < total {
		return nil, false
	}

	order := make([]int, len(m.customers))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return m.customers[order[a]].Demand > m.customers[order[b]].Demand
	})
	near := make([][]int, len(m.customers))
	for _, ci := range order {
		ds := make([]int, len(m.depots))
		for i := range ds {
			ds[i] = i
		}
		p := m.points[ci]
		sort.SliceStable(ds, func(a, b int) bool {
			return dist(p, m.depots[ds[a]].Point) < dist(p, m.depots[ds[b]].Point)
		})
		near[ci] = ds
	}

	choice := make([]int, len(m.customers))
	nodes := 0
	var place func(k int) bool
	place = func(k int) bool {
		if k == len(order) {
			return true
		}
		ci := order[k]
		demand := m.customers[ci].Demand
		tried := map[int]bool{}
		for _, di := range near[ci] {
			if remaining[di] < demand || tried[remaining[di]] {
				continue
			}
			if nodes++; nodes > maxPackNodes {
				return false
			}
			tried[remaining[di]] = true
			remaining[di] -= demand
			choice[ci] = di
			if place(k + 1) {
				return true
			}
			remaining[di] += demand
		}
		return false
	}
	if !place(0) {
		return nil, false
	}

	assigned := make([][]int, len(m.depots))
	for _, ci := range order {
		assigned[choice[ci]] = append(assigned[choice[ci]], ci)
	}
	return assigned, true
}

// assignmentOrder ranks customers by the regret of missing their nearest depot,
// so customers with one obvious depot claim capacity first.
func (m *Model) assignmentOrder() []int {
	regret := make([]float64, len(m.customers))
	for ci, c := range m.customers {
		d1, d2 := math.MaxFloat64, math.MaxFloat64
		for _, d := range m.depots {
			dd := dist(c.Point, d.Point)
			if dd < d1 {
				d1, d2 = dd, d1
			} else if dd < d2 {
				d2 = dd
			}
		}
		if d2 == math.MaxFloat64 {
			d2 = d1
		}
		regret[ci] = d2 - d1
	}
	order := make([]int, len(m.customers))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if regret[ia] != regret[ib] {
			return regret[ia] > regret[ib]
		}
		return m.customers[ia].Demand > m.customers[ib].Demand
	})
	return order
}

func (m *Model) nearestNeighbourRoutes(di int, custs []int) []Route {
	var routes []Route
	used := make([]bool, len(custs))
	left := len(custs)
	for left > 0 {
		r := Route{Depot: di}
		load := 0
		cur := m.depots[di].Point
		for {
			bestIdx, bestDist := -1, math.MaxFloat64
			for i, ci := range custs {
				if used[i] || load+m.customers[ci].Demand > m.vehicleCapacity {
					continue
				}
				if d := dist(cur, m.points[ci]); d < bestDist {
					bestIdx, bestDist = i, d
				}
			}
			if bestIdx < 0 {
				break
			}
			used[bestIdx] = true
			left--
			ci := custs[bestIdx]
			r.Stops = append(r.Stops, ci)
			load += m.customers[ci].Demand
			cur = m.points[ci]
		}
		routes = append(routes, r)
	}
	return routes
}

// CheckSolution verifies that every customer is served exactly once and that
// no vehicle or depot capacity is exceeded.
func (m *Model) CheckSolution() error {
	if m.sol == nil {
		return ErrNoSolution
	}
	return m.check(*m.sol)
}

func (m *Model) check(s Solution) error {
	seen := make([]int, len(m.customers))
	depotLoad := make([]int, len(m.depots))
	for ri, r := range s.Routes {
		if r.Depot < 0 || r.Depot >= len(m.depots) {
			return fmt.Errorf("route %d: depot %d out of range: %w", ri, r.Depot, ErrInconsistent)
		}
		load := 0
		for _, ci := range r.Stops {
			if ci < 0 || ci >= len(m.customers) {
				return fmt.Errorf("route %d: customer %d out of range: %w", ri, ci, ErrInconsistent)
			}
			seen[ci]++
			load += m.customers[ci].Demand
		}
		if load > m.vehicleCapacity {
			return fmt.Errorf("route %d: load %d exceeds vehicle capacity %d: %w", ri, load, m.vehicleCapacity, ErrInconsistent)
		}
		depotLoad[r.Depot] += load
	}
	for ci, n := range seen {
		if n != 1 {
			return fmt.Errorf("customer %d served %d times: %w", ci, n, ErrInconsistent)
		}
	}
	for di, load := range depotLoad {
		if load > m.depots[di].Capacity {
			return fmt.Errorf("depot %d: load %d exceeds capacity %d: %w", di, load, m.depots[di].Capacity, ErrInconsistent)
		}
	}
	if want := m.cost(s); math.Abs(want-s.Cost) > 1e-6*math.Max(1, want) {
		return fmt.Errorf("recorded cost %f, recomputed %f: %w", s.Cost, want, ErrInconsistent)
	}
	return nil
}

func (m *Model) cost(s Solution) float64 {
	total := 0.0
	for _, r := range s.Routes {
		if len(r.Stops) == 0 {
			continue
		}
		total += tourLength(m.depots[r.Depot].Point, m.points, r.Stops) + m.params.RouteCost
	}
	return total
}
