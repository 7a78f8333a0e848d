package lrp

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// BoundEstimator computes a heuristic upper bound on the number of open
// depots worth considering. It combines a greedy capacity bound with a
// continuous-approximation estimate of the routing savings of extra depots.
type BoundEstimator struct {
	Catalog *Catalog
	// Order is the direction capacities and opening costs are sorted in
	// before the greedy and marginal-value loops.
	Order SortOrder
}

// UpperBound returns the maximum scenario bound over the whole set. It drives
// every scenario model, so it must not run concurrently with evaluation.
func (b *BoundEstimator) UpperBound(set *ScenarioSet) (int, error) {
	bound := 0
	for i := 0; i < set.Len(); i++ {
		sb, err := b.ScenarioBound(set.Scenario(i), set.Demand(i))
		if err != nil {
			return 0, err
		}
		bound = max(bound, sb)
	}
	return bound, nil
}

// ScenarioBound estimates the open-depot bound for one scenario with the given demand.
func (b *BoundEstimator) ScenarioBound(sc *Scenario, demand int) (int, error) {
	n := b.Catalog.Len()
	if n == 0 {
		return 0, ErrEmptyCatalog
	}
	minOpen := MinOpenDepots(b.Catalog.Capacities(), demand, b.Order)

	model := sc.Model
	central := CentralDepot(b.Catalog.Sites(), model.Customers())
	central.Capacity = math.MaxInt
	model.SetDepots([]DepotSite{central})
	r1, err := model.ConstructStartingSolution()
	if err != nil {
		return 0, fmt.Errorf("reference solution for scenario %q: %w: %w", sc.Name, ErrSolverFailure, err)
	}

	vc := model.VehicleCapacity()
	if vc <= 0 {
		return 0, fmt.Errorf("scenario %q: vehicle capacity must be > 0 (got %d): %w", sc.Name, vc, ErrInputMalformed)
	}
	routes := int(math.Ceil(float64(demand) / float64(vc)))
	costs := sortFloats(b.Catalog.OpeningCosts(), b.Order)
	m := MarginalDepots(r1, routes, costs)

	return min(max(m, minOpen), n), nil
}

// MinOpenDepots accumulates capacities in the given order until they cover
// demand and returns how many were consumed.
func MinOpenDepots(capacities []int, demand int, order SortOrder) int {
	sorted := sortInts(capacities, order)
	sum, n := 0, 0
	for n < len(sorted) && sum < demand {
		sum += sorted[n]
		n++
	}
	return n
}

// CentralDepot returns the site with the smallest total Euclidean distance to
// all customers. The first such site wins ties.
func CentralDepot(sites []DepotSite, customers []Point) DepotSite {
	best := sites[0]
	bestSum := math.MaxFloat64
	d := make([]float64, len(customers))
	for _, s := range sites {
		for i, c := range customers {
			d[i] = math.Hypot(c.X-s.X, c.Y-s.Y)
		}
		if sum := floats.Sum(d); sum < bestSum {
			best, bestSum = s, sum
		}
	}
	return best
}

// Reduction estimates the fractional routing-cost reduction of serving a
// region from m depots instead of one, for a fleet of the given route count.
func Reduction(m, routes int) float64 {
	return math.Pow(math.Log(float64(m)), 0.58) * 0.27 * math.Pow(float64(routes)/10.0, 1.0/3)
}

// MarginalDepots grows the depot count from 2 while the estimated saving of
// the next depot, r1*(Reduction(m)-Reduction(m-1)), exceeds openingCosts[m-1].
// openingCosts must already be sorted; the result never exceeds len(openingCosts)
// unless the catalog has fewer than two sites.
func MarginalDepots(r1 float64, routes int, openingCosts []float64) int {
	n := len(openingCosts)
	m := 2
	gain := r1 * (Reduction(m, routes) - Reduction(m-1, routes))
	for m < n && gain > openingCosts[m-1] {
		m++
		gain = r1 * (Reduction(m, routes) - Reduction(m-1, routes))
	}
	return m
}

func sortInts(vals []int, order SortOrder) []int {
	out := append([]int(nil), vals...)
	if order == Ascending {
		sort.Ints(out)
	} else {
		sort.Sort(sort.Reverse(sort.IntSlice(out)))
	}
	return out
}

func sortFloats(vals []float64, order SortOrder) []float64 {
	out := append([]float64(nil), vals...)
	if order == Ascending {
		sort.Float64s(out)
	} else {
		sort.Sort(sort.Reverse(sort.Float64Slice(out)))
	}
	return out
}
