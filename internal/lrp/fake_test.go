package lrp

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// fakeModel is a deterministic routing model: every customer is served by an
// out-and-back trip from its nearest open depot, and each optimize call trims
// the cost by 10%.
type fakeModel struct {
	customers  []Point
	demand     int
	vehicleCap int

	depots []DepotSite
	cost   float64
	built  bool

	failOn   map[int]bool // construct fails when one of these depots is open
	panicOpt bool
	nanCost  bool

	constructs int
	optimizes  int
}

func (m *fakeModel) SetDepots(sites []DepotSite) {
	m.depots = append([]DepotSite(nil), sites...)
	m.built = false
	m.cost = 0
}

func (m *fakeModel) ConstructStartingSolution() (float64, error) {
	m.constructs++
	if len(m.depots) == 0 {
		return 0, errors.New("no depots")
	}
	for _, d := range m.depots {
		if m.failOn[d.ID] {
			return 0, errBoom
		}
	}
	total := 0.0
	for _, c := range m.customers {
		best := math.MaxFloat64
		for _, d := range m.depots {
			best = math.Min(best, math.Hypot(c.X-d.X, c.Y-d.Y))
		}
		total += 2 * best
	}
	m.cost = total
	m.built = true
	return total, nil
}

func (m *fakeModel) CheckSolution() error {
	if !m.built {
		return errors.New("no solution")
	}
	return nil
}

func (m *fakeModel) OptimizeRoutes(ctx context.Context, maxIterations int, _ time.Duration) error {
	if m.panicOpt {
		panic("optimizer exploded")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.optimizes++
	if maxIterations > 0 {
		m.cost *= 0.9
	}
	return nil
}

func (m *fakeModel) SolutionCost() float64 {
	if m.nanCost {
		return math.NaN()
	}
	return m.cost
}

func (m *fakeModel) TotalDemand() int     { return m.demand }
func (m *fakeModel) VehicleCapacity() int { return m.vehicleCap }
func (m *fakeModel) Customers() []Point   { return append([]Point(nil), m.customers...) }

// exampleCatalog has capacities 50/40/30 and opening costs 10/8/6.
func exampleCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := NewCatalog([]DepotSite{
		{X: 0, Y: 0, Capacity: 50, OpeningCost: 10},
		{X: 10, Y: 0, Capacity: 40, OpeningCost: 8},
		{X: 0, Y: 10, Capacity: 30, OpeningCost: 6},
	})
	require.NoError(t, err)
	return cat
}

func newFake(demand int, customers ...Point) *fakeModel {
	if len(customers) == 0 {
		customers = []Point{{X: 1, Y: 1}, {X: 9, Y: 1}, {X: 1, Y: 9}, {X: 5, Y: 5}}
	}
	return &fakeModel{customers: customers, demand: demand, vehicleCap: 20}
}

func newSet(t *testing.T, models ...*fakeModel) *ScenarioSet {
	t.Helper()
	scs := make([]*Scenario, len(models))
	for i, m := range models {
		scs[i] = &Scenario{Name: string(rune('a' + i)), Model: m}
	}
	set, err := NewScenarioSet(scs, nil)
	require.NoError(t, err)
	return set
}
