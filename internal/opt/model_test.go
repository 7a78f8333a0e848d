package opt

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func gridCustomers() []Customer {
	var cs []Customer
	for x := 0; x < 5; x++ {
		for y := 0; y < 4; y++ {
			cs = append(cs, Customer{Point: Point{X: float64(x * 10), Y: float64(y * 10)}, Demand: 3 + (x+y)%4})
		}
	}
	return cs
}

func newTestModel(t *testing.T, seed int64) *Model {
	t.Helper()
	m, err := NewModel(gridCustomers(), 15, Params{Seed: seed})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	m.SetDepots([]Depot{
		{Point: Point{X: 0, Y: 0}, Capacity: 60},
		{Point: Point{X: 40, Y: 30}, Capacity: 60},
	})
	return m
}

func TestNewModelRejectsBadInput(t *testing.T) {
	if _, err := NewModel(nil, 0, Params{}); err == nil {
		t.Fatalf("expected error for zero vehicle capacity")
	}
	if _, err := NewModel([]Customer{{Demand: -1}}, 10, Params{}); err == nil {
		t.Fatalf("expected error for negative demand")
	}
}

func TestConstructStartingSolutionIsConsistent(t *testing.T) {
	m := newTestModel(t, 1)
	cost, err := m.ConstructStartingSolution()
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	if cost <= 0 || math.IsInf(cost, 0) {
		t.Fatalf("unexpected cost %f", cost)
	}
	if err := m.CheckSolution(); err != nil {
		t.Fatalf("check: %v", err)
	}
	if got := m.SolutionCost(); got != cost {
		t.Fatalf("SolutionCost = %f, want %f", got, cost)
	}
}

func TestConstructFailsWhenCustomerExceedsVehicle(t *testing.T) {
	m, err := NewModel([]Customer{{Point: Point{X: 1}, Demand: 20}}, 10, Params{})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	m.SetDepots([]Depot{{Capacity: 100}})
	if _, err := m.ConstructStartingSolution(); !errors.Is(err, ErrVehicleCapacity) {
		t.Fatalf("want ErrVehicleCapacity, got %v", err)
	}
}

func TestConstructFailsWithoutDepotCapacity(t *testing.T) {
	m, err := NewModel([]Customer{{Demand: 5}, {Demand: 5}}, 10, Params{})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	m.SetDepots([]Depot{{Capacity: 6}})
	if _, err := m.ConstructStartingSolution(); !errors.Is(err, ErrDepotCapacity) {
		t.Fatalf("want ErrDepotCapacity, got %v", err)
	}
	m.SetDepots(nil)
	if _, err := m.ConstructStartingSolution(); !errors.Is(err, ErrNoDepots) {
		t.Fatalf("want ErrNoDepots, got %v", err)
	}
}

func TestConstructPacksExactFitWhenRegretOrderStrands(t *testing.T) {
	customers := []Customer{
		{Point: Point{X: 95}, Demand: 20},
		{Point: Point{X: 5}, Demand: 20},
		{Point: Point{X: 60}, Demand: 15},
		{Point: Point{X: 40}, Demand: 15},
	}
	m, err := NewModel(customers, 40, Params{})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	m.SetDepots([]Depot{
		{Point: Point{X: 0}, Capacity: 40},
		{Point: Point{X: 100}, Capacity: 30},
	})
	if _, err := m.ConstructStartingSolution(); err != nil {
		t.Fatalf("construct: %v", err)
	}
	if err := m.CheckSolution(); err != nil {
		t.Fatalf("check: %v", err)
	}
	sol, ok := m.Solution()
	if !ok {
		t.Fatalf("no solution after construct")
	}
	load := make([]int, 2)
	for _, r := range sol.Routes {
		for _, ci := range r.Stops {
			load[r.Depot] += customers[ci].Demand
		}
	}
	if load[0] != 40 || load[1] != 30 {
		t.Fatalf("depot loads = %v, want [40 30]", load)
	}
}

func TestPackingGivesUpWhenDemandExceedsCapacity(t *testing.T) {
	m, err := NewModel([]Customer{{Demand: 10}, {Demand: 10}, {Demand: 10}}, 10, Params{})
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	m.SetDepots([]Depot{{Capacity: 15}, {Point: Point{X: 5}, Capacity: 15}})
	if _, err := m.ConstructStartingSolution(); !errors.Is(err, ErrDepotCapacity) {
		t.Fatalf("want ErrDepotCapacity, got %v", err)
	}
}

func TestUnboundedDepotServesEverything(t *testing.T) {
	m := newTestModel(t, 1)
	m.SetDepots([]Depot{{Point: Point{X: 20, Y: 15}, Capacity: math.MaxInt}})
	if _, err := m.ConstructStartingSolution(); err != nil {
		t.Fatalf("construct: %v", err)
	}
	if err := m.CheckSolution(); err != nil {
		t.Fatalf("check: %v", err)
	}
}

func TestOptimizeRoutesNeverWorsensBest(t *testing.T) {
	m := newTestModel(t, 7)
	start, err := m.ConstructStartingSolution()
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	mt, err := m.OptimizeRoutes(context.Background(), 200, 0)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if mt.Iterations != 200 {
		t.Fatalf("iterations = %d, want 200", mt.Iterations)
	}
	if m.SolutionCost() > start+1e-9 {
		t.Fatalf("cost went up: %f -> %f", start, m.SolutionCost())
	}
	if err := m.CheckSolution(); err != nil {
		t.Fatalf("check after optimize: %v", err)
	}
}

func TestOptimizeRoutesIsDeterministicForSeed(t *testing.T) {
	run := func() float64 {
		m := newTestModel(t, 42)
		if _, err := m.ConstructStartingSolution(); err != nil {
			t.Fatalf("construct: %v", err)
		}
		if _, err := m.OptimizeRoutes(context.Background(), 150, 0); err != nil {
			t.Fatalf("optimize: %v", err)
		}
		return m.SolutionCost()
	}
	a, b := run(), run()
	if a != b {
		t.Fatalf("same seed gave %f and %f", a, b)
	}
}

func TestOptimizeRoutesStopsOnCancel(t *testing.T) {
	m := newTestModel(t, 3)
	if _, err := m.ConstructStartingSolution(); err != nil {
		t.Fatalf("construct: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mt, err := m.OptimizeRoutes(ctx, 1000, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if mt.Iterations != 0 {
		t.Fatalf("iterations = %d, want 0", mt.Iterations)
	}
	if err := m.CheckSolution(); err != nil {
		t.Fatalf("solution must stay valid: %v", err)
	}
}

func TestOptimizeWithoutSolution(t *testing.T) {
	m := newTestModel(t, 1)
	if _, err := m.OptimizeRoutes(context.Background(), 10, 0); !errors.Is(err, ErrNoSolution) {
		t.Fatalf("want ErrNoSolution, got %v", err)
	}
	if !math.IsInf(m.SolutionCost(), 1) {
		t.Fatalf("cost without solution should be +Inf")
	}
}

func TestImproveOrder2OptUntanglesCrossing(t *testing.T) {
	nodes := []Point{{X: 0, Y: 10}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 20}}
	depot := Point{}
	order := []int{0, 1, 2, 3}
	before := tourLength(depot, nodes, order)
	got := ImproveOrder2Opt(depot, nodes, order, 5)
	if after := tourLength(depot, nodes, got); after >= before {
		t.Fatalf("2-opt did not improve: %f -> %f", before, after)
	}
}
