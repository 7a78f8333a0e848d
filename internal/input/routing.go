package input

import (
	"context"
	"time"

	"lrpsolve/internal/lrp"
	"lrpsolve/internal/opt"
)

// RoutingModel adapts an opt.Model to the engine's routing contract.
type RoutingModel struct {
	Model *opt.Model
}

var _ lrp.RoutingModel = (*RoutingModel)(nil)

func (r *RoutingModel) SetDepots(sites []lrp.DepotSite) {
	depots := make([]opt.Depot, len(sites))
	for i, s := range sites {
		depots[i] = opt.Depot{Point: opt.Point{X: s.X, Y: s.Y}, Capacity: s.Capacity}
	}
	r.Model.SetDepots(depots)
}

func (r *RoutingModel) ConstructStartingSolution() (float64, error) {
	return r.Model.ConstructStartingSolution()
}

func (r *RoutingModel) CheckSolution() error { return r.Model.CheckSolution() }

func (r *RoutingModel) OptimizeRoutes(ctx context.Context, maxIterations int, timeLimit time.Duration) error {
	_, err := r.Model.OptimizeRoutes(ctx, maxIterations, timeLimit)
	return err
}

func (r *RoutingModel) SolutionCost() float64 { return r.Model.SolutionCost() }

func (r *RoutingModel) TotalDemand() int { return r.Model.TotalDemand() }

func (r *RoutingModel) VehicleCapacity() int { return r.Model.VehicleCapacity() }

func (r *RoutingModel) Customers() []lrp.Point {
	pts := r.Model.Customers()
	out := make([]lrp.Point, len(pts))
	for i, p := range pts {
		out[i] = lrp.Point{X: p.X, Y: p.Y}
	}
	return out
}
