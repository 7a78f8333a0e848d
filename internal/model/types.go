package model

// Wire formats for scenario input and result output.

// ScenarioFile is one customer-demand scenario. Every scenario of a run
// carries the same depot catalog.
type ScenarioFile struct {
	Depots          []DepotIn    `json:"depots"`
	VehicleCapacity int          `json:"vehicleCapacity"`
	RouteCost       float64      `json:"routeCost,omitempty"`
	Customers       []CustomerIn `json:"customers"`
}

type DepotIn struct {
	Capacity int     `json:"capacity"`
	Costs    float64 `json:"costs"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

type CustomerIn struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Demand int     `json:"demand"`
}

// SolutionFile is written by a solve run (.sol).
type SolutionFile struct {
	Objective     float64 `json:"Objective"`
	NumOpenDepots int     `json:"NumOpenDepots"`
	OpenDepots    []int   `json:"OpenDepots"`
}

// ValidationFile is written by a validation run (.val).
type ValidationFile struct {
	NumOpenDepots        int       `json:"NumOpenDepots"`
	OpenDepots           []int     `json:"OpenDepots"`
	ObjectivePerScenario []float64 `json:"ObjectivePerScenario"`
	OpeningCost          float64   `json:"OpeningCost"`
}

// RunSummary is the persisted record of a finished run.
type RunSummary struct {
	ID          string    `json:"id"`
	Mode        string    `json:"mode"` // solve | validate
	CreatedAt   string    `json:"createdAt"`
	Scenarios   []string  `json:"scenarios"`
	Objective   float64   `json:"objective"`
	OpeningCost float64   `json:"openingCost"`
	OpenDepots  []int     `json:"openDepots"`
	PerScenario []float64 `json:"perScenario,omitempty"`
	Bound       int       `json:"bound,omitempty"`
	Enumerated  int       `json:"enumerated,omitempty"`
	ElapsedMs   int64     `json:"elapsedMs"`
	OutputPath  string    `json:"outputPath,omitempty"`
}
