package store

import (
	"lrpsolve/internal/lrp"
	"lrpsolve/internal/model"
)

// Summarize turns a pipeline result into a run record without ID or timestamp.
func Summarize(res *lrp.Result) model.RunSummary {
	mode := ModeSolve
	if res.Validation {
		mode = ModeValidate
	}
	return model.RunSummary{
		Mode:        mode,
		Scenarios:   append([]string(nil), res.ScenarioNames...),
		Objective:   res.Objective,
		OpeningCost: res.OpeningCost,
		OpenDepots:  res.OpenDepots(),
		PerScenario: append([]float64(nil), res.PerScenario...),
		Bound:       res.Bound,
		Enumerated:  res.Enumeration.Kept(),
		ElapsedMs:   res.Elapsed.Milliseconds(),
	}
}

// SolutionDocument is the .sol content of a solve result.
func SolutionDocument(res *lrp.Result) model.SolutionFile {
	ids := res.OpenDepots()
	return model.SolutionFile{Objective: res.Objective, NumOpenDepots: len(ids), OpenDepots: ids}
}

// ValidationDocument is the .val content of a validation result.
func ValidationDocument(res *lrp.Result) model.ValidationFile {
	ids := res.OpenDepots()
	return model.ValidationFile{
		NumOpenDepots:        len(ids),
		OpenDepots:           ids,
		ObjectivePerScenario: append([]float64(nil), res.PerScenario...),
		OpeningCost:          res.OpeningCost,
	}
}
