package metrics

import (
	"lrpsolve/internal/lrp"
)

// Recorder is a pipeline observer that feeds the LRP collectors.
type Recorder struct{}

var _ lrp.Observer = Recorder{}

func (Recorder) StageStarted(info lrp.StageInfo) {
	Stage.Set(float64(info.Index))
	CandidatePoolSize.Set(float64(info.PoolSize))
}

func (Recorder) StageCompleted(s lrp.StageSummary) {
	if s.Best == nil {
		return
	}
	if cost, ok := s.Best.Cost(); ok {
		BestObjective.Set(cost)
	}
}

func (Recorder) ConfigurationEvaluated(cfg *lrp.DepotConfiguration, eval lrp.Evaluation) {
	Evaluations.WithLabelValues(cfg.Status().String()).Inc()
	phase := "search"
	if eval.Budget == 0 {
		phase = "estimate"
	}
	for _, o := range eval.Outcomes {
		ScenarioSolveSeconds.WithLabelValues(phase).Observe(o.Duration.Seconds())
	}
}
