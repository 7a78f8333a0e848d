package progress

import (
	"time"

	"golang.org/x/time/rate"

	"lrpsolve/internal/lrp"
)

// Publisher turns pipeline callbacks into broker events for one run.
// Stage and run events are always sent; per-configuration events are
// throttled by a token bucket.
type Publisher struct {
	broker  EventBroker
	runID   string
	limiter *rate.Limiter
	now     func() time.Time
}

var _ lrp.Observer = (*Publisher)(nil)

// NewPublisher allows up to perSecond config.evaluated events per second;
// perSecond <= 0 disables throttling.
func NewPublisher(b EventBroker, runID string, perSecond float64) *Publisher {
	lim := rate.NewLimiter(rate.Inf, 0)
	if perSecond > 0 {
		lim = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
	return &Publisher{broker: b, runID: runID, limiter: lim, now: time.Now}
}

func (p *Publisher) RunID() string { return p.runID }

func (p *Publisher) publish(typ string, data map[string]any) Event {
	evt := Event{Type: typ, RunID: p.runID, Time: p.now().UTC(), Data: data}
	p.broker.Publish(evt)
	return evt
}

func (p *Publisher) StageStarted(info lrp.StageInfo) {
	p.publish(TypeStageStarted, map[string]any{
		"stage":  info.Index,
		"stages": info.Count,
		"cap":    info.Cap,
		"budget": info.Budget,
		"pool":   info.PoolSize,
	})
}

func (p *Publisher) StageCompleted(s lrp.StageSummary) {
	data := map[string]any{
		"stage":  s.Index,
		"cap":    s.Cap,
		"budget": s.Budget,
		"pool":   s.PoolSize,
		"failed": s.Failed,
	}
	if s.Best != nil {
		cost, _ := s.Best.Cost()
		data["best"] = s.Best.Key()
		data["cost"] = cost
	}
	p.publish(TypeStageCompleted, data)
}

func (p *Publisher) ConfigurationEvaluated(cfg *lrp.DepotConfiguration, eval lrp.Evaluation) {
	if !p.limiter.Allow() {
		return
	}
	data := map[string]any{
		"config": cfg.Key(),
		"status": cfg.Status().String(),
		"budget": eval.Budget,
	}
	if cost, ok := cfg.Cost(); ok {
		data["cost"] = cost
	}
	if eval.Err != nil {
		data["error"] = eval.Err.Error()
	}
	p.publish(TypeConfigEvaluated, data)
}

// RunCompleted announces the final configuration and where it was written.
// The published event is returned for forwarding.
func (p *Publisher) RunCompleted(res *lrp.Result, outputPath string) Event {
	data := map[string]any{
		"validation":  res.Validation,
		"openDepots":  res.OpenDepots(),
		"objective":   res.Objective,
		"openingCost": res.OpeningCost,
		"elapsedMs":   res.Elapsed.Milliseconds(),
	}
	if outputPath != "" {
		data["output"] = outputPath
	}
	if res.Validation {
		data["perScenario"] = res.PerScenario
	}
	return p.publish(TypeRunCompleted, data)
}

func (p *Publisher) RunFailed(err error) Event {
	return p.publish(TypeRunFailed, map[string]any{"error": err.Error()})
}
