// Package progress publishes pipeline progress events to in-process or Redis
// subscribers.
package progress

import "time"

const (
	TypeStageStarted    = "stage.started"
	TypeStageCompleted  = "stage.completed"
	TypeConfigEvaluated = "config.evaluated"
	TypeRunCompleted    = "run.completed"
	TypeRunFailed       = "run.failed"
)

// AllRuns is the topic that receives the events of every run.
const AllRuns = "*"

type Event struct {
	Type  string         `json:"type"`
	RunID string         `json:"runId"`
	Time  time.Time      `json:"time"`
	Data  map[string]any `json:"data,omitempty"`
}

// EventBroker fans events out to subscribers of a run id or of AllRuns.
type EventBroker interface {
	Subscribe(runID string) chan Event
	Unsubscribe(runID string, ch chan Event)
	Publish(evt Event)
}
