package lrp

// StageInfo describes one pruning stage.
type StageInfo struct {
	Index    int // 0-based
	Count    int // total number of stages
	Cap      int
	Budget   int // iterations per configuration
	PoolSize int // survivors after truncation
}

// StageSummary is reported when a stage finishes.
type StageSummary struct {
	StageInfo
	Failed int
	Best   *DepotConfiguration // nil when no configuration survived
}

// Observer receives pipeline progress. Calls happen on the pipeline goroutine,
// never concurrently with each other.
type Observer interface {
	StageStarted(info StageInfo)
	StageCompleted(summary StageSummary)
	ConfigurationEvaluated(cfg *DepotConfiguration, eval Evaluation)
}

type nopObserver struct{}

func (nopObserver) StageStarted(StageInfo)                                 {}
func (nopObserver) StageCompleted(StageSummary)                            {}
func (nopObserver) ConfigurationEvaluated(*DepotConfiguration, Evaluation) {}

// Observers fans every call out to each non-nil observer in order.
func Observers(obs ...Observer) Observer {
	var out multiObserver
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return nopObserver{}
	}
	return out
}

type multiObserver []Observer

func (m multiObserver) StageStarted(info StageInfo) {
	for _, o := range m {
		o.StageStarted(info)
	}
}

func (m multiObserver) StageCompleted(summary StageSummary) {
	for _, o := range m {
		o.StageCompleted(summary)
	}
}

func (m multiObserver) ConfigurationEvaluated(cfg *DepotConfiguration, eval Evaluation) {
	for _, o := range m {
		o.ConfigurationEvaluated(cfg, eval)
	}
}
