package metrics

import "time"

// ResultLabel enumerates per-file outcomes for counters.
type ResultLabel string

const (
	ResultRewritten ResultLabel = "rewritten"
	ResultUnchanged ResultLabel = "unchanged"
	ResultSkipped   ResultLabel = "skipped"
	ResultFailed    ResultLabel = "failed"
)

// RuleLabel names the rewrite rule a counter refers to.
type RuleLabel string

const (
	RuleLiteral RuleLabel = "literal"
	RuleHref    RuleLabel = "href"
)

// Recorder defines observability hooks for file and asset rewrites.
// Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveFileDuration(d time.Duration)
	IncFileResult(result ResultLabel)
	AddRewrites(rule RuleLabel, n int)
	IncAssetResult(result ResultLabel)
	ObserveRunDuration(d time.Duration)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveFileDuration(time.Duration) {}
func (NoopRecorder) IncFileResult(ResultLabel)         {}
func (NoopRecorder) AddRewrites(RuleLabel, int)        {}
func (NoopRecorder) IncAssetResult(ResultLabel)        {}
func (NoopRecorder) ObserveRunDuration(time.Duration)  {}
