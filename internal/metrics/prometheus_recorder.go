package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "mountrewrite"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	fileDuration prom.Histogram
	fileResults  *prom.CounterVec
	rewrites     *prom.CounterVec
	assetResults *prom.CounterVec
	runDuration  prom.Histogram
}

// NewPrometheusRecorder constructs and registers Prometheus metrics on reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		fileDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "file_duration_seconds",
			Help:      "Time to parse, rewrite and write one artifact",
			Buckets:   prom.DefBuckets,
		}),
		fileResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "file_results_total",
			Help:      "Artifact outcomes by result",
		}, []string{"result"}),
		rewrites: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rewrites_total",
			Help:      "Nodes rewritten by rule",
		}, []string{"rule"}),
		assetResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "asset_results_total",
			Help:      "Compressed asset outcomes by result",
		}, []string{"result"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total duration of a rewrite run",
			Buckets:   prom.DefBuckets,
		}),
	}
	reg.MustRegister(pr.fileDuration, pr.fileResults, pr.rewrites, pr.assetResults, pr.runDuration)
	return pr
}

func (p *PrometheusRecorder) ObserveFileDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.fileDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncFileResult(result ResultLabel) {
	if p == nil {
		return
	}
	p.fileResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) AddRewrites(rule RuleLabel, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.rewrites.WithLabelValues(string(rule)).Add(float64(n))
}

func (p *PrometheusRecorder) IncAssetResult(result ResultLabel) {
	if p == nil {
		return
	}
	p.assetResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}
