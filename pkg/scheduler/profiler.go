// SPDX-License-Identifier: AGPL-3.0-only

package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
)

// Profiler accumulates per-partition scheduling counters (§4.4: compute
// time, queue size, and examined-candidate profiling alongside decision
// outcomes), grounded on the prometheus-vec-plus-atomic-scalar split
// costattribution.Tracker uses: per-call labeled outcomes go to a
// CounterVec for export, while the hot per-call counts a caller might poll
// synchronously (examinedTotal) are kept as a plain atomic so reading them
// never touches the registry.
type Profiler struct {
	partitionID string

	decisions       *prometheus.CounterVec
	examinedPerCall prometheus.Histogram
	queueSize       prometheus.Histogram
	computeTime     prometheus.Histogram
	examinedTotal   atomic.Int64
}

// NewProfiler constructs a Profiler whose metrics are labeled by partition.
// Callers register the returned collectors with their own prometheus
// registry (this package never self-registers, matching Tracker's
// convention of leaving registration to its owner).
func NewProfiler(partitionID string) *Profiler {
	constLabels := prometheus.Labels{"partition": partitionID}
	return &Profiler{
		partitionID: partitionID,
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "enginecore_speculative_scheduler_decisions_total",
			Help:        "Outcomes of SpeculativeScheduler.Next calls, by partition and outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		examinedPerCall: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "enginecore_speculative_scheduler_examined_candidates",
			Help:        "Number of queued transactions examined per Next call.",
			ConstLabels: constLabels,
			Buckets:     prometheus.LinearBuckets(0, 2, 10),
		}),
		queueSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "enginecore_speculative_scheduler_queue_size",
			Help:        "Size of the partition's work queue observed at the start of each Next call.",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(1, 2, 10),
		}),
		computeTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "enginecore_speculative_scheduler_compute_seconds",
			Help:        "Wall time spent inside SpeculativeScheduler.Next.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}),
	}
}

// Collectors returns the prometheus collectors owned by this profiler, for
// registration by the caller.
func (p *Profiler) Collectors() []prometheus.Collector {
	return []prometheus.Collector{p.decisions, p.examinedPerCall, p.queueSize, p.computeTime}
}

// recordQueueSize observes the work queue's depth at the start of a Next
// call.
func (p *Profiler) recordQueueSize(size int) {
	p.queueSize.Observe(float64(size))
}

// recordComputeTime observes how long a Next call took to run.
func (p *Profiler) recordComputeTime(d time.Duration) {
	p.computeTime.Observe(d.Seconds())
}

func (p *Profiler) recordSkippedAllLocal() {
	p.decisions.WithLabelValues("skipped_all_local").Inc()
}

func (p *Profiler) recordNoneFound(examined int) {
	p.decisions.WithLabelValues("none_found").Inc()
	p.examinedPerCall.Observe(float64(examined))
	p.examinedTotal.Add(int64(examined))
}

func (p *Profiler) recordChosen(examined int) {
	p.decisions.WithLabelValues("chosen").Inc()
	p.examinedPerCall.Observe(float64(examined))
	p.examinedTotal.Add(int64(examined))
}

// ExaminedTotal returns the running count of candidates examined across
// every call, for debug-page rendering.
func (p *Profiler) ExaminedTotal() int64 {
	return p.examinedTotal.Load()
}
