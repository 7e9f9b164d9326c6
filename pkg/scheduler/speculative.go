// SPDX-License-Identifier: AGPL-3.0-only

package scheduler

import (
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// SpecType tags the kind of speculation being requested for a stalled
// distributed transaction (§4.4: next(dtxn, spec_type)). The scheduler
// treats it as an opaque cache key; callers define its vocabulary.
type SpecType string

// SpeculativeScheduler is the per-partition SES instance (§4.4). It is not
// safe for concurrent use: exactly one worker thread drives each partition's
// scheduler, matching the planner's single-threaded-per-call contract (§5).
type SpeculativeScheduler struct {
	partitionID    int32
	queue          *WorkQueue
	checker        ConflictChecker
	policy         Policy
	windowSize     int
	ignoreAllLocal bool
	profiler       *Profiler
	logger         log.Logger

	lastDtxnID   int64
	lastHasDtxn  bool
	lastSpecType SpecType
	lastIterator *Iterator
}

// Config holds the SES configuration knobs (§6): policy, window size, and
// the ignore_all_local toggle. It has no profiling field: profiling is on
// when a non-nil Profiler is passed to NewSpeculativeScheduler.
type Config struct {
	Policy         Policy
	WindowSize     int
	IgnoreAllLocal bool
}

// NewSpeculativeScheduler constructs a scheduler for one partition.
// window_size must be >= 1 (§4.4); a non-positive value is coerced to 1
// defensively rather than panicking, since this only ever narrows the
// candidate pool.
func NewSpeculativeScheduler(partitionID int32, queue *WorkQueue, checker ConflictChecker, cfg Config, profiler *Profiler, logger log.Logger) *SpeculativeScheduler {
	windowSize := cfg.WindowSize
	if windowSize < 1 {
		windowSize = 1
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &SpeculativeScheduler{
		partitionID:    partitionID,
		queue:          queue,
		checker:        checker,
		policy:         cfg.Policy,
		windowSize:     windowSize,
		ignoreAllLocal: cfg.IgnoreAllLocal,
		profiler:       profiler,
		logger:         logger,
	}
}

// Next implements the §4.4 selection algorithm: scan the partition's work
// queue for a non-conflicting local transaction to run speculatively while
// dtxn is stalled, honoring the configured policy and window.
func (s *SpeculativeScheduler) Next(dtxn *DistributedTxn, specType SpecType) (*LocalTransaction, bool) {
	start := time.Now()
	if s.profiler != nil {
		s.profiler.recordQueueSize(s.queue.Len())
		defer func() { s.profiler.recordComputeTime(time.Since(start)) }()
	}

	if s.ignoreAllLocal && dtxn.IsLocal && dtxn.PredictAllLocal {
		if s.profiler != nil {
			s.profiler.recordSkippedAllLocal()
		}
		return nil, false
	}

	var iter *Iterator
	if s.policy == FIRST && s.lastHasDtxn && s.lastDtxnID == dtxn.ID && s.lastSpecType == specType && s.lastIterator != nil {
		iter = s.lastIterator
	} else {
		iter = NewIterator(s.queue)
	}

	var best *QueuedTxn
	bestTime := s.policy.initialBestTime()
	examined := 0

	for {
		t, ok := iter.Next()
		if !ok {
			break
		}
		if !t.IsLocal || !t.IsSinglePartition || t.IsSpeculative {
			continue
		}
		if !s.checker.CanExecute(dtxn, t, s.partitionID) {
			continue
		}

		if s.policy == FIRST {
			best = t
			break
		}

		if t.EstimatorState != nil {
			remaining := t.EstimatorState.RemainingExecutionTime
			if s.policy.beats(remaining, bestTime) {
				best = t
				bestTime = remaining
			}
		}
		examined++
		if examined >= s.windowSize {
			break
		}
	}

	s.lastDtxnID = dtxn.ID
	s.lastHasDtxn = true
	s.lastSpecType = specType

	if best == nil {
		s.lastIterator = iter
		if s.profiler != nil {
			s.profiler.recordNoneFound(examined)
		}
		return nil, false
	}

	iter.Remove(best)
	s.lastIterator = nil

	if s.profiler != nil {
		s.profiler.recordChosen(examined)
	}
	level.Debug(s.logger).Log("msg", "selected speculative transaction", "partition", s.partitionID, "dtxn_id", dtxn.ID, "txn_id", best.ID, "policy", s.policy.String())

	return &LocalTransaction{QueuedTxn: *best}, true
}
