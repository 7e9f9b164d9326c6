// SPDX-License-Identifier: AGPL-3.0-only

// Package runtime ties one partition's BatchPlanner and SpeculativeScheduler
// together as a long-running component with a start/stop lifecycle,
// following this codebase's dskit/services.Service convention for anything
// that owns background goroutines or must be drained cleanly on shutdown.
package runtime

import (
	"context"
	"strconv"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/services"

	"github.com/partitiondb/enginecore/pkg/catalog"
	"github.com/partitiondb/enginecore/pkg/planner"
	"github.com/partitiondb/enginecore/pkg/scheduler"
)

// PartitionRuntime owns everything a single partition's execution site
// needs to plan batches and fill stall time with speculative work: a set of
// per-procedure BatchPlanners, the partition's work queue, and its
// SpeculativeScheduler.
type PartitionRuntime struct {
	services.Service

	partitionID int32
	logger      log.Logger

	planners  map[string]*planner.BatchPlanner
	scheduler *scheduler.SpeculativeScheduler
	workQueue *scheduler.WorkQueue
}

// Config bundles what a PartitionRuntime needs at construction: the catalog
// of procedures it plans for, the partition estimator every planner shares,
// and the scheduling policy knobs for this partition.
type Config struct {
	PartitionID     int32
	InitiatorID     int32
	Procedures      []*catalog.Procedure
	Estimator       planner.PartitionEstimator
	DepIDs          *planner.DependencyIDCounter
	Checker         scheduler.ConflictChecker
	SchedulerConfig scheduler.Config
}

// New constructs a PartitionRuntime and wires its services.Service lifecycle
// the way WriteAgent wires its own dependency startup/shutdown.
func New(cfg Config, logger log.Logger) *PartitionRuntime {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	planners := make(map[string]*planner.BatchPlanner, len(cfg.Procedures))
	for _, proc := range cfg.Procedures {
		planners[proc.Name] = planner.NewBatchPlanner(proc, cfg.Estimator, cfg.InitiatorID, cfg.DepIDs, logger)
	}

	workQueue := scheduler.NewWorkQueue()
	profiler := scheduler.NewProfiler(partitionLabel(cfg.PartitionID))
	ses := scheduler.NewSpeculativeScheduler(cfg.PartitionID, workQueue, cfg.Checker, cfg.SchedulerConfig, profiler, logger)

	r := &PartitionRuntime{
		partitionID: cfg.PartitionID,
		logger:      logger,
		planners:    planners,
		scheduler:   ses,
		workQueue:   workQueue,
	}
	r.Service = services.NewBasicService(r.starting, r.running, r.stopping)
	return r
}

func (r *PartitionRuntime) starting(_ context.Context) error {
	level.Info(r.logger).Log("msg", "partition runtime starting", "partition", r.partitionID, "procedures", len(r.planners))
	return nil
}

func (r *PartitionRuntime) running(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (r *PartitionRuntime) stopping(failureCase error) error {
	if failureCase != nil {
		level.Warn(r.logger).Log("msg", "partition runtime stopping after error", "partition", r.partitionID, "err", failureCase)
	} else {
		level.Info(r.logger).Log("msg", "partition runtime stopping", "partition", r.partitionID)
	}
	return nil
}

// Planner returns the BatchPlanner registered for the named procedure, or
// nil if it isn't known to this runtime.
func (r *PartitionRuntime) Planner(procedureName string) *planner.BatchPlanner {
	return r.planners[procedureName]
}

// Scheduler returns this partition's SpeculativeScheduler.
func (r *PartitionRuntime) Scheduler() *scheduler.SpeculativeScheduler {
	return r.scheduler
}

// WorkQueue returns this partition's local-transaction work queue, for
// enqueuing new arrivals.
func (r *PartitionRuntime) WorkQueue() *scheduler.WorkQueue {
	return r.workQueue
}

// PartitionID returns the partition this runtime serves.
func (r *PartitionRuntime) PartitionID() int32 {
	return r.partitionID
}

func partitionLabel(partitionID int32) string {
	return strconv.Itoa(int(partitionID))
}
