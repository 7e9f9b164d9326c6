// SPDX-License-Identifier: AGPL-3.0-only

// Package scheduler implements the Speculative Execution Scheduler (SES,
// §4.4): one instance per partition, picking a non-conflicting queued local
// transaction to run speculatively while a distributed transaction is
// stalled awaiting other partitions.
package scheduler

// EstimatorState carries the last execution-time estimate a queued
// transaction was tagged with, if any (§4.4 step 4). Absent estimates do not
// disqualify a transaction under FIRST, but exclude it from SHORTEST/LONGEST
// ordering.
type EstimatorState struct {
	RemainingExecutionTime float64
}

// QueuedTxn is the tagged-variant capability set §9's Design Notes call for
// in place of an inheritance hierarchy: every field the scheduler's
// algorithm inspects, on every kind of queued transaction.
type QueuedTxn struct {
	ID                int64
	IsLocal           bool
	IsSinglePartition bool
	IsSpeculative     bool
	PredictAllLocal   bool
	PartitionID       int32
	Procedure         string
	EstimatorState    *EstimatorState
}

// LocalTransaction is what Next returns: a queued transaction chosen to run
// speculatively, no longer present in its partition's work queue.
type LocalTransaction struct {
	QueuedTxn
}

// DistributedTxn is the stalled transaction Next is being asked to fill dead
// time for (dtxn in §4.4).
type DistributedTxn struct {
	ID              int64
	IsLocal         bool
	PredictAllLocal bool
	Procedure       string
}
