// SPDX-License-Identifier: AGPL-3.0-only

package scheduler

// ConflictChecker decides whether a candidate local transaction t is safe to
// run speculatively alongside a stalled distributed transaction dtxn on the
// given partition (§4.4 step 4, §9 Design Notes: pluggable since table-level,
// row-level, and learned/markov-model implementations are all expected).
type ConflictChecker interface {
	CanExecute(dtxn *DistributedTxn, t *QueuedTxn, partitionID int32) bool
}

// ConflictCheckerFunc adapts a plain function to ConflictChecker.
type ConflictCheckerFunc func(dtxn *DistributedTxn, t *QueuedTxn, partitionID int32) bool

func (f ConflictCheckerFunc) CanExecute(dtxn *DistributedTxn, t *QueuedTxn, partitionID int32) bool {
	return f(dtxn, t, partitionID)
}
