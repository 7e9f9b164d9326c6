// SPDX-License-Identifier: AGPL-3.0-only

package planner

import (
	"sort"

	"github.com/partitiondb/enginecore/pkg/catalog"
	"github.com/partitiondb/enginecore/pkg/wire"
)

// bucketKey groups vertices by (round, partition) for fragment-task message
// assembly (§4.3).
type bucketKey struct {
	round     int
	partition int32
}

// BatchPlan is the immutable-after-finalization result of one
// BatchPlanner.Plan call (§3): the DAG plus per-statement partition maps,
// locality flags, and a round-grouped fragment-task message template.
// BatchPlan exclusively owns its vertices, edges, and DAG (§3 Ownership);
// catalog entities are shared-immutable references.
type BatchPlan struct {
	BasePartition int32
	Procedure     *catalog.Procedure

	graph *Builder

	// StmtPartitionIDs[i] is the packed, stable-order set of partitions
	// statement i touched (§4.2 step 8).
	StmtPartitionIDs [][]int32

	ReadOnly       bool
	AllLocal       bool
	AllSingleSited bool
	// LocalFragsNonTransactional reports whether every vertex scheduled on
	// the base partition comes from a read-only fragment, so the local
	// execution site can skip undo-log tracking for its own work even when
	// the batch as a whole performs writes elsewhere (§3 Open Questions).
	LocalFragsNonTransactional bool

	// buckets is the memoized (round, partition) -> vertex grouping
	// computed once during finalization (§4.2's "After all statements" step
	// and §4.3 step 1-2), reused by every FragmentTaskMessages call.
	buckets    map[bucketKey][]*PlanVertex
	bucketKeys []bucketKey // insertion order, for deterministic output
}

// finalize runs PGB.build_edges() and memoizes the round/partition grouping
// described in §4.3. Called once by BatchPlanner.Plan after every statement
// has contributed its vertices.
func (p *BatchPlan) finalize() {
	p.graph.BuildEdges()

	p.buckets = make(map[bucketKey][]*PlanVertex)
	p.graph.TraverseLongestPath(func(v *PlanVertex, round int) {
		key := bucketKey{round: round, partition: v.Partition}
		if _, ok := p.buckets[key]; !ok {
			p.bucketKeys = append(p.bucketKeys, key)
		}
		p.buckets[key] = append(p.buckets[key], v)
	})
}

// IsReadOnly reports whether every statement in the batch is read-only
// (§3: readonly is the conjunction of each statement's readonly flag).
func (p *BatchPlan) IsReadOnly() bool { return p.ReadOnly }

// IsLocal reports whether every statement's touched-partition set equals
// {base_partition} (§3).
func (p *BatchPlan) IsLocal() bool { return p.AllLocal }

// IsSingleSited reports whether every statement resolved via its
// single-partition plan (§3).
func (p *BatchPlan) IsSingleSited() bool { return p.AllSingleSited }

// LocalFragsAreNonTransactional reports whether every vertex local to the
// base partition is read-only, letting the execution site skip undo-log
// bookkeeping for its own fragments regardless of the batch's overall
// ReadOnly flag (§3).
func (p *BatchPlan) LocalFragsAreNonTransactional() bool { return p.LocalFragsNonTransactional }

// StatementPartitions returns the packed touched-partition arrays recorded
// per statement (§4.2 step 8).
func (p *BatchPlan) StatementPartitions() [][]int32 { return p.StmtPartitionIDs }

// Vertices exposes the DAG's vertices for introspection (debug UI, tests).
func (p *BatchPlan) Vertices() []*PlanVertex { return p.graph.Vertices() }

// Edges exposes the DAG's edges for introspection.
func (p *BatchPlan) Edges() []Edge { return p.graph.Edges() }

// FragmentTaskMessages builds the ordered list of fragment-task messages for
// this plan (§4.3), one per non-empty (round, partition) bucket, using the
// supplied transaction id and client handle (assigned by the external id
// oracle and client-reply path, both out of this package's scope per §1).
func (p *BatchPlan) FragmentTaskMessages(initiatorID int32, txnID int64, clientHandle int64) ([]*wire.FragmentTaskMessage, error) {
	// bucketKeys is already in (round, insertion-within-round) order because
	// TraverseLongestPath visits round-by-round; sort is a no-op safety net
	// that also gives deterministic output if callers mutate bucket
	// insertion order elsewhere (e.g. via future caching).
	keys := make([]bucketKey, len(p.bucketKeys))
	copy(keys, p.bucketKeys)
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].round < keys[j].round })

	messages := make([]*wire.FragmentTaskMessage, 0, len(keys))
	for i, key := range keys {
		vertices := p.buckets[key]
		if len(vertices) == 0 {
			continue
		}

		m := &wire.FragmentTaskMessage{
			TargetPartition: key.partition,
			InitiatorID:     initiatorID,
			TxnID:           txnID,
			ClientHandle:    clientHandle,
			TaskType:        taskTypeFor(p.Procedure),
		}
		for _, v := range vertices {
			payload, err := v.Params.Serialize()
			if err != nil {
				return nil, &SerializationError{StmtIndex: v.StmtIndex, Cause: err}
			}
			m.FragmentIDs = append(m.FragmentIDs, int64(v.Fragment.FragmentID))
			m.InputDepIDs = append(m.InputDepIDs, depIDOrSentinel(v.InputDepID))
			m.OutputDepIDs = append(m.OutputDepIDs, v.OutputDepID)
			m.StmtIndexes = append(m.StmtIndexes, int32(v.StmtIndex))
			m.ParamPayloads = append(m.ParamPayloads, payload)
		}
		m.FinalTask = i == len(keys)-1
		messages = append(messages, m)
	}
	return messages, nil
}

func depIDOrSentinel(id int32) int32 {
	if id == NullDependencyID {
		return wire.NullDependencyID
	}
	return id
}

func taskTypeFor(proc *catalog.Procedure) wire.TaskType {
	if proc != nil && proc.SystemProcedure {
		return wire.SysProcPerPartition
	}
	return wire.UserProc
}
