// SPDX-License-Identifier: AGPL-3.0-only

package planner

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/opentracing/opentracing-go"

	"github.com/partitiondb/enginecore/internal/ordercache"
	"github.com/partitiondb/enginecore/pkg/catalog"
	"github.com/partitiondb/enginecore/pkg/oltpid"
)

// defaultOrderCacheSize bounds the per-planner memoization of step-5
// fragment ordering; a procedure rarely has more than a handful of
// statements, each with at most two fragment sets (single/multi), so this
// comfortably covers real catalogs without unbounded growth.
const defaultOrderCacheSize = 256

// BatchPlanner is the Batch Planner (BP, §2/§4.2): per stored procedure, it
// holds immutable batch metadata and drives a PartitionEstimator and a PGB
// Builder to produce a BatchPlan for one procedure invocation.
//
// A BatchPlanner is invoked from many worker threads concurrently, but only
// one plan at a time per instance (§5) — callers confine one planner to one
// worker, or guard access themselves.
type BatchPlanner struct {
	procedure   *catalog.Procedure
	estimator   PartitionEstimator
	initiatorID int32
	depIDs      *DependencyIDCounter
	orderCache  *ordercache.Cache
	logger      log.Logger
}

// NewBatchPlanner constructs a planner for one stored procedure (§6:
// BatchPlanner::new). depIDs is typically shared process-wide so dependency
// ids stay globally unique across every planner instance (§3, §5).
func NewBatchPlanner(procedure *catalog.Procedure, estimator PartitionEstimator, initiatorID int32, depIDs *DependencyIDCounter, logger log.Logger) *BatchPlanner {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	// defaultOrderCacheSize is a positive constant, so lru.New can never
	// reject it; New only errors on size <= 0.
	orderCache, _ := ordercache.New(defaultOrderCacheSize)
	return &BatchPlanner{
		procedure:   procedure,
		estimator:   estimator,
		initiatorID: initiatorID,
		depIDs:      depIDs,
		orderCache:  orderCache,
		logger:      logger,
	}
}

// Plan drives the per-statement algorithm of §4.2 and returns a finalized
// BatchPlan, or a *Mispredict when a statement predicted single-partition
// turns out to touch more than one partition. txnID is threaded in (rather
// than synthesized internally) because the real transaction id is always
// assigned by the external id oracle before planning begins — this port
// carries no hard-coded mispredict sentinel (§9 Open Questions).
func (bp *BatchPlanner) Plan(ctx context.Context, txnID int64, args []catalog.ParameterSet, basePartition int32, predictSinglePartition bool) (*BatchPlan, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "BatchPlanner.Plan")
	defer span.Finish()
	_ = ctx
	traceID := oltpid.New()
	span.SetTag("procedure", bp.procedure.Name)
	span.SetTag("base_partition", basePartition)
	span.SetTag("batch_size", len(args))
	span.SetTag("trace_id", traceID)

	if len(args) != len(bp.procedure.Statements) {
		return nil, &PlanningError{
			Procedure: bp.procedure.Name,
			StmtIndex: -1,
			Cause:     fmt.Errorf("expected %d bound parameter sets, got %d", len(bp.procedure.Statements), len(args)),
		}
	}

	plan := &BatchPlan{
		BasePartition: basePartition,
		Procedure:     bp.procedure,
		graph:         NewBuilder(),
	}

	readOnly := true
	allLocal := true
	allSingleSited := true
	stmtPartitionIDs := make([][]int32, len(bp.procedure.Statements))

	for i := range bp.procedure.Statements {
		stmt := &bp.procedure.Statements[i]
		scratch := getScratch()
		allPartitions, isSingle, err := bp.planStatement(plan, stmt, i, args[i], basePartition, predictSinglePartition, txnID, scratch)
		putScratch(scratch)
		if err != nil {
			if mp, ok := err.(*Mispredict); ok {
				level.Warn(bp.logger).Log("msg", "mispredicted single-partition plan", "trace_id", traceID, "procedure", bp.procedure.Name, "stmt_index", i, "txn_id", mp.TxnID)
			}
			return nil, err
		}

		readOnly = readOnly && stmt.ReadOnly
		allSingleSited = allSingleSited && isSingle
		allLocal = allLocal && isAllBasePartition(allPartitions, basePartition)
		stmtPartitionIDs[i] = allPartitions
	}

	plan.ReadOnly = readOnly
	plan.AllLocal = allLocal
	plan.AllSingleSited = allSingleSited
	plan.StmtPartitionIDs = stmtPartitionIDs
	plan.LocalFragsNonTransactional = localFragsNonTransactional(plan.graph.Vertices(), basePartition)
	plan.finalize()

	level.Debug(bp.logger).Log("msg", "planned batch", "trace_id", traceID, "procedure", bp.procedure.Name,
		"vertices", len(plan.Vertices()), "edges", len(plan.Edges()), "all_local", allLocal, "all_single_sited", allSingleSited)

	return plan, nil
}

// planStatement implements §4.2 steps 1-6 for a single statement, returning
// the statement's packed touched-partition list and whether it was
// ultimately resolved via its single-partition plan.
func (bp *BatchPlanner) planStatement(
	plan *BatchPlan,
	stmt *catalog.Statement,
	stmtIndex int,
	params catalog.ParameterSet,
	basePartition int32,
	predictSinglePartition bool,
	txnID int64,
	scratch *fragmentScratch,
) ([]int32, bool, error) {
	isSingle := stmt.HasSinglePartitionPlan
	var fragments []catalog.Fragment

	// The retry loop has no explicit bound in the source; a language-level
	// port needs one defensively (§9 Open Questions decision). It can only
	// ever execute twice in valid catalogs (single -> multi), so this bound
	// is generous.
	maxAttempts := len(stmt.SinglePartitionFragments) + len(stmt.MultiPartitionFragments) + 1

	for attempt := 0; ; attempt++ {
		if attempt >= maxAttempts {
			return nil, false, wrapPlanningError(bp.procedure.Name, stmtIndex,
				fmt.Errorf("single-partition retry loop exceeded %d attempts: catalog is inconsistent", maxAttempts))
		}

		fragments = stmt.FragmentsFor(isSingle)
		for k := range scratch.fragPartitions {
			delete(scratch.fragPartitions, k)
		}
		for k := range scratch.allPartitions {
			delete(scratch.allPartitions, k)
		}

		if err := bp.estimator.GetAllFragmentPartitions(scratch.fragPartitions, scratch.allPartitions, fragments, params, basePartition); err != nil {
			return nil, false, wrapPlanningError(bp.procedure.Name, stmtIndex, err)
		}

		if isSingle && len(scratch.allPartitions) > 1 {
			if predictSinglePartition {
				return nil, false, &Mispredict{TxnID: txnID}
			}
			isSingle = false
			continue
		}
		break
	}

	ordered := bp.orderCache.Order(ordercache.Key{Procedure: bp.procedure.Name, StmtIndex: stmtIndex, Single: isSingle}, fragments)
	prevOutputID := NullDependencyID
	for _, f := range ordered {
		outputID := bp.depIDs.Next()
		inputID := prevOutputID

		partitions := sortedPartitions(scratch.fragPartitions[f.FragmentID])
		local := len(partitions) == 1 && partitions[0] == basePartition
		for _, partition := range partitions {
			v := &PlanVertex{
				Fragment:    f,
				Partition:   partition,
				StmtIndex:   stmtIndex,
				InputDepID:  inputID,
				OutputDepID: outputID,
				Params:      params,
				Local:       local,
			}
			if err := plan.graph.AddVertex(v); err != nil {
				return nil, false, wrapPlanningError(bp.procedure.Name, stmtIndex, err)
			}
		}
		prevOutputID = outputID
	}

	allPartitions := sortedPartitions(scratch.allPartitions)
	return allPartitions, isSingle, nil
}

func isAllBasePartition(partitions []int32, basePartition int32) bool {
	return len(partitions) == 1 && partitions[0] == basePartition
}

// localFragsNonTransactional reports whether every vertex scheduled on
// basePartition comes from a read-only fragment.
func localFragsNonTransactional(vertices []*PlanVertex, basePartition int32) bool {
	for _, v := range vertices {
		if v.Partition == basePartition && !v.Fragment.ReadOnly {
			return false
		}
	}
	return true
}

func sortedPartitions(set map[int32]struct{}) []int32 {
	out := make([]int32, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
