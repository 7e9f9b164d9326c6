// SPDX-License-Identifier: AGPL-3.0-only

package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/partitiondb/enginecore/pkg/catalog"
)

// fakeEstimator answers GetAllFragmentPartitions from a fixed table keyed by
// fragment id, ignoring the bound parameters — enough to drive the
// BatchPlanner algorithm deterministically in tests.
type fakeEstimator struct {
	partitionsByFragment map[catalog.FragmentID][]int32
}

func (f *fakeEstimator) GetAllFragmentPartitions(
	fragPartitions map[catalog.FragmentID]map[int32]struct{},
	allPartitions map[int32]struct{},
	fragments []catalog.Fragment,
	params catalog.ParameterSet,
	basePartition int32,
) error {
	for _, frag := range fragments {
		partitions, ok := f.partitionsByFragment[frag.FragmentID]
		if !ok {
			partitions = []int32{basePartition}
		}
		set := make(map[int32]struct{}, len(partitions))
		for _, p := range partitions {
			set[p] = struct{}{}
			allPartitions[p] = struct{}{}
		}
		fragPartitions[frag.FragmentID] = set
	}
	return nil
}

func singleStmtProcedure(name string, single []catalog.Fragment, multi []catalog.Fragment, readOnly bool) *catalog.Procedure {
	return &catalog.Procedure{
		Name: name,
		Statements: []catalog.Statement{
			{
				ID:                       1,
				Name:                     name + "_stmt0",
				ReadOnly:                 readOnly,
				HasSinglePartitionPlan:   len(single) > 0,
				SinglePartitionFragments: single,
				MultiPartitionFragments:  multi,
			},
		},
	}
}

// S1: a single-statement, single-partition procedure produces one vertex and
// one fragment-task message targeting the base partition.
func TestPlanSinglePartitionSingleStatement(t *testing.T) {
	proc := singleStmtProcedure("GetRow",
		[]catalog.Fragment{{FragmentID: 1, StmtID: 1}},
		[]catalog.Fragment{{FragmentID: 2, StmtID: 1}},
		true,
	)
	est := &fakeEstimator{partitionsByFragment: map[catalog.FragmentID][]int32{
		1: {3},
	}}
	bp := NewBatchPlanner(proc, est, 7, NewDependencyIDCounter(), nil)

	plan, err := bp.Plan(context.Background(), 555, []catalog.ParameterSet{catalog.NewParameterSet(catalog.Int64Value(42))}, 3, true)
	require.NoError(t, err)
	require.True(t, plan.IsSingleSited())
	require.True(t, plan.IsLocal())
	require.True(t, plan.IsReadOnly())
	require.Len(t, plan.Vertices(), 1)

	messages, err := plan.FragmentTaskMessages(7, 555, 99)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, int32(3), messages[0].TargetPartition)
	require.True(t, messages[0].FinalTask)
}

// S2: a statement predicted single-partition actually touches more than one
// partition; with predictSinglePartition true, Plan must return *Mispredict.
func TestPlanMispredictReturnsTypedError(t *testing.T) {
	proc := singleStmtProcedure("UpdateBalances",
		[]catalog.Fragment{{FragmentID: 1, StmtID: 1}},
		[]catalog.Fragment{{FragmentID: 2, StmtID: 1}},
		false,
	)
	est := &fakeEstimator{partitionsByFragment: map[catalog.FragmentID][]int32{
		1: {0, 1},
	}}
	bp := NewBatchPlanner(proc, est, 7, NewDependencyIDCounter(), nil)

	_, err := bp.Plan(context.Background(), 123, []catalog.ParameterSet{catalog.NewParameterSet()}, 0, true)
	require.Error(t, err)
	mp, ok := err.(*Mispredict)
	require.True(t, ok, "expected *Mispredict, got %T: %v", err, err)
	require.Equal(t, int64(123), mp.TxnID, "Mispredict must carry the real txn id, not a hard-coded sentinel")
}

// When the caller does not predict single-partition, a statement that would
// mispredict instead falls through to its multi-partition fragments and
// plans successfully.
func TestPlanFallsBackToMultiPartitionWithoutPrediction(t *testing.T) {
	proc := singleStmtProcedure("UpdateBalances",
		[]catalog.Fragment{{FragmentID: 1, StmtID: 1}},
		[]catalog.Fragment{{FragmentID: 2, StmtID: 1, IsProducer: true}, {FragmentID: 3, StmtID: 1}},
		false,
	)
	est := &fakeEstimator{partitionsByFragment: map[catalog.FragmentID][]int32{
		1: {0, 1},
		2: {0, 1},
		3: {0},
	}}
	bp := NewBatchPlanner(proc, est, 7, NewDependencyIDCounter(), nil)

	plan, err := bp.Plan(context.Background(), 1, []catalog.ParameterSet{catalog.NewParameterSet()}, 0, false)
	require.NoError(t, err)
	require.False(t, plan.IsSingleSited())
	require.Len(t, plan.Vertices(), 3) // frag 2 on partitions {0,1}, frag 3 on {0}
}

// S3: a multi-partition statement fans in across partitions {0,1,2} into a
// coordinator fragment; the round of the coordinator's vertex must exceed
// the round of every leaf vertex it depends on (invariant 3).
func TestPlanMultiRoundFanIn(t *testing.T) {
	proc := singleStmtProcedure("Aggregate",
		nil,
		[]catalog.Fragment{
			{FragmentID: 1, StmtID: 1, IsProducer: true},
			{FragmentID: 2, StmtID: 1},
		},
		true,
	)
	est := &fakeEstimator{partitionsByFragment: map[catalog.FragmentID][]int32{
		1: {0, 1, 2},
		2: {0},
	}}
	bp := NewBatchPlanner(proc, est, 7, NewDependencyIDCounter(), nil)

	plan, err := bp.Plan(context.Background(), 1, []catalog.ParameterSet{catalog.NewParameterSet()}, 0, false)
	require.NoError(t, err)
	require.Len(t, plan.Vertices(), 4) // 3 leaves (partitions 0,1,2) + 1 coordinator
	require.Len(t, plan.Edges(), 3)

	messages, err := plan.FragmentTaskMessages(7, 1, 1)
	require.NoError(t, err)
	require.Len(t, messages, 4) // round 0: 3 partitions, round 1: 1 partition
	require.True(t, messages[len(messages)-1].FinalTask)
}

// A multi-partition write statement whose local-partition fragment is
// tagged read-only should leave LocalFragsAreNonTransactional true, even
// though the batch as a whole is not read-only.
func TestPlanLocalFragsNonTransactional(t *testing.T) {
	proc := singleStmtProcedure("ProbeThenWrite",
		nil,
		[]catalog.Fragment{
			{FragmentID: 1, StmtID: 1, IsProducer: true, ReadOnly: true}, // runs on base partition
			{FragmentID: 2, StmtID: 1},                                  // runs on remote partition, writes
		},
		false,
	)
	est := &fakeEstimator{partitionsByFragment: map[catalog.FragmentID][]int32{
		1: {0},
		2: {1},
	}}
	bp := NewBatchPlanner(proc, est, 7, NewDependencyIDCounter(), nil)

	plan, err := bp.Plan(context.Background(), 1, []catalog.ParameterSet{catalog.NewParameterSet()}, 0, false)
	require.NoError(t, err)
	require.False(t, plan.IsReadOnly())
	require.True(t, plan.LocalFragsAreNonTransactional())
}

func TestPlanRejectsArgCountMismatch(t *testing.T) {
	proc := singleStmtProcedure("GetRow", []catalog.Fragment{{FragmentID: 1, StmtID: 1}}, nil, true)
	est := &fakeEstimator{}
	bp := NewBatchPlanner(proc, est, 7, NewDependencyIDCounter(), nil)

	_, err := bp.Plan(context.Background(), 1, nil, 0, true)
	require.Error(t, err)
}
