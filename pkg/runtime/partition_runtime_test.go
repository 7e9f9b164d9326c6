// SPDX-License-Identifier: AGPL-3.0-only

package runtime

import (
	"context"
	"testing"

	"github.com/grafana/dskit/services"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/partitiondb/enginecore/pkg/catalog"
	"github.com/partitiondb/enginecore/pkg/planner"
	"github.com/partitiondb/enginecore/pkg/scheduler"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixedEstimator struct{}

func (fixedEstimator) GetAllFragmentPartitions(
	fragPartitions map[catalog.FragmentID]map[int32]struct{},
	allPartitions map[int32]struct{},
	fragments []catalog.Fragment,
	params catalog.ParameterSet,
	basePartition int32,
) error {
	for _, f := range fragments {
		fragPartitions[f.FragmentID] = map[int32]struct{}{basePartition: {}}
		allPartitions[basePartition] = struct{}{}
	}
	return nil
}

func TestPartitionRuntimeStartStop(t *testing.T) {
	proc := &catalog.Procedure{
		Name: "GetRow",
		Statements: []catalog.Statement{
			{ID: 1, HasSinglePartitionPlan: true, ReadOnly: true, SinglePartitionFragments: []catalog.Fragment{{FragmentID: 1}}},
		},
	}

	r := New(Config{
		PartitionID: 0,
		InitiatorID: 1,
		Procedures:  []*catalog.Procedure{proc},
		Estimator:   fixedEstimator{},
		DepIDs:      planner.NewDependencyIDCounter(),
		Checker:     scheduler.ConflictCheckerFunc(func(*scheduler.DistributedTxn, *scheduler.QueuedTxn, int32) bool { return true }),
		SchedulerConfig: scheduler.Config{
			Policy:     scheduler.FIRST,
			WindowSize: 1,
		},
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, services.StartAndAwaitRunning(ctx, r))
	require.NotNil(t, r.Planner("GetRow"))
	require.Equal(t, int32(0), r.PartitionID())

	plan, err := r.Planner("GetRow").Plan(ctx, 1, []catalog.ParameterSet{catalog.NewParameterSet()}, 0, true)
	require.NoError(t, err)
	require.True(t, plan.IsSingleSited())

	cancel()
	require.NoError(t, services.StopAndAwaitTerminated(context.Background(), r))
}
