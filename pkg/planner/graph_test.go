// SPDX-License-Identifier: AGPL-3.0-only

package planner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/partitiondb/enginecore/pkg/catalog"
)

func leafVertex(fragID int64, partition int32, outputDepID int32) *PlanVertex {
	return &PlanVertex{
		Fragment:    catalog.Fragment{FragmentID: catalog.FragmentID(fragID)},
		Partition:   partition,
		InputDepID:  NullDependencyID,
		OutputDepID: outputDepID,
	}
}

func TestBuilderRootsAreUnconsumedVertices(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddVertex(leafVertex(1, 0, 1001)))
	require.NoError(t, b.AddVertex(leafVertex(2, 1, 1002)))

	root := &PlanVertex{
		Fragment:    catalog.Fragment{FragmentID: 3},
		Partition:   0,
		InputDepID:  1001,
		OutputDepID: 1003,
	}
	require.NoError(t, b.AddVertex(root))

	b.BuildEdges()
	roots := b.Roots()
	require.Len(t, roots, 2)
}

func TestBuilderRejectsNullOutputDepID(t *testing.T) {
	b := NewBuilder()
	v := leafVertex(1, 0, NullDependencyID)
	err := b.AddVertex(v)
	require.Error(t, err)
}

func TestTraverseLongestPathRoundOrdering(t *testing.T) {
	// Fan-in across partitions {0,1,2}: three leaves in round 0, each on a
	// different partition, feeding a single coordinator vertex in round 1.
	b := NewBuilder()
	require.NoError(t, b.AddVertex(leafVertex(10, 0, 2001)))
	require.NoError(t, b.AddVertex(leafVertex(10, 1, 2001)))
	require.NoError(t, b.AddVertex(leafVertex(10, 2, 2001)))

	coordinator := &PlanVertex{
		Fragment:    catalog.Fragment{FragmentID: 11},
		Partition:   0,
		InputDepID:  2001,
		OutputDepID: 2002,
	}
	require.NoError(t, b.AddVertex(coordinator))

	b.BuildEdges()
	require.Len(t, b.Edges(), 3)

	var rounds []int
	visited := map[int64]int{}
	b.TraverseLongestPath(func(v *PlanVertex, round int) {
		rounds = append(rounds, round)
		visited[int64(v.Fragment.FragmentID)] = round
	})

	require.Equal(t, 0, visited[10])
	require.Equal(t, 1, visited[11])
	require.Equal(t, []int{0, 0, 0, 1}, rounds)
}

func TestBuildEdgesIdempotent(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddVertex(leafVertex(1, 0, 1001)))
	consumer := &PlanVertex{
		Fragment:    catalog.Fragment{FragmentID: 2},
		Partition:   0,
		InputDepID:  1001,
		OutputDepID: 1002,
	}
	require.NoError(t, b.AddVertex(consumer))

	b.BuildEdges()
	b.BuildEdges()
	require.Len(t, b.Edges(), 1)
}

func TestPlanVertexHashDependsOnlyOnFragmentAndPartition(t *testing.T) {
	v1 := &PlanVertex{
		Fragment:  catalog.Fragment{FragmentID: 5},
		Partition: 2,
		StmtIndex: 0,
		Params:    catalog.NewParameterSet(catalog.Int64Value(1)),
	}
	v2 := &PlanVertex{
		Fragment:  catalog.Fragment{FragmentID: 5},
		Partition: 2,
		StmtIndex: 9,
		Params:    catalog.NewParameterSet(catalog.Int64Value(999)),
	}
	require.Equal(t, v1.Hash(), v2.Hash())
	require.False(t, v1.Equal(v2))
}
