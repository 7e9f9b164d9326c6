// SPDX-License-Identifier: AGPL-3.0-only

package planner

import "fmt"

// Builder is the Plan Graph Builder (PGB, §4.1): it maintains the mutable
// DAG of a single BatchPlan during planning and finalizes it into a
// query-ready structure. A Builder is never shared across BatchPlans and is
// not safe for concurrent use — planning is single-threaded per call (§5).
type Builder struct {
	vertices []*PlanVertex
	// byOutputDep indexes vertices by their output dependency id. Multiple
	// vertices can share one output dep id (one fragment fanned out across
	// several partitions all produce the same logical output, §3).
	byOutputDep map[int32][]int

	edges    []Edge
	edgeSeen map[Edge]struct{}
}

// NewBuilder constructs an empty PGB for one BatchPlan.
func NewBuilder() *Builder {
	return &Builder{
		byOutputDep: make(map[int32][]int),
		edgeSeen:    make(map[Edge]struct{}),
	}
}

// AddVertex inserts v and updates the output-dependency index. It rejects
// vertices with a null output id, which the data model forbids (§3).
func (b *Builder) AddVertex(v *PlanVertex) error {
	if v.OutputDepID == NullDependencyID {
		return fmt.Errorf("planner: vertex for fragment %d/partition %d has null output dependency id", v.Fragment.FragmentID, v.Partition)
	}
	idx := len(b.vertices)
	b.vertices = append(b.vertices, v)
	b.byOutputDep[v.OutputDepID] = append(b.byOutputDep[v.OutputDepID], idx)
	return nil
}

// Vertices returns every vertex added so far, in insertion order. The
// returned slice is shared and must not be mutated by the caller.
func (b *Builder) Vertices() []*PlanVertex {
	return b.vertices
}

// BuildEdges creates, for every vertex v0 whose input dep id is non-null, one
// edge to every vertex v1 whose output dep id equals it — unless that edge
// already exists. Safe to call more than once (idempotent, §4.1).
func (b *Builder) BuildEdges() {
	for consumerIdx, v0 := range b.vertices {
		if v0.IsLeaf() {
			continue
		}
		for _, producerIdx := range b.byOutputDep[v0.InputDepID] {
			if producerIdx == consumerIdx {
				continue
			}
			e := Edge{ConsumerIdx: consumerIdx, ProducerIdx: producerIdx}
			if _, ok := b.edgeSeen[e]; ok {
				continue
			}
			b.edgeSeen[e] = struct{}{}
			b.edges = append(b.edges, e)
		}
	}
}

// Edges returns every edge created by BuildEdges so far, in creation order.
func (b *Builder) Edges() []Edge {
	return b.edges
}

// Roots returns the vertices nobody depends on: no other vertex's input dep
// id matches their output dep id. These are the terminal consumers of the
// plan (§4.1).
func (b *Builder) Roots() []*PlanVertex {
	consumed := make(map[int32]bool, len(b.vertices))
	for _, v := range b.vertices {
		if !v.IsLeaf() {
			consumed[v.InputDepID] = true
		}
	}
	var roots []*PlanVertex
	for _, v := range b.vertices {
		if !consumed[v.OutputDepID] {
			roots = append(roots, v)
		}
	}
	return roots
}

// TraverseLongestPath visits every vertex reachable from a leaf in order of
// its longest-path depth (its "round", §4.1/§8 invariant 3): leaves are
// round 0, and any consumer's round is one greater than the maximum round of
// its producers. This is what makes round(consumer) > round(producer) hold
// for every edge, which is the correctness property the rationale in §4.1
// cares about — a producer must have finished in every round any of its
// consumers needs it, which the *shortest* path does not guarantee. Ties at
// the same round are visited in deterministic vertex insertion order.
func (b *Builder) TraverseLongestPath(visit func(v *PlanVertex, round int)) {
	round := make([]int, len(b.vertices))
	computed := make([]bool, len(b.vertices))

	// consumersOf[producerIdx] lists the consumer indices depending on it,
	// the reverse adjacency of the edges built in BuildEdges.
	consumersOf := make(map[int][]int, len(b.vertices))
	remaining := make([]int, len(b.vertices))
	for _, e := range b.edges {
		consumersOf[e.ProducerIdx] = append(consumersOf[e.ProducerIdx], e.ConsumerIdx)
		remaining[e.ConsumerIdx]++
	}

	queue := make([]int, 0, len(b.vertices))
	for i, v := range b.vertices {
		if v.IsLeaf() || remaining[i] == 0 {
			round[i] = 0
			computed[i] = true
			queue = append(queue, i)
		}
	}

	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		for _, consumerIdx := range consumersOf[idx] {
			candidate := round[idx] + 1
			if candidate > round[consumerIdx] {
				round[consumerIdx] = candidate
			}
			remaining[consumerIdx]--
			if remaining[consumerIdx] == 0 {
				computed[consumerIdx] = true
				queue = append(queue, consumerIdx)
			}
		}
	}

	// Visit in (round, insertion order) so ties are deterministic, per
	// §4.1's ordering guarantee.
	maxRound := 0
	for i, ok := range computed {
		if ok && round[i] > maxRound {
			maxRound = round[i]
		}
	}
	for r := 0; r <= maxRound; r++ {
		for i, v := range b.vertices {
			if computed[i] && round[i] == r {
				visit(v, r)
			}
		}
	}
}
