// SPDX-License-Identifier: AGPL-3.0-only

package planner

import (
	"github.com/segmentio/fasthash/fnv1a"

	"github.com/partitiondb/enginecore/pkg/catalog"
)

// NullDependencyID is the sentinel carried on the wire (§6) for "no input
// dependency" and used internally for a vertex with no producer.
const NullDependencyID int32 = -1

// PlanVertex is one (fragment, partition) execution unit inside a BatchPlan's
// DAG. Its equality identity is the tuple (fragment, partition, stmt index,
// input dep id, output dep id, params) per §3; its Hash is derivable from
// (fragment, partition) alone and stays stable for the vertex's lifetime.
type PlanVertex struct {
	Fragment    catalog.Fragment
	Partition   int32
	StmtIndex   int
	InputDepID  int32 // NullDependencyID when this vertex is a leaf.
	OutputDepID int32
	Params      catalog.ParameterSet
	Local       bool // true iff the fragment's whole partition set is {base_partition}.
}

// Hash implements the §3 requirement that vertex hashing depend only on
// (fragment, partition), using the allocation-free FNV-1a implementation
// already present in this dependency family's hashing toolbox.
func (v *PlanVertex) Hash() uint64 {
	h := fnv1a.Init64
	h = fnv1a.AddUint64(h, uint64(v.Fragment.FragmentID))
	h = fnv1a.AddUint64(h, uint64(uint32(v.Partition)))
	return h
}

// Equal implements the full identity comparison from §3. BuildEdges does not
// use it; it deduplicates edges by their (consumer, producer) index pair.
func (v *PlanVertex) Equal(o *PlanVertex) bool {
	return v.Fragment.FragmentID == o.Fragment.FragmentID &&
		v.Partition == o.Partition &&
		v.StmtIndex == o.StmtIndex &&
		v.InputDepID == o.InputDepID &&
		v.OutputDepID == o.OutputDepID &&
		v.Params.Equal(o.Params)
}

// IsLeaf reports whether this vertex has no producer (source fragment).
func (v *PlanVertex) IsLeaf() bool {
	return v.InputDepID == NullDependencyID
}

// Edge is a directed dependency edge from a consumer vertex to one of its
// producer vertices, identified by index into the Builder's vertex slice.
type Edge struct {
	ConsumerIdx int
	ProducerIdx int
}
