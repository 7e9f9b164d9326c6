// SPDX-License-Identifier: AGPL-3.0-only

package planner

import "github.com/partitiondb/enginecore/pkg/catalog"

// PartitionEstimator is the external contract for the Partition Estimator
// (PE, §2/§6): a stateless service that, given a plan fragment and bound
// parameters, returns the set of partitions the fragment must touch. The
// core depends only on this interface; the implementation (hashing,
// range lookups, whatever the catalog's partitioning scheme requires) lives
// outside this package's scope.
type PartitionEstimator interface {
	// GetAllFragmentPartitions must clear and refill fragPartitions and
	// allPartitions from scratch on every call, and must be deterministic
	// for identical (fragments, params, basePartition) inputs (§6).
	GetAllFragmentPartitions(
		fragPartitions map[catalog.FragmentID]map[int32]struct{},
		allPartitions map[int32]struct{},
		fragments []catalog.Fragment,
		params catalog.ParameterSet,
		basePartition int32,
	) error
}
