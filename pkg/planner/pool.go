// SPDX-License-Identifier: AGPL-3.0-only

package planner

import (
	"sync"

	"github.com/partitiondb/enginecore/pkg/catalog"
)

// fragmentScratch is the per-statement scratch state reset at the top of
// each iteration of the BatchPlanner.Plan loop (§4.2 step 1): the fragment
// list under consideration and the partition sets the estimator fills in.
type fragmentScratch struct {
	fragments      []catalog.Fragment
	fragPartitions map[catalog.FragmentID]map[int32]struct{}
	allPartitions  map[int32]struct{}
}

func (s *fragmentScratch) reset() {
	s.fragments = s.fragments[:0]
	for k := range s.fragPartitions {
		delete(s.fragPartitions, k)
	}
	for k := range s.allPartitions {
		delete(s.allPartitions, k)
	}
}

// scratchPool is the "pooled fragment-list free-list" of §4.2/§9: a
// performance choice, not a semantic requirement, so it is implemented with
// a plain sync.Pool the way costattribution.Tracker pools its hash buffer
// and querier/batch.batchStream pools its histogram pointers — borrow on
// entry, return on every exit path including error (§5).
var scratchPool = sync.Pool{
	New: func() any {
		return &fragmentScratch{
			fragPartitions: make(map[catalog.FragmentID]map[int32]struct{}),
			allPartitions:  make(map[int32]struct{}),
		}
	},
}

func getScratch() *fragmentScratch {
	s := scratchPool.Get().(*fragmentScratch)
	s.reset()
	return s
}

func putScratch(s *fragmentScratch) {
	scratchPool.Put(s)
}
