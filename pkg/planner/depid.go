// SPDX-License-Identifier: AGPL-3.0-only

package planner

import "go.uber.org/atomic"

// dependencyIDFloor is the reserved floor below which no dependency id is
// ever handed out (§3), leaving room for callers to reserve low ids for
// sentinels of their own.
const dependencyIDFloor int32 = 1000

// DependencyIDCounter is the process-wide monotonic source of dependency
// ids (§3, §5). It is the only piece of global mutable state either
// component in this package touches; its sole contract is monotonicity, so
// a single atomic counter is sufficient (§9).
type DependencyIDCounter struct {
	next atomic.Int32
}

// NewDependencyIDCounter constructs a counter starting just above the
// reserved floor.
func NewDependencyIDCounter() *DependencyIDCounter {
	c := &DependencyIDCounter{}
	c.next.Store(dependencyIDFloor)
	return c
}

// Next returns the next globally unique dependency id. Safe for concurrent
// use by many BatchPlanner instances (§5).
func (c *DependencyIDCounter) Next() int32 {
	return c.next.Add(1)
}
