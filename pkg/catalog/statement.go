// SPDX-License-Identifier: AGPL-3.0-only

// Package catalog holds the immutable, compiler-owned entities the planner
// consumes: statements, their compiled plan fragments, and bound parameter
// sets. Nothing in this package is ever mutated after it is loaded; the
// planner only ever holds shared read-only references to it.
package catalog

import "sort"

// FragmentID identifies one compiled PlanFragment, unique within a Statement.
type FragmentID int64

// StatementID identifies one prepared SQL statement, unique within a Procedure.
type StatementID int32

// Fragment is the catalog-owned description of one compiled PlanFragment:
// a piece of a statement's execution plan, runnable on a single partition.
type Fragment struct {
	FragmentID FragmentID
	StmtID     StatementID
	// IsProducer marks a fragment whose output feeds a later fragment of the
	// same statement (e.g. a partition-local aggregate feeding a coordinator
	// fragment). Producers are ordered before their consumers in step 5 of
	// BatchPlanner.Plan.
	IsProducer bool
	// ReadOnly marks a fragment that performs no writes, independent of its
	// owning statement's own ReadOnly flag: a write statement's multi-
	// partition plan can still route a read-only probe fragment to the base
	// partition. BatchPlan.LocalFragsNonTransactional uses this to report
	// whether the fragments actually scheduled on the local partition need
	// undo-log tracking, even when the batch as a whole is not read-only.
	ReadOnly bool
}

// Statement is the catalog-owned, immutable description of one prepared SQL
// statement inside a stored procedure.
type Statement struct {
	ID                     StatementID
	Name                   string
	ReadOnly               bool
	HasSinglePartitionPlan bool

	SinglePartitionFragments []Fragment
	MultiPartitionFragments  []Fragment
}

// FragmentsFor returns the fragment set to try first for this statement,
// given whether the planner is currently attempting the single-partition
// plan.
func (s *Statement) FragmentsFor(singlePartition bool) []Fragment {
	if singlePartition {
		return s.SinglePartitionFragments
	}
	return s.MultiPartitionFragments
}

// StableOrder returns fragments sorted producer-before-consumer, ties broken
// by fragment id, per §4.2 step 5 of the planning algorithm. The input slice
// is not mutated.
func StableOrder(fragments []Fragment) []Fragment {
	ordered := make([]Fragment, len(fragments))
	copy(ordered, fragments)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.IsProducer != b.IsProducer {
			// Producers sort first.
			return a.IsProducer
		}
		return a.FragmentID < b.FragmentID
	})
	return ordered
}

// Procedure is the immutable, catalog-owned description of one stored
// procedure's batch of statements.
type Procedure struct {
	Name       string
	Statements []Statement
	// SystemProcedure marks internally-generated procedures (e.g.
	// rebalancer helpers) whose fragment-task messages are tagged
	// SysProcPerPartition instead of UserProc.
	SystemProcedure bool
}
