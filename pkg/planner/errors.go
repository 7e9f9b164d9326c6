// SPDX-License-Identifier: AGPL-3.0-only

package planner

import (
	"fmt"

	"github.com/pkg/errors"
)

// Mispredict is returned when the caller predicted a statement would be
// single-partition but planning proved it touches more than one partition
// (§4.2 step 3c, §7). It is always surfaced to the caller unchanged — never
// wrapped — so a dispatcher can type-assert it and restart the transaction
// as multi-partition.
type Mispredict struct {
	TxnID int64
}

func (m *Mispredict) Error() string {
	return fmt.Sprintf("planner: mispredicted single-partition plan for txn %d", m.TxnID)
}

// PlanningError wraps a fatal-to-this-plan failure (typically surfaced by
// the partition estimator or an inconsistent catalog) with the statement
// index and procedure name it occurred under, per §7's propagation policy.
type PlanningError struct {
	Procedure string
	StmtIndex int
	Cause     error
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("planner: planning failed for %s statement %d: %v", e.Procedure, e.StmtIndex, e.Cause)
}

func (e *PlanningError) Unwrap() error { return e.Cause }

// wrapPlanningError attaches planner context to a lower-level failure,
// mirroring the pkg/errors.Wrapf convention used across this codebase for
// contextual error wrapping.
func wrapPlanningError(procedure string, stmtIndex int, cause error) error {
	return &PlanningError{
		Procedure: procedure,
		StmtIndex: stmtIndex,
		Cause:     errors.Wrapf(cause, "statement %d", stmtIndex),
	}
}

// SerializationError wraps a failure to serialize a ParameterSet into the
// wire form consumed by a FragmentTaskMessage (§6, §7).
type SerializationError struct {
	StmtIndex int
	Cause     error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("planner: failed to serialize parameters for statement %d: %v", e.StmtIndex, e.Cause)
}

func (e *SerializationError) Unwrap() error { return e.Cause }
