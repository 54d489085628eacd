package compliance

import (
	"fmt"

	"compliance/internal/model"
)

// ValidationError reports caller input that violates a precondition. Nothing was written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// InvalidStateError reports an operation the entity's current state does not permit.
type InvalidStateError struct {
	Entity string
	ID     string
	State  model.Status
	Reason string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %s is %s: %s", e.Entity, e.ID, e.State, e.Reason)
}

// InconsistentRollupError reports a status value the rollup engine does not recognise.
type InconsistentRollupError struct {
	Value model.Status
	Index int
}

func (e *InconsistentRollupError) Error() string {
	return fmt.Sprintf("inconsistent rollup input: unrecognized status %q at position %d", e.Value, e.Index)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
