package domain

import (
	"errors"
	"fmt"
)

// ErrConnectionLost marks total connectivity loss. It is the only run-fatal
// condition: everything downstream stops and the partial report is returned.
var ErrConnectionLost = errors.New("database connection lost")

// DiscoveryError means metadata introspection failed for one object.
// The object is skipped and analysis continues on the rest.
type DiscoveryError struct {
	Object string
	Reason error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovering %s: %v", e.Object, e.Reason)
}

func (e *DiscoveryError) Unwrap() error { return e.Reason }

// ExecutionError means a benchmarked statement failed after its retry.
// It is converted into a performance finding, never propagated.
type ExecutionError struct {
	SQL    string
	Reason error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("executing %q: %v", e.SQL, e.Reason)
}

func (e *ExecutionError) Unwrap() error { return e.Reason }

// CleanupError means compensating cleanup after the trigger probe's writes
// failed. It escalates to a critical finding because it indicates residual
// synthetic rows in the target database.
type CleanupError struct {
	Table  string
	Reason error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("cleaning up synthetic rows in %s: %v", e.Table, e.Reason)
}

func (e *CleanupError) Unwrap() error { return e.Reason }
