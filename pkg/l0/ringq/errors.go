package ringq

import (
	"errors"
	"fmt"
)

// ErrAllocation indicates the queue could not obtain storage.
// Growth failures are fatal: Push panics with an *AllocationError.
var ErrAllocation = errors.New("ringq: allocation failure")

// AllocationError describes a failed growth.
type AllocationError struct {
	Requested int
	Limit     int
}

// Error implements error.
func (e *AllocationError) Error() string {
	if e.Limit > 0 {
		return fmt.Sprintf("%v: capacity %d exceeds limit %d", ErrAllocation, e.Requested, e.Limit)
	}
	return fmt.Sprintf("%v: capacity %d", ErrAllocation, e.Requested)
}

// Unwrap supports errors.Is(err, ErrAllocation).
func (e *AllocationError) Unwrap() error {
	return ErrAllocation
}
