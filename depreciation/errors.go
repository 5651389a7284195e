package depreciation

import (
	"errors"
	"fmt"
)

// ErrComputation marks a broken engine invariant. It signals a defect, not
// bad data: the input already passed validation. Never retried, since the
// computation is deterministic.
var ErrComputation = errors.New("depreciation computation failed")

// ComputationError describes where the iteration went wrong.
type ComputationError struct {
	Code   string
	Year   int
	Reason string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("asset %q, fiscal year %d: %s", e.Code, e.Year, e.Reason)
}

func (e *ComputationError) Unwrap() error {
	return ErrComputation
}
