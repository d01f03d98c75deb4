package features

import (
	"errors"
	"fmt"
)

// ErrNotFitted is returned when Transform runs before any statistics were fitted.
var ErrNotFitted = errors.New("features: transformer is not fitted")

// DegenerateColumnError reports a numeric column that cannot be fitted:
// no reference record carries a value for it, or every value is the same.
type DegenerateColumnError struct {
	Column string
	Reason string
}

func (e *DegenerateColumnError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "no values to fit a median on"
	}
	return fmt.Sprintf("features: column %q is degenerate: %s", e.Column, reason)
}
