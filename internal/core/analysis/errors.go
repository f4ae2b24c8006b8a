package analysis

import (
	"errors"
	"fmt"
)

// ErrNoData marks the empty-result outcome: every input was well-formed but
// some filtering stage (window, merchant/city scope, item or cuisine join)
// matched zero rows. It is not a failure: callers branch on it with
// errors.Is before reading any payload. Wrapping errors carry a
// stage-specific diagnostic for the logs.
var ErrNoData = errors.New("no data matched the requested scope and window")

// noDataf builds a stage diagnostic wrapping ErrNoData.
func noDataf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNoData)...)
}

// OpError is the third outcome kind: an unanticipated fault inside an
// analysis operation, caught at the operation boundary and tagged with the
// operation name. The underlying fault never escapes raw.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("analysis operation %s failed: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }
