package pipeline

import (
	"errors"
	"fmt"
)

// ErrResourceLost marks results whose work item was in flight when the
// shared rendering engine died. Distinguishable from ordinary test failures
// so the summary can report them separately.
var ErrResourceLost = errors.New("rendering engine lost")

// PhaseFatalError reports that a phase exhausted its single engine restart.
// Remaining items in the phase are marked failed and later phases are
// skipped; a partial summary is still produced by the caller.
type PhaseFatalError struct {
	Phase int
	Err   error
}

func (e *PhaseFatalError) Error() string {
	return fmt.Sprintf("phase %d: unrecoverable resource loss: %v", e.Phase, e.Err)
}

func (e *PhaseFatalError) Unwrap() error { return e.Err }
