package orchestrator

import (
	"errors"

	"github.com/lockwave-io/hostforge/internal/collector"
)

// Sentinel errors for a provisioning run.
var (
	// ErrAborted indicates the operator declined or interrupted setup.
	ErrAborted = collector.ErrAborted

	// ErrProfileChanged indicates a new profile was chosen while steps of
	// the previous one are already recorded.
	ErrProfileChanged = errors.New("hostforge: profile changed after steps were applied")
)

// ReportedError wraps an error the Reporter has already shown, so callers do
// not print it a second time.
type ReportedError struct {
	Err error
}

func (e *ReportedError) Error() string { return e.Err.Error() }

func (e *ReportedError) Unwrap() error { return e.Err }

// IsReported reports whether err went through Reporter.Failure.
func IsReported(err error) bool {
	var reported *ReportedError
	return errors.As(err, &reported)
}
