package steps

import "fmt"

// ActionError reports a step whose artifacts or external action failed. The
// step stays unmarked so the next run retries it.
type ActionError struct {
	Step string
	Err  error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }
