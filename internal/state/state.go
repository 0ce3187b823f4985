// Package state records which provisioning steps have completed or been
// skipped, and owns the completion marker.
package state

import (
	"errors"
	"fmt"

	"github.com/lockwave-io/hostforge/internal/catalog"
)

var (
	// ErrCorrupt means the state file exists but cannot be parsed. Treating it
	// as empty could re-run destructive steps, so callers must stop.
	ErrCorrupt = errors.New("state: corrupt")

	// ErrUnknownStep is returned when a step outside the catalog is written.
	ErrUnknownStep = errors.New("state: unknown step")
)

// Status is the recorded outcome of a step. The zero value means the step
// has not been attempted.
type Status string

const (
	StatusUnset     Status = ""
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
)

// String returns "unset" for the zero value.
func (s Status) String() string {
	if s == StatusUnset {
		return "unset"
	}
	return string(s)
}

func parseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusCompleted, StatusSkipped:
		return Status(s), true
	}
	return StatusUnset, false
}

// Store is the per-step status record. Implementations assume a single
// writer; mark operations are idempotent.
type Store interface {
	Status(step string) Status
	IsCompleted(step string) bool
	MarkCompleted(step string) error
	MarkSkipped(step string) error
	CompletedCount() int
	Reset(step string) error
	ResetAll() error
	Entries() map[string]Status
	// Reload discards the in-memory view and reads the backing record again.
	Reload() error
}

func checkStep(step string) error {
	if !catalog.Known(step) {
		return fmt.Errorf("%w: %q", ErrUnknownStep, step)
	}
	return nil
}

// transition applies the monotonic update rules shared by every store and
// reports whether anything changed. A completed step is never downgraded.
func transition(entries map[string]Status, step string, to Status) bool {
	cur := entries[step]
	if cur == to || cur == StatusCompleted {
		return false
	}
	entries[step] = to
	return true
}
