package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lockwave-io/hostforge/internal/system"
)

// MarkerName is the zero-byte file whose existence means "fully provisioned".
const MarkerName = ".provisioned"

// Marker is the durable completion marker. Its content is irrelevant.
type Marker struct {
	Path string
}

// NewMarker returns the marker inside stateDir.
func NewMarker(stateDir string) *Marker {
	return &Marker{Path: filepath.Join(stateDir, MarkerName)}
}

// Exists reports whether the marker is present.
func (m *Marker) Exists() (bool, error) {
	ok, err := system.FileExists(m.Path)
	if err != nil {
		return false, fmt.Errorf("state: stat marker: %w", err)
	}
	return ok, nil
}

// Set creates the marker.
func (m *Marker) Set() error {
	if err := system.EnsureDir(filepath.Dir(m.Path), 0o700); err != nil {
		return fmt.Errorf("state: mkdir: %w", err)
	}
	if err := system.AtomicWrite(m.Path, nil, 0o600); err != nil {
		return fmt.Errorf("state: write marker: %w", err)
	}
	return nil
}

// Clear removes the marker if present.
func (m *Marker) Clear() error {
	if err := os.Remove(m.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("state: remove marker: %w", err)
	}
	return nil
}
