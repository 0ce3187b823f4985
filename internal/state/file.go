package state

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"github.com/lockwave-io/hostforge/internal/catalog"
	"github.com/lockwave-io/hostforge/internal/system"
)

// FileName is the name of the step state file inside the state dir.
const FileName = "steps.state"

const fileHeader = "# Managed by hostforge. One step=status line per attempted step.\n"

// FileStore keeps step state in a line-oriented file that is rewritten
// atomically on every change.
type FileStore struct {
	Path    string
	entries map[string]Status
}

// OpenFileStore loads the state file at path. A missing file is an empty
// state; anything unparseable wraps ErrCorrupt.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{Path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload reads the state file again. Callers holding the run lock use it so
// no decision rests on a view read before the lock was taken. On error the
// previous view is kept.
func (s *FileStore) Reload() error {
	data, err := os.ReadFile(s.Path) // #nosec G304 -- path is derived from the state dir flag
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.entries = make(map[string]Status)
			return nil
		}
		return fmt.Errorf("state: read %s: %w", s.Path, err)
	}

	entries, err := parse(data)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, s.Path, err)
	}
	s.entries = entries
	return nil
}

// NewFileStore opens the state file inside stateDir.
func NewFileStore(stateDir string) (*FileStore, error) {
	return OpenFileStore(filepath.Join(stateDir, FileName))
}

func parse(data []byte) (map[string]Status, error) {
	entries := make(map[string]Status)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: expected step=status, got %q", lineNo, line)
		}
		name = strings.TrimSpace(name)
		if !catalog.Known(name) {
			return nil, fmt.Errorf("line %d: unknown step %q", lineNo, name)
		}
		status, ok := parseStatus(strings.TrimSpace(value))
		if !ok {
			return nil, fmt.Errorf("line %d: unknown status %q for %s", lineNo, value, name)
		}
		entries[name] = status
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// render writes entries in execution order so the file is stable across runs.
func render(entries map[string]Status) []byte {
	var b strings.Builder
	b.WriteString(fileHeader)
	for _, name := range catalog.StepNames {
		if st, ok := entries[name]; ok {
			fmt.Fprintf(&b, "%s=%s\n", name, st)
		}
	}
	return []byte(b.String())
}

func (s *FileStore) persist() error {
	if err := system.EnsureDir(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("state: mkdir: %w", err)
	}
	if err := system.AtomicWrite(s.Path, render(s.entries), 0o600); err != nil {
		return fmt.Errorf("state: write %s: %w", s.Path, err)
	}
	return nil
}

// update applies fn to a copy of the entries and persists the result. The
// in-memory view only changes once the file has been replaced.
func (s *FileStore) update(fn func(map[string]Status) bool) error {
	next := maps.Clone(s.entries)
	if !fn(next) {
		return nil
	}
	prev := s.entries
	s.entries = next
	if err := s.persist(); err != nil {
		s.entries = prev
		return err
	}
	return nil
}

func (s *FileStore) Status(step string) Status {
	return s.entries[step]
}

func (s *FileStore) IsCompleted(step string) bool {
	return s.entries[step] == StatusCompleted
}

// MarkCompleted records step as completed. Repeating the call is a no-op.
func (s *FileStore) MarkCompleted(step string) error {
	if err := checkStep(step); err != nil {
		return err
	}
	return s.update(func(e map[string]Status) bool {
		return transition(e, step, StatusCompleted)
	})
}

// MarkSkipped records step as explicitly bypassed. A completed step stays
// completed.
func (s *FileStore) MarkSkipped(step string) error {
	if err := checkStep(step); err != nil {
		return err
	}
	return s.update(func(e map[string]Status) bool {
		return transition(e, step, StatusSkipped)
	})
}

func (s *FileStore) CompletedCount() int {
	n := 0
	for _, st := range s.entries {
		if st == StatusCompleted {
			n++
		}
	}
	return n
}

// Reset forgets step. It is the only way a completed step becomes unset.
func (s *FileStore) Reset(step string) error {
	if err := checkStep(step); err != nil {
		return err
	}
	return s.update(func(e map[string]Status) bool {
		if _, ok := e[step]; !ok {
			return false
		}
		delete(e, step)
		return true
	})
}

// ResetAll forgets every step.
func (s *FileStore) ResetAll() error {
	return s.update(func(e map[string]Status) bool {
		if len(e) == 0 {
			return false
		}
		clear(e)
		return true
	})
}

func (s *FileStore) Entries() map[string]Status {
	return maps.Clone(s.entries)
}
