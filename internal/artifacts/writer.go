package artifacts

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lockwave-io/hostforge/internal/system"
)

// File is one generated artifact. Name is relative to the writer's dir.
type File struct {
	Name    string
	Content []byte
	Mode    os.FileMode
}

// Writer places artifacts under Dir. Content identical to what is already on
// disk is left alone, so resumed runs do not touch mtimes of unchanged files.
type Writer struct {
	Dir string
}

// Path returns where f lives once written.
func (w *Writer) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// Write stores f and reports whether the on-disk content changed.
func (w *Writer) Write(f File) (path string, changed bool, err error) {
	if !filepath.IsLocal(f.Name) {
		return "", false, fmt.Errorf("artifacts: invalid name %q", f.Name)
	}
	mode := f.Mode
	if mode == 0 {
		mode = 0o600
	}
	path = w.Path(f.Name)

	same, err := sameContent(path, f.Content)
	if err != nil {
		return "", false, fmt.Errorf("artifacts: compare %s: %w", path, err)
	}
	if same {
		return path, false, nil
	}

	if err := system.EnsureDir(filepath.Dir(path), 0o700); err != nil {
		return "", false, fmt.Errorf("artifacts: mkdir: %w", err)
	}
	if err := system.AtomicWrite(path, f.Content, mode); err != nil {
		return "", false, fmt.Errorf("artifacts: write %s: %w", path, err)
	}
	return path, true, nil
}

func sameContent(path string, content []byte) (bool, error) {
	existing, err := os.ReadFile(path) // #nosec G304 -- path is inside the artifact dir
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return sha256.Sum256(existing) == sha256.Sum256(content), nil
}
