package filesystem

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// WorkDir is a private scratch directory for intermediate files of one
// operation. Close removes it with everything inside.
type WorkDir struct {
	path string
}

// NewWorkDir creates a scratch directory under parent (os.TempDir when empty)
func NewWorkDir(parent string) (*WorkDir, error) {
	if parent != "" {
		if err := os.MkdirAll(parent, 0755); err != nil {
			return nil, fmt.Errorf("failed to create work directory parent: %w", err)
		}
	}
	dir, err := os.MkdirTemp(parent, "dfm-")
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	return &WorkDir{path: dir}, nil
}

// Path returns the directory path
func (w *WorkDir) Path() string {
	return w.path
}

// File returns a fresh, unused file path with the given extension
func (w *WorkDir) File(ext string) string {
	return filepath.Join(w.path, uuid.NewString()+ext)
}

// Close removes the directory and its contents
func (w *WorkDir) Close() error {
	return os.RemoveAll(w.path)
}
