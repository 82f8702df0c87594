package filesystem

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestChecker_Exists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "in.wav")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	c := NewChecker()
	if !c.Exists(file) {
		t.Errorf("Exists(%q) = false, want true", file)
	}
	if c.Exists(filepath.Join(dir, "missing.wav")) {
		t.Error("Exists() = true for a missing file")
	}
	if c.Exists(dir) {
		t.Error("Exists() = true for a directory")
	}
}

func TestEnsureParentDir(t *testing.T) {
	target := filepath.Join(t.TempDir(), "output", "nested", "a_enhanced.wav")

	if err := EnsureParentDir(target); err != nil {
		t.Fatalf("EnsureParentDir() unexpected error: %v", err)
	}
	if info, err := os.Stat(filepath.Dir(target)); err != nil || !info.IsDir() {
		t.Errorf("parent directory was not created: %v", err)
	}
}

func TestWorkDir(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "work")

	w, err := NewWorkDir(parent)
	if err != nil {
		t.Fatalf("NewWorkDir() unexpected error: %v", err)
	}
	if !strings.HasPrefix(w.Path(), parent) {
		t.Errorf("Path() = %q, want it under %q", w.Path(), parent)
	}

	a, b := w.File(".wav"), w.File(".wav")
	if a == b {
		t.Errorf("File() returned the same path twice: %q", a)
	}
	if filepath.Ext(a) != ".wav" || filepath.Dir(a) != w.Path() {
		t.Errorf("File() = %q, want a .wav inside %q", a, w.Path())
	}

	if err := os.WriteFile(a, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() unexpected error: %v", err)
	}
	if _, err := os.Stat(w.Path()); !os.IsNotExist(err) {
		t.Errorf("work directory still exists after Close(): %v", err)
	}
}
