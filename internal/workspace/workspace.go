package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Prefix is the name prefix of every workspace directory.
const Prefix = "pyjudge-"

// Workspace is an exclusive temporary directory owned by one grading call.
type Workspace struct {
	ID  string
	Dir string

	once sync.Once
	err  error
}

// Create makes a new workspace under root. An empty root uses os.TempDir().
func Create(root string) (*Workspace, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0700); err != nil {
			return nil, fmt.Errorf("failed to create workspace root %s: %w", root, err)
		}
	}

	id := uuid.NewString()
	dir, err := os.MkdirTemp(root, Prefix+id[:8]+"-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &Workspace{ID: id, Dir: dir}, nil
}

// Path returns the absolute path of name inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// Write stages a file inside the workspace. Names must stay inside it.
func (w *Workspace) Write(name string, data []byte) (string, error) {
	clean := filepath.ToSlash(filepath.Clean(name))
	if name == "" || filepath.IsAbs(name) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid workspace file name %q", name)
	}
	path := w.Path(name)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return path, nil
}

// Cleanup removes the workspace and everything in it. Safe to call more
// than once; only the first call does any work.
func (w *Workspace) Cleanup() error {
	w.once.Do(func() {
		w.err = os.RemoveAll(w.Dir)
	})
	return w.err
}

// Exists reports whether the workspace directory is still on disk.
func (w *Workspace) Exists() bool {
	_, err := os.Stat(w.Dir)
	return err == nil
}

// List returns workspace directories currently present under root.
func List(root string) ([]string, error) {
	if root == "" {
		root = os.TempDir()
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), Prefix) {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	return dirs, nil
}
