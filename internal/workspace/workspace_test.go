package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestCreateAndCleanup(t *testing.T) {
	root := t.TempDir()

	ws, err := Create(root)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !strings.HasPrefix(filepath.Base(ws.Dir), Prefix) {
		t.Errorf("workspace name %q does not start with %q", filepath.Base(ws.Dir), Prefix)
	}
	if ws.ID == "" {
		t.Error("workspace ID is empty")
	}

	info, err := os.Stat(ws.Dir)
	if err != nil {
		t.Fatalf("workspace missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0700 {
		t.Errorf("workspace permissions = %o, want 700", perm)
	}

	path, err := ws.Write("user_code.py", []byte("x = 1\n"))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got, _ := os.ReadFile(path); string(got) != "x = 1\n" {
		t.Errorf("staged content = %q", got)
	}

	if err := ws.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if ws.Exists() {
		t.Error("workspace still exists after Cleanup()")
	}
	if err := ws.Cleanup(); err != nil {
		t.Errorf("second Cleanup() error = %v", err)
	}
}

func TestWriteRejectsEscapingNames(t *testing.T) {
	ws, err := Create(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = ws.Cleanup() }()

	for _, name := range []string{"", "../escape.py", "/etc/passwd", "..", "a/../../b"} {
		if _, err := ws.Write(name, []byte("x")); err == nil {
			t.Errorf("Write(%q) succeeded, want error", name)
		}
	}
}

func TestWorkspacesAreExclusive(t *testing.T) {
	root := t.TempDir()
	const n = 16

	var wg sync.WaitGroup
	dirs := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ws, err := Create(root)
			if err != nil {
				errs[i] = err
				return
			}
			dirs[i] = ws.Dir
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := range dirs {
		if errs[i] != nil {
			t.Fatalf("Create() error = %v", errs[i])
		}
		if seen[dirs[i]] {
			t.Errorf("duplicate workspace %s", dirs[i])
		}
		seen[dirs[i]] = true
	}

	listed, err := List(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(listed) != n {
		t.Errorf("List() found %d workspaces, want %d", len(listed), n)
	}
}
