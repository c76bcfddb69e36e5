package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Workspace is a directory holding plan and config files for one test
type Workspace struct {
	Dir string
}

// SetupTestWorkspace creates a workspace directory and writes files into it, keyed by
// relative path. The cleanup function keeps the directory when keep is true.
func SetupTestWorkspace(t *testing.T, files map[string]string, keep bool) (*Workspace, func()) {
	t.Helper()

	testName := strings.ReplaceAll(t.Name(), "/", "_")
	dir, err := os.MkdirTemp("", "taskflow-"+testName+"-")
	require.NoError(t, err, "failed to create test workspace directory")

	ws := &Workspace{Dir: dir}
	for name, content := range files {
		ws.WriteFile(t, name, content)
	}

	cleanup := func() {
		if keep {
			t.Logf("Workspace preserved in: %s", dir)
			return
		}
		if err := os.RemoveAll(dir); err != nil {
			t.Logf("Warning: failed to clean up workspace directory %s: %v", dir, err)
		}
	}

	return ws, cleanup
}

// WriteFile writes content to name inside the workspace
func (w *Workspace) WriteFile(t *testing.T, name, content string) string {
	t.Helper()

	path := w.Path(name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// Path returns the absolute path of name inside the workspace
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}
