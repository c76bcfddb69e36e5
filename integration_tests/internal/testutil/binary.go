package testutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

var binaryPath string

// PrepareBinary locates the taskflow binary for integration tests.
// It checks, in order of preference:
// 1. TASKFLOW_BINARY - an explicit path, e.g. from the Makefile
// 2. bin directory (../bin/taskflow) - where make build creates it
// 3. otherwise it builds the binary into a temporary directory
// The returned cleanup function removes anything it built.
func PrepareBinary() (func(), error) {
	if path := os.Getenv("TASKFLOW_BINARY"); path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("TASKFLOW_BINARY: %w", err)
		}
		binaryPath = path
		return func() {}, nil
	}

	binPath := filepath.Join("..", "bin", "taskflow")
	if _, err := os.Stat(binPath); err == nil {
		binaryPath = binPath
		return func() {}, nil
	}

	dir, err := os.MkdirTemp("", "taskflow-bin-")
	if err != nil {
		return nil, err
	}
	out := filepath.Join(dir, "taskflow")

	build := exec.Command("go", "build", "-o", out, ".")
	build.Dir = ".."
	if output, err := build.CombinedOutput(); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("go build failed: %v\n%s", err, output)
	}

	binaryPath = out
	return func() { os.RemoveAll(dir) }, nil
}

// BinaryPath returns the binary chosen by PrepareBinary
func BinaryPath() string {
	return binaryPath
}
