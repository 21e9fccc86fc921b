// Package workspace prepares the directory layout every command shares and
// the process logger that writes to both stdout and a per-run JSON log file.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Workspace is the root directory evalgate writes under: per-feature
// artifact directories, the state store, and run logs.
type Workspace struct {
	root    string
	logPath string
}

// New creates the workspace layout under root and reserves a log file name
// for this run.
func New(root string) (*Workspace, error) {
	logsDir := filepath.Join(root, "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace at %s: %w", root, err)
	}

	name := fmt.Sprintf("evalgate_%s.log", time.Now().Format("2006-01-02T15-04-05"))
	return &Workspace{
		root:    root,
		logPath: filepath.Join(logsDir, name),
	}, nil
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string {
	return w.root
}

// StateDir returns the directory holding per-feature workflow state files.
func (w *Workspace) StateDir() string {
	return filepath.Join(w.root, "state")
}

// LogPath returns this run's JSON log file path.
func (w *Workspace) LogPath() string {
	return w.logPath
}
