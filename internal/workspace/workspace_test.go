package workspace

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewCreatesLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "data")
	ws, err := New(root)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if ws.Root() != root {
		t.Errorf("Root() = %q, want %q", ws.Root(), root)
	}
	if got := ws.StateDir(); got != filepath.Join(root, "state") {
		t.Errorf("StateDir() = %q, want it under the root", got)
	}

	info, err := os.Stat(filepath.Join(root, "logs"))
	if err != nil || !info.IsDir() {
		t.Fatalf("logs directory not created: %v", err)
	}
	if dir := filepath.Dir(ws.LogPath()); dir != filepath.Join(root, "logs") {
		t.Errorf("LogPath() = %q, want a file under logs/", ws.LogPath())
	}
	if !strings.HasSuffix(ws.LogPath(), ".log") {
		t.Errorf("LogPath() = %q, want a .log file", ws.LogPath())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "info", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "loud", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupLoggerWritesJSONFile(t *testing.T) {
	ws, err := New(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger, logFile, err := ws.SetupLogger(slog.LevelInfo)
	if err != nil {
		t.Fatalf("SetupLogger() error = %v", err)
	}
	defer logFile.Close()

	logger.Info("baseline registered", "feature", "generate_code")
	logger.Debug("suppressed at info level")
	if err := logFile.Sync(); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	data, err := os.ReadFile(ws.LogPath())
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"baseline registered"`) || !strings.Contains(out, `"feature":"generate_code"`) {
		t.Errorf("log file missing the JSON record: %q", out)
	}
	if strings.Contains(out, "suppressed at info level") {
		t.Errorf("debug record written at info level: %q", out)
	}
}
