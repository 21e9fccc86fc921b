package dataset

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/evalgate/evalgate/pkg/models"
	"github.com/google/uuid"
)

const filePrefix = "evalgate"

// Data-type segments used in artifact filenames
const (
	TypeMockInputs        = "mock_inputs"
	TypeBaselineRaw       = "baseline_raw"
	TypeBaselineEvaluated = "baseline_evaluated"
	TypeTargetRaw         = "target_raw"
	TypeTargetEvaluated   = "target_evaluated"
	TypeComparison        = "comparison"
	TypeCallSummary       = "api_call_summary"
	TypeValidationForm    = "human_validation_template"
	TypeHumanValidated    = "human_validated"
	TypePhase1Summary     = "phase1_summary"
	TypePhase2Summary     = "phase2_summary"
	TypeFinalReport       = "final_report"
)

// RawType maps a dataset role to its unevaluated file kind
func RawType(role models.DatasetType) string {
	if role == models.DatasetTypeTarget {
		return TypeTargetRaw
	}
	return TypeBaselineRaw
}

// EvaluatedType maps a dataset role to its evaluated file kind
func EvaluatedType(role models.DatasetType) string {
	if role == models.DatasetTypeTarget {
		return TypeTargetEvaluated
	}
	return TypeBaselineEvaluated
}

// Manager handles file naming and retention inside one feature's artifact
// directory. All artifacts for a feature live flat under <dataDir>/<feature>.
type Manager struct {
	dir     string
	feature string
	logger  *slog.Logger
}

// NewManager creates the feature directory if needed
func NewManager(dataDir, feature string, logger *slog.Logger) (*Manager, error) {
	dir := filepath.Join(dataDir, feature)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create feature directory: %w", err)
	}
	return &Manager{
		dir:     dir,
		feature: feature,
		logger:  logger.With("component", "dataset", "feature", feature),
	}, nil
}

// Dir returns the feature's artifact directory
func (m *Manager) Dir() string {
	return m.dir
}

// GenerateFilename builds a collision-resistant artifact path:
// evalgate_<feature>_<dataType>[_<llm>]_<YYYYMMDD_HHMMSS>_<uuid8>.json
func (m *Manager) GenerateFilename(dataType, llmVersion string) string {
	timestamp := time.Now().Format("20060102_150405")
	uid := uuid.New().String()[:8]

	parts := []string{filePrefix, m.feature, dataType}
	if llmVersion != "" {
		parts = append(parts, strings.ToLower(llmVersion))
	}
	parts = append(parts, timestamp, uid)

	return filepath.Join(m.dir, strings.Join(parts, "_")+".json")
}

// FindLatest returns the most recently modified file matching the glob
// pattern inside the feature directory.
func (m *Manager) FindLatest(pattern string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(m.dir, pattern))
	if err != nil {
		return "", fmt.Errorf("bad file pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no files match %q in %s", pattern, m.dir)
	}

	latest := ""
	var latestMod time.Time
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestMod) {
			latest = match
			latestMod = info.ModTime()
		}
	}
	if latest == "" {
		return "", fmt.Errorf("no readable files match %q in %s", pattern, m.dir)
	}
	return latest, nil
}

// Cleanup removes the oldest files of one data type, keeping the most recent
// keep files. Removal failures are logged, not returned: retention is
// housekeeping and must never fail a phase.
func (m *Manager) Cleanup(dataType string, keep int) {
	if keep <= 0 {
		return
	}

	pattern := fmt.Sprintf("%s_%s_%s_*.json", filePrefix, m.feature, dataType)
	matches, err := filepath.Glob(filepath.Join(m.dir, pattern))
	if err != nil || len(matches) <= keep {
		return
	}

	type fileInfo struct {
		path string
		mod  time.Time
	}
	files := make([]fileInfo, 0, len(matches))
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			continue
		}
		files = append(files, fileInfo{path: match, mod: info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].mod.Before(files[j].mod) })

	for _, old := range files[:len(files)-keep] {
		if err := os.Remove(old.path); err != nil {
			m.logger.Warn("Could not remove old file", "path", old.path, "error", err)
			continue
		}
		m.logger.Info("Cleaned up old file", "path", old.path)
	}
}

// Resolve maps a possibly-relative artifact path into the feature directory.
// Absolute paths and paths that already exist are used as given.
func (m *Manager) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return filepath.Join(m.dir, path)
}
