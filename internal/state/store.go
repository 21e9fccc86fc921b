// Package state persists the per-feature workflow state that gates the
// phased evaluation: registered baselines, the single live target, the
// selected baseline, and the current phase.
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/evalgate/evalgate/pkg/models"
)

// Readiness reasons returned by CheckReadyForComparison. The CLI prints
// these verbatim, so their wording is part of the tool's contract.
const (
	ReasonNoState             = "No workflow state found"
	ReasonNoBaselines         = "No baselines created yet. Run phase 1 first."
	ReasonNoSelection         = "No baseline selected for comparison. Run phase 2 first."
	ReasonNoTarget            = "No target dataset created yet. Run phase 2 first."
	ReasonStaleTarget         = "Target dataset is stale after baseline re-selection. Run phase 2 again."
	ReasonBaselineUnevaluated = "Selected baseline has not been evaluated"
	ReasonTargetUnevaluated   = "Target dataset has not been evaluated"
	ReasonReady               = "Ready for comparison"
)

// Store reads and writes one state file per feature under a single
// directory. Every mutation is a whole-file load-modify-save; writes go
// through a temp file + rename so a crash never truncates state.
type Store struct {
	dir    string
	logger *slog.Logger
}

func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}
	return &Store{
		dir:    dir,
		logger: logger.With("component", "state"),
	}, nil
}

// Path returns the state file path for a feature
func (s *Store) Path(feature string) string {
	return filepath.Join(s.dir, feature+"_state.json")
}

// Load returns the feature's workflow state, or nil when none has been
// persisted yet.
func (s *Store) Load(feature string) (*models.WorkflowState, error) {
	data, err := os.ReadFile(s.Path(feature))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state for %s: %w", feature, err)
	}

	var ws models.WorkflowState
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("corrupt state file for %s: %w", feature, err)
	}
	if ws.Baselines == nil {
		ws.Baselines = make(map[string]*models.DatasetRecord)
	}
	return &ws, nil
}

// Save overwrites the feature's state file and stamps updated_at
func (s *Store) Save(ws *models.WorkflowState) error {
	ws.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(ws, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state for %s: %w", ws.Feature, err)
	}

	path := s.Path(ws.Feature)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temp state file: %w", err)
	}

	s.logger.Debug("State saved", "feature", ws.Feature, "phase", ws.CurrentPhase)
	return nil
}

// AddBaseline registers a new baseline dataset and advances the phase.
// The id embeds the creation timestamp and input count; an existing id is
// never overwritten.
func (s *Store) AddBaseline(feature string, rec *models.DatasetRecord) (string, error) {
	ws, err := s.Load(feature)
	if err != nil {
		return "", err
	}
	if ws == nil {
		ws = models.NewWorkflowState(feature)
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	id := baselineID(rec.CreatedAt, rec.NumInputs)
	if _, exists := ws.Baselines[id]; exists {
		id = uniqueBaselineID(id, ws.Baselines)
		s.logger.Warn("Baseline id collision, using suffixed id", "baseline_id", id)
	}

	ws.Baselines[id] = rec
	ws.CurrentPhase = models.PhaseBaselineCreated
	ws.LLMConfigState = models.LLMConfigLL1Active

	if err := s.Save(ws); err != nil {
		return "", err
	}
	s.logger.Info("Baseline registered",
		"feature", feature, "baseline_id", id, "state", rec.State)
	return id, nil
}

// SetTarget replaces the feature's target dataset and advances the phase.
// Only one target exists at a time; a previous one is dropped silently.
func (s *Store) SetTarget(feature string, rec *models.DatasetRecord) error {
	ws, err := s.Load(feature)
	if err != nil {
		return err
	}
	if ws == nil {
		ws = models.NewWorkflowState(feature)
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if ws.TargetDataset != nil {
		s.logger.Warn("Replacing existing target dataset",
			"feature", feature, "previous", ws.TargetDataset.Filename)
	}
	ws.TargetDataset = rec
	ws.CurrentPhase = models.PhaseTargetCreated
	ws.LLMConfigState = models.LLMConfigLL2Active

	if err := s.Save(ws); err != nil {
		return err
	}
	s.logger.Info("Target registered", "feature", feature, "state", rec.State)
	return nil
}

// SelectBaseline records which baseline the next comparison runs against.
// Selecting an unknown id is a logged no-op. If a target already exists and
// was created against a different baseline, the target is marked stale; the
// mark clears when the selection returns to the target's recorded pairing.
func (s *Store) SelectBaseline(feature, id string) error {
	ws, err := s.Load(feature)
	if err != nil {
		return err
	}
	if ws == nil {
		s.logger.Warn("Cannot select baseline, no workflow state", "feature", feature)
		return nil
	}
	if _, ok := ws.Baselines[id]; !ok {
		s.logger.Warn("Cannot select unknown baseline",
			"feature", feature, "baseline_id", id)
		return nil
	}

	ws.SelectedBaselineID = id
	if t := ws.TargetDataset; t != nil && t.ComparedWithBaseline != "" {
		stale := t.ComparedWithBaseline != id
		if stale && !t.Stale {
			s.logger.Warn("Target dataset is now stale, it was created against a different baseline",
				"feature", feature, "target_baseline", t.ComparedWithBaseline, "selected", id)
		}
		t.Stale = stale
	}

	if err := s.Save(ws); err != nil {
		return err
	}
	s.logger.Info("Baseline selected", "feature", feature, "baseline_id", id)
	return nil
}

// PromoteTargetToBaseline turns the current target into a new baseline
// record with state "promoted", clears the target and the selection, and
// returns the new baseline id. The previous baseline stays registered.
func (s *Store) PromoteTargetToBaseline(feature string) (string, error) {
	ws, err := s.Load(feature)
	if err != nil {
		return "", err
	}
	if ws == nil || ws.TargetDataset == nil {
		return "", fmt.Errorf("no target dataset to promote for feature %s", feature)
	}

	promoted := ws.TargetDataset.Clone()
	promoted.State = models.DatasetPromoted
	promoted.Stale = false
	promoted.CreatedAt = time.Now()

	id := baselineID(promoted.CreatedAt, promoted.NumInputs)
	if _, exists := ws.Baselines[id]; exists {
		id = uniqueBaselineID(id, ws.Baselines)
	}

	ws.Baselines[id] = promoted
	ws.TargetDataset = nil
	ws.SelectedBaselineID = ""
	ws.CurrentPhase = models.PhaseBaselineCreated

	if err := s.Save(ws); err != nil {
		return "", err
	}
	s.logger.Info("Target promoted to baseline", "feature", feature, "baseline_id", id)
	return id, nil
}

// MarkCompared records that a comparison completed for the current pair
func (s *Store) MarkCompared(feature string) error {
	ws, err := s.Load(feature)
	if err != nil {
		return err
	}
	if ws == nil {
		return fmt.Errorf("no workflow state for feature %s", feature)
	}
	ws.CurrentPhase = models.PhaseCompared
	return s.Save(ws)
}

// CheckReadyForComparison is the sole gate for Phase 3. It returns one
// specific reason per failing precondition; I/O failures surface as errors
// rather than a false verdict.
func (s *Store) CheckReadyForComparison(feature string) (bool, string, error) {
	ws, err := s.Load(feature)
	if err != nil {
		return false, "", err
	}
	if ws == nil {
		return false, ReasonNoState, nil
	}
	if len(ws.Baselines) == 0 {
		return false, ReasonNoBaselines, nil
	}
	selected := ws.SelectedBaseline()
	if selected == nil {
		return false, ReasonNoSelection, nil
	}
	if ws.TargetDataset == nil {
		return false, ReasonNoTarget, nil
	}
	if ws.TargetDataset.Stale {
		return false, ReasonStaleTarget, nil
	}
	if selected.State != models.DatasetEvaluated {
		return false, ReasonBaselineUnevaluated, nil
	}
	if ws.TargetDataset.State != models.DatasetEvaluated {
		return false, ReasonTargetUnevaluated, nil
	}
	return true, ReasonReady, nil
}

func baselineID(ts time.Time, numInputs int) string {
	return fmt.Sprintf("baseline_%s_%d", ts.Format("20060102_150405"), numInputs)
}

func uniqueBaselineID(id string, existing map[string]*models.DatasetRecord) string {
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", id, i)
		if _, ok := existing[candidate]; !ok {
			return candidate
		}
	}
}
