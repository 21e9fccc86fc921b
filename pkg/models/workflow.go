package models

import (
	"sort"
	"time"
)

// Phase represents the current phase of the evaluation workflow
type Phase string

const (
	PhaseNotStarted      Phase = "not_started"
	PhaseBaselineCreated Phase = "baseline_created"
	PhaseTargetCreated   Phase = "target_created"
	PhaseCompared        Phase = "compared"
)

// LLMConfigState records which LLM configuration is believed active on the
// system under test. Advisory only, never enforced.
type LLMConfigState string

const (
	LLMConfigLL1Active LLMConfigState = "ll1_active"
	LLMConfigLL2Active LLMConfigState = "ll2_active"
	LLMConfigUnknown   LLMConfigState = "unknown"
)

// DatasetState is the lifecycle state of a registered dataset
type DatasetState string

const (
	// DatasetRaw means API calls completed but no judge pass has run
	DatasetRaw DatasetState = "raw"
	// DatasetEvaluated means the judge pass attached per-result evaluations
	DatasetEvaluated DatasetState = "evaluated"
	// DatasetPromoted marks a former target that became the new baseline
	DatasetPromoted DatasetState = "promoted"
)

// TestMode selects how target inputs relate to baseline inputs
type TestMode string

const (
	// TestModeConsistency reuses the baseline's exact input set
	TestModeConsistency TestMode = "consistency"
	// TestModeAccuracy generates a fresh input set
	TestModeAccuracy TestMode = "accuracy"
)

// LLM version tags attached to datasets
const (
	VersionBaseline = "LL1"
	VersionTarget   = "LL2"
)

// LLMConfigInfo describes the configuration a target dataset was produced with
type LLMConfigInfo struct {
	Type  string `json:"type"`
	Model string `json:"model"`
}

// DatasetRecord is a reference to a persisted dataset file plus its lifecycle
// metadata. Baselines and targets share this shape; the target-only fields
// stay empty on baselines.
type DatasetRecord struct {
	Filename   string       `json:"filename"`
	InputsFile string       `json:"inputs_file"`
	NumInputs  int          `json:"num_inputs"`
	CreatedAt  time.Time    `json:"created_at"`
	State      DatasetState `json:"state"`
	LLMVersion string       `json:"llm_version"`
	// LLMConfig records the assistant configuration that produced the
	// dataset, so a later phase can tell whether the product was actually
	// reconfigured between runs.
	LLMConfig *LLMConfigInfo `json:"llm_config,omitempty"`

	// Target-only fields
	TestMode             TestMode `json:"test_mode,omitempty"`
	ComparedWithBaseline string   `json:"compared_with_baseline,omitempty"`
	// Stale is set when the baseline selection changed after this target was
	// created, so the recorded comparison pairing no longer matches.
	Stale bool `json:"stale,omitempty"`
}

// Clone returns a deep copy of the record
func (r *DatasetRecord) Clone() *DatasetRecord {
	if r == nil {
		return nil
	}
	out := *r
	if r.LLMConfig != nil {
		cfg := *r.LLMConfig
		out.LLMConfig = &cfg
	}
	return &out
}

// WorkflowState is the durable per-feature record of everything the phased
// workflow knows: registered baselines, the single live target, the selected
// baseline, and the current phase. One JSON file per feature.
type WorkflowState struct {
	Feature            string                    `json:"feature"`
	CurrentPhase       Phase                     `json:"current_phase"`
	LLMConfigState     LLMConfigState            `json:"llm_config_state"`
	Baselines          map[string]*DatasetRecord `json:"baselines"`
	SelectedBaselineID string                    `json:"selected_baseline_id,omitempty"`
	TargetDataset      *DatasetRecord            `json:"target_dataset,omitempty"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
}

// NewWorkflowState returns a fresh state for the given feature
func NewWorkflowState(feature string) *WorkflowState {
	now := time.Now()
	return &WorkflowState{
		Feature:        feature,
		CurrentPhase:   PhaseNotStarted,
		LLMConfigState: LLMConfigUnknown,
		Baselines:      make(map[string]*DatasetRecord),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// BaselineIDs returns baseline ids in creation order. Ids embed their
// creation timestamp, so ties fall back to lexicographic order.
func (s *WorkflowState) BaselineIDs() []string {
	ids := make([]string, 0, len(s.Baselines))
	for id := range s.Baselines {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := s.Baselines[ids[i]], s.Baselines[ids[j]]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return ids[i] < ids[j]
	})
	return ids
}

// SelectedBaseline returns the selected baseline record, or nil if no valid
// selection exists.
func (s *WorkflowState) SelectedBaseline() *DatasetRecord {
	if s.SelectedBaselineID == "" {
		return nil
	}
	return s.Baselines[s.SelectedBaselineID]
}
