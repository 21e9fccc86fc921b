package models

import (
	"sort"
	"time"
)

// DatasetType distinguishes the role a dataset file plays
type DatasetType string

const (
	DatasetTypeBaseline DatasetType = "baseline"
	DatasetTypeTarget   DatasetType = "target"
)

// TestInput is a single prompt to run through the assistant feature
type TestInput struct {
	InputID  string         `json:"input_id"`
	Feature  string         `json:"feature"`
	Prompt   string         `json:"prompt"`
	Config   map[string]any `json:"config,omitempty"`
	PromptID string         `json:"prompt_id,omitempty"`
}

// Valid reports whether the input carries the fields every downstream
// consumer depends on.
func (in *TestInput) Valid() bool {
	return in.InputID != "" && in.Feature != "" && in.Prompt != ""
}

// LLMEvaluation is the judge's per-result verdict attached after an
// evaluation pass.
type LLMEvaluation struct {
	Scores              map[string]float64 `json:"scores"`
	Feedback            map[string]string  `json:"feedback,omitempty"`
	OverallAssessment   string             `json:"overall_assessment,omitempty"`
	OverallScore        float64            `json:"overall_score"`
	Suggestions         []string           `json:"suggestions,omitempty"`
	MeetsRequirements   bool               `json:"meets_requirements"`
	EvaluatorModel      string             `json:"evaluator_model,omitempty"`
	EvaluationTimestamp time.Time          `json:"evaluation_timestamp,omitempty"`
}

// HumanValidation is an optional reviewer verdict merged back from a filled
// validation template.
type HumanValidation struct {
	Reviewer    string    `json:"reviewer,omitempty"`
	Approved    *bool     `json:"approved,omitempty"`
	Issues      []string  `json:"issues,omitempty"`
	Comments    string    `json:"comments,omitempty"`
	ReviewedAt  time.Time `json:"reviewed_at,omitempty"`
	ScoreAdjust float64   `json:"score_adjust,omitempty"`
}

// TestResult is the outcome of running one input through the assistant
type TestResult struct {
	InputID         string           `json:"input_id"`
	Feature         string           `json:"feature"`
	UserInput       string           `json:"user_input"`
	APIInput        string           `json:"api_input"`
	Config          map[string]any   `json:"config,omitempty"`
	APIOutput       string           `json:"api_output"`
	GUIOutput       string           `json:"gui_output"`
	LLMVersion      string           `json:"llm_version"`
	Timestamp       time.Time        `json:"timestamp"`
	ResponseTime    float64          `json:"response_time"`
	LL3Evaluation   *LLMEvaluation   `json:"ll3_evaluation,omitempty"`
	HumanValidation *HumanValidation `json:"human_validation,omitempty"`
	Error           string           `json:"error,omitempty"`
}

// EvaluationSummary aggregates a judge pass over one dataset
type EvaluationSummary struct {
	TotalEvaluated   int                `json:"total_evaluated"`
	EvaluationErrors int                `json:"evaluation_errors"`
	AverageScore     float64            `json:"average_score"`
	MinScore         float64            `json:"min_score"`
	MaxScore         float64            `json:"max_score"`
	CriterionMeans   map[string]float64 `json:"criterion_means,omitempty"`
	EvaluatorModel   string             `json:"evaluator_model,omitempty"`
	StartTime        time.Time          `json:"start_time"`
	EndTime          time.Time          `json:"end_time"`
}

// DatasetMetadata describes a dataset file
type DatasetMetadata struct {
	Feature           string             `json:"feature"`
	LLMVersion        string             `json:"llm_version"`
	DatasetType       DatasetType        `json:"dataset_type"`
	CreationTimestamp time.Time          `json:"creation_timestamp"`
	TotalResults      int                `json:"total_results"`
	Evaluation        *EvaluationSummary `json:"evaluation_summary,omitempty"`
}

// DatasetFile is the on-disk unit pairing inputs with keyed results.
// Results are keyed by input id; input order carries no meaning once keyed.
type DatasetFile struct {
	Metadata DatasetMetadata        `json:"metadata"`
	Inputs   []TestInput            `json:"inputs"`
	Results  map[string]*TestResult `json:"results"`
}

// CommonInputIDs returns the input ids present in both result maps, sorted
// so downstream aggregation is deterministic.
func CommonInputIDs(a, b *DatasetFile) []string {
	ids := make([]string, 0, len(a.Results))
	for id := range a.Results {
		if _, ok := b.Results[id]; ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// CallSummary accounts for one dataset-creation run. A run counts as
// successful when at least one input succeeded.
type CallSummary struct {
	TotalInputs     int         `json:"total_inputs"`
	SuccessfulCalls int         `json:"successful_calls"`
	FailedCalls     int         `json:"failed_calls"`
	Errors          []CallError `json:"errors,omitempty"`
	StartTime       time.Time   `json:"start_time"`
	EndTime         time.Time   `json:"end_time"`
}

// CallError records a single input failure inside a creation run
type CallError struct {
	InputID string `json:"input_id"`
	Error   string `json:"error"`
}
