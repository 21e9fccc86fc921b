// Package validation handles the human review loop: it turns a dataset into
// a reviewer-facing template and merges a filled template back into the
// dataset as human_validation entries.
package validation

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/evalgate/evalgate/internal/dataset"
	"github.com/evalgate/evalgate/pkg/models"
)

// Template is the artifact a reviewer fills in. One entry per result; the
// assessment fields start empty.
type Template struct {
	Feature   string    `json:"feature"`
	CreatedAt time.Time `json:"validation_timestamp"`
	Validator string    `json:"validator"`
	Results   []Entry   `json:"results"`
}

// Entry pairs one result with its reviewer assessment
type Entry struct {
	InputID    string                `json:"input_id"`
	UserInput  string                `json:"user_input"`
	APIOutput  string                `json:"api_output"`
	LL3        *models.LLMEvaluation `json:"ll3_evaluation,omitempty"`
	Assessment Assessment            `json:"human_assessment"`
}

// Assessment mirrors models.HumanValidation minus the merge-time fields
type Assessment struct {
	Approved    *bool    `json:"approved"`
	ScoreAdjust float64  `json:"score_adjust"`
	Issues      []string `json:"issues"`
	Comments    string   `json:"comments"`
}

// filled reports whether a reviewer touched this assessment
func (a Assessment) filled() bool {
	return a.Approved != nil || a.ScoreAdjust != 0 || len(a.Issues) > 0 || a.Comments != ""
}

// Service creates and merges validation templates for one feature
type Service struct {
	mgr    *dataset.Manager
	logger *slog.Logger
}

// NewService builds the validation service
func NewService(mgr *dataset.Manager, logger *slog.Logger) *Service {
	return &Service{
		mgr:    mgr,
		logger: logger.With("component", "validation"),
	}
}

// CreateTemplate writes a review template for the dataset at path and
// returns the template's path. Entries are ordered by input id.
func (s *Service) CreateTemplate(path string) (string, error) {
	df, err := s.mgr.LoadDataset(path)
	if err != nil {
		return "", err
	}

	ids := make([]string, 0, len(df.Results))
	for id := range df.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tpl := &Template{
		Feature:   df.Metadata.Feature,
		CreatedAt: time.Now().UTC(),
		Results:   make([]Entry, 0, len(ids)),
	}
	for _, id := range ids {
		res := df.Results[id]
		if res == nil {
			continue
		}
		tpl.Results = append(tpl.Results, Entry{
			InputID:   id,
			UserInput: res.UserInput,
			APIOutput: res.APIOutput,
			LL3:       res.LL3Evaluation,
			Assessment: Assessment{
				Issues: []string{},
			},
		})
	}

	tplPath := s.mgr.GenerateFilename(dataset.TypeValidationForm, "")
	if err := s.mgr.SaveJSON(tplPath, tpl); err != nil {
		return "", err
	}
	s.logger.Info("Validation template written", "path", tplPath, "entries", len(tpl.Results))
	return tplPath, nil
}

// Merge applies a filled template to the dataset at datasetPath and writes
// the merged copy as a human_validated file. Untouched entries are skipped;
// entries whose input id has no result are logged and dropped.
func (s *Service) Merge(datasetPath, templatePath string) (string, error) {
	df, err := s.mgr.LoadDataset(datasetPath)
	if err != nil {
		return "", err
	}

	var tpl Template
	if err := s.mgr.LoadJSON(templatePath, &tpl); err != nil {
		return "", err
	}
	if tpl.Feature != "" && tpl.Feature != df.Metadata.Feature {
		return "", fmt.Errorf("template feature %q does not match dataset feature %q",
			tpl.Feature, df.Metadata.Feature)
	}

	now := time.Now().UTC()
	merged := 0
	for _, entry := range tpl.Results {
		if !entry.Assessment.filled() {
			continue
		}
		res, ok := df.Results[entry.InputID]
		if !ok || res == nil {
			s.logger.Warn("Template entry has no matching result", "input_id", entry.InputID)
			continue
		}
		res.HumanValidation = &models.HumanValidation{
			Reviewer:    tpl.Validator,
			Approved:    entry.Assessment.Approved,
			Issues:      entry.Assessment.Issues,
			Comments:    entry.Assessment.Comments,
			ReviewedAt:  now,
			ScoreAdjust: entry.Assessment.ScoreAdjust,
		}
		merged++
	}
	if merged == 0 {
		return "", fmt.Errorf("template %s contains no filled assessments", templatePath)
	}

	outPath, err := s.mgr.SaveDataset(dataset.TypeHumanValidated, df.Metadata.LLMVersion, df)
	if err != nil {
		return "", err
	}
	s.logger.Info("Validation merged", "path", outPath, "reviewed", merged)
	return outPath, nil
}
