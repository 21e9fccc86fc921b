package creator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/dataset"
	"github.com/evalgate/evalgate/internal/llm"
	"github.com/evalgate/evalgate/pkg/models"
)

type stubAssistant struct {
	mu      sync.Mutex
	respond func(req llm.Request) (string, error)
	reqs    []llm.Request
}

func (s *stubAssistant) Submit(_ context.Context, req llm.Request) (*llm.Response, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	respond := s.respond
	s.mu.Unlock()

	if respond == nil {
		return &llm.Response{Text: "stub output"}, nil
	}
	text, err := respond(req)
	if err != nil {
		return nil, err
	}
	return &llm.Response{Text: text}, nil
}

func (s *stubAssistant) Model() string { return "stub-assistant" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T) *dataset.Manager {
	t.Helper()
	m, err := dataset.NewManager(t.TempDir(), "summarize", testLogger())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func testConfig() *config.Config {
	return &config.Config{
		Workflow: config.WorkflowConfig{KeepFiles: 5},
		Features: map[string]config.FeatureConfig{
			"summarize": {
				PromptID:     "summarize_v2",
				Description:  "Summarizes long documents",
				SystemPrompt: "You summarize documents.",
				Criteria:     map[string]string{"accuracy": "factual fidelity"},
			},
		},
	}
}

func testInput(id string) models.TestInput {
	return models.TestInput{InputID: id, Feature: "summarize", Prompt: "Summarize document " + id}
}

func TestCreateDataset(t *testing.T) {
	mgr := newTestManager(t)
	stub := &stubAssistant{respond: func(req llm.Request) (string, error) {
		return "<think>planning the summary</think>Summary of " + req.Prompt, nil
	}}

	c, err := New(stub, mgr, testConfig(), "summarize", nil, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	inputs := []models.TestInput{testInput("gen_001"), testInput("gen_002"), testInput("gen_003")}
	path, summary, err := c.CreateDataset(context.Background(), inputs, models.DatasetTypeBaseline)
	if err != nil {
		t.Fatalf("CreateDataset() error = %v", err)
	}

	if !strings.Contains(filepath.Base(path), "baseline_raw_ll1") {
		t.Errorf("dataset filename = %q, want baseline_raw_ll1 segment", filepath.Base(path))
	}
	if summary.TotalInputs != 3 || summary.SuccessfulCalls != 3 || summary.FailedCalls != 0 {
		t.Errorf("summary = %+v, want 3/3/0", summary)
	}
	if len(summary.Errors) != 0 {
		t.Errorf("summary.Errors = %v, want none", summary.Errors)
	}
	if summary.EndTime.Before(summary.StartTime) {
		t.Error("EndTime precedes StartTime")
	}

	if got := stub.reqs[0].System; got != "You summarize documents." {
		t.Errorf("system prompt = %q, want the feature system prompt", got)
	}

	loaded, err := mgr.LoadDataset(path)
	if err != nil {
		t.Fatalf("LoadDataset() error = %v", err)
	}
	if loaded.Metadata.DatasetType != models.DatasetTypeBaseline ||
		loaded.Metadata.LLMVersion != models.VersionBaseline ||
		loaded.Metadata.TotalResults != 3 {
		t.Errorf("metadata = %+v, want baseline/LL1/3", loaded.Metadata)
	}
	res := loaded.Results["gen_002"]
	if res == nil {
		t.Fatal("result gen_002 missing")
	}
	if !strings.Contains(res.APIOutput, "<think>") {
		t.Error("APIOutput should keep the raw model text")
	}
	if strings.Contains(res.GUIOutput, "<think>") || !strings.Contains(res.GUIOutput, "Summary of") {
		t.Errorf("GUIOutput = %q, want think tags stripped", res.GUIOutput)
	}
	if res.LLMVersion != models.VersionBaseline {
		t.Errorf("result LLMVersion = %q, want LL1", res.LLMVersion)
	}
	if res.ResponseTime < 0 {
		t.Errorf("ResponseTime = %v, want >= 0", res.ResponseTime)
	}

	if _, err := mgr.FindLatest("*api_call_summary*"); err != nil {
		t.Errorf("call summary artifact missing: %v", err)
	}
}

func TestCreateDatasetPartialFailure(t *testing.T) {
	mgr := newTestManager(t)

	invalid := models.TestInput{InputID: "gen_002", Feature: "summarize"} // no prompt
	stub := &stubAssistant{respond: func(req llm.Request) (string, error) {
		if strings.Contains(req.Prompt, "gen_003") {
			return "", errors.New("boom")
		}
		return "fine output", nil
	}}

	c, err := New(stub, mgr, testConfig(), "summarize", nil, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	inputs := []models.TestInput{testInput("gen_001"), invalid, testInput("gen_003")}
	path, summary, err := c.CreateDataset(context.Background(), inputs, models.DatasetTypeBaseline)
	if err != nil {
		t.Fatalf("CreateDataset() error = %v, want success with partial failures", err)
	}

	if summary.SuccessfulCalls != 1 || summary.FailedCalls != 2 {
		t.Errorf("summary = %d ok / %d failed, want 1/2", summary.SuccessfulCalls, summary.FailedCalls)
	}
	if len(summary.Errors) != 2 {
		t.Fatalf("summary.Errors = %v, want 2 entries", summary.Errors)
	}
	if summary.Errors[0].InputID != "gen_002" || summary.Errors[0].Error != "Invalid input data for gen_002" {
		t.Errorf("first error = %+v, want invalid-input message", summary.Errors[0])
	}
	if summary.Errors[1].InputID != "gen_003" || summary.Errors[1].Error != "API error: boom" {
		t.Errorf("second error = %+v, want API error message", summary.Errors[1])
	}

	loaded, err := mgr.LoadDataset(path)
	if err != nil {
		t.Fatalf("LoadDataset() error = %v", err)
	}
	if len(loaded.Results) != 1 {
		t.Fatalf("results = %d, want only the successful input", len(loaded.Results))
	}
	if loaded.Results["gen_001"] == nil {
		t.Error("successful result missing")
	}
	if len(loaded.Inputs) != 3 {
		t.Errorf("inputs embedded = %d, want all 3 for traceability", len(loaded.Inputs))
	}
}

func TestCreateDatasetAllFail(t *testing.T) {
	mgr := newTestManager(t)
	stub := &stubAssistant{respond: func(llm.Request) (string, error) {
		return "", errors.New("backend down")
	}}

	c, err := New(stub, mgr, testConfig(), "summarize", nil, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	inputs := []models.TestInput{testInput("gen_001"), testInput("gen_002")}
	path, summary, err := c.CreateDataset(context.Background(), inputs, models.DatasetTypeBaseline)
	if err == nil {
		t.Fatal("CreateDataset() should fail when every call fails")
	}
	if !strings.Contains(err.Error(), "all 2 assistant calls failed") {
		t.Errorf("error = %v, want all-calls-failed message", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty on total failure", path)
	}
	if summary.FailedCalls != 2 {
		t.Errorf("FailedCalls = %d, want 2", summary.FailedCalls)
	}

	matches, _ := filepath.Glob(filepath.Join(mgr.Dir(), "*baseline_raw*"))
	if len(matches) != 0 {
		t.Errorf("dataset files = %v, want none written", matches)
	}
}

func TestCreateDatasetTargetRole(t *testing.T) {
	mgr := newTestManager(t)
	c, err := New(&stubAssistant{}, mgr, testConfig(), "summarize", nil, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	path, _, err := c.CreateDataset(context.Background(),
		[]models.TestInput{testInput("gen_001")}, models.DatasetTypeTarget)
	if err != nil {
		t.Fatalf("CreateDataset() error = %v", err)
	}
	if !strings.Contains(filepath.Base(path), "target_raw_ll2") {
		t.Errorf("dataset filename = %q, want target_raw_ll2 segment", filepath.Base(path))
	}

	loaded, err := mgr.LoadDataset(path)
	if err != nil {
		t.Fatalf("LoadDataset() error = %v", err)
	}
	if loaded.Results["gen_001"].LLMVersion != models.VersionTarget {
		t.Errorf("LLMVersion = %q, want LL2", loaded.Results["gen_001"].LLMVersion)
	}
}

func TestCreateDatasetCancelled(t *testing.T) {
	mgr := newTestManager(t)
	c, err := New(&stubAssistant{}, mgr, testConfig(), "summarize", nil, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = c.CreateDataset(ctx, []models.TestInput{testInput("gen_001")}, models.DatasetTypeBaseline)
	if err == nil || !strings.Contains(err.Error(), "cancelled") {
		t.Errorf("error = %v, want cancellation", err)
	}
}

func TestNewUnknownFeature(t *testing.T) {
	mgr := newTestManager(t)
	if _, err := New(&stubAssistant{}, mgr, testConfig(), "nonexistent", nil, testLogger()); err == nil {
		t.Fatal("New() with unknown feature should error")
	}
}
