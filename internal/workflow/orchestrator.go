// Package workflow sequences the phased evaluation for one feature:
// baseline creation with LL1, target creation with LL2, and the comparison
// that recommends whether the candidate should replace the baseline. The
// orchestrator owns no durable state of its own; everything lives in the
// state store and the dataset files, so any phase can be re-run after a
// failure.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/evalgate/evalgate/internal/compare"
	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/creator"
	"github.com/evalgate/evalgate/internal/dataset"
	"github.com/evalgate/evalgate/internal/judge"
	"github.com/evalgate/evalgate/internal/llm"
	"github.com/evalgate/evalgate/internal/metrics"
	"github.com/evalgate/evalgate/internal/report"
	"github.com/evalgate/evalgate/internal/state"
	"github.com/evalgate/evalgate/pkg/models"
)

// Phase labels used in metrics and summary artifacts
const (
	phaseBaseline   = "baseline_creation"
	phaseTarget     = "target_creation"
	phaseComparison = "comparison"
)

// Phase1Options configures a baseline creation run
type Phase1Options struct {
	NumPatterns    int    // mock inputs to generate when no inputs file is given
	InputsFile     string // existing inputs file to reuse instead of generating
	SkipEvaluation bool   // leave the dataset raw, skipping the judge pass
}

// Phase2Options configures a target creation run
type Phase2Options struct {
	TestMode       models.TestMode // consistency (default) or accuracy
	SkipEvaluation bool
	NumPatterns    int    // accuracy mode only
	BaselineID     string // explicit baseline selection, skips the prompt
}

// Phase3Options configures a comparison run
type Phase3Options struct {
	Strategy string // judge (default) or analytic
}

// Status is a read-only snapshot of the workflow with a suggested next step
type Status struct {
	Feature          string                `json:"feature"`
	Status           string                `json:"status,omitempty"`
	CurrentPhase     models.Phase          `json:"current_phase,omitempty"`
	LLMConfigState   models.LLMConfigState `json:"llm_config_state,omitempty"`
	NumBaselines     int                   `json:"num_baselines"`
	BaselineIDs      []string              `json:"baseline_ids,omitempty"`
	SelectedBaseline string                `json:"selected_baseline,omitempty"`
	TargetExists     bool                  `json:"target_exists"`
	TargetStale      bool                  `json:"target_stale,omitempty"`
	LastUpdated      time.Time             `json:"last_updated,omitempty"`
	NextAction       string                `json:"next_action"`
}

// phaseSummary is the JSON artifact written after phases 1 and 2
type phaseSummary struct {
	Phase            string                `json:"phase"`
	Feature          string                `json:"feature"`
	BaselineID       string                `json:"baseline_id,omitempty"`
	BaselineInfo     *models.DatasetRecord `json:"baseline_info,omitempty"`
	TargetInfo       *models.DatasetRecord `json:"target_info,omitempty"`
	SelectedBaseline string                `json:"selected_baseline,omitempty"`
	NextSteps        []string              `json:"next_steps"`
}

// finalReport is the phase 3 artifact wrapping the comparison result with
// the records it compared.
type finalReport struct {
	Phase          string                   `json:"phase"`
	Feature        string                   `json:"feature"`
	BaselineID     string                   `json:"baseline_id"`
	BaselineInfo   *models.DatasetRecord    `json:"baseline_info"`
	TargetInfo     *models.DatasetRecord    `json:"target_info"`
	Strategy       string                   `json:"strategy"`
	Result         *models.ComparisonResult `json:"comparison_result"`
	Recommendation models.Recommendation    `json:"recommendation"`
	ReportPath     string                   `json:"report_path,omitempty"`
	Timestamp      time.Time                `json:"timestamp"`
}

// Orchestrator drives the three phases plus promotion and status for one
// feature.
type Orchestrator struct {
	feature   string
	cfg       *config.Config
	store     *state.Store
	mgr       *dataset.Manager
	creator   *creator.Creator
	evaluator *judge.Evaluator
	adapter   *judge.Adapter
	inputGen  *dataset.InputGenerator
	analytic  *compare.Comparator
	renderer  *report.Renderer
	collector *metrics.Collector
	prompter  *Prompter
	logger    *slog.Logger
}

// New wires the workflow collaborators for a feature. The assistant
// generator answers feature prompts during dataset creation; the judge
// generator serves input generation, the evaluation pass, and the
// comparison verdict.
func New(feature string, cfg *config.Config, store *state.Store, mgr *dataset.Manager, assistant, judgeGen llm.Generator, collector *metrics.Collector, prompter *Prompter, logger *slog.Logger) (*Orchestrator, error) {
	fc, err := cfg.Feature(feature)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		feature:   feature,
		cfg:       cfg,
		store:     store,
		mgr:       mgr,
		adapter:   judge.NewAdapter(judgeGen, cfg, logger),
		analytic:  compare.New(fc.CriteriaNames(), logger),
		renderer:  report.NewRenderer(mgr, cfg, logger),
		collector: collector,
		prompter:  prompter,
		logger:    logger.With("component", "workflow", "feature", feature),
	}

	if o.creator, err = creator.New(assistant, mgr, cfg, feature, collector, logger); err != nil {
		return nil, err
	}
	if o.evaluator, err = judge.NewEvaluator(judgeGen, mgr, cfg, feature, collector, logger); err != nil {
		return nil, err
	}
	if o.inputGen, err = dataset.NewInputGenerator(judgeGen, mgr, cfg, feature, collector, logger); err != nil {
		return nil, err
	}
	return o, nil
}

// RunPhase1 creates and registers a baseline dataset with LL1. When the
// feature already has baselines it asks before adding another. A cancelled
// run returns empty values with a nil error.
func (o *Orchestrator) RunPhase1(ctx context.Context, opts Phase1Options) (string, *models.DatasetRecord, error) {
	o.logger.Info("Phase 1: baseline creation with LL1",
		"feature", o.feature,
		"assistant", describeConfig(o.assistantConfig()),
		"skip_evaluation", opts.SkipEvaluation)

	ws, err := o.store.Load(o.feature)
	if err != nil {
		return "", nil, err
	}
	if ws != nil && len(ws.Baselines) > 0 {
		o.logger.Warn("Feature already has baselines", "count", len(ws.Baselines))
		if !o.prompter.Confirm("Create another baseline?") {
			o.logger.Info("Baseline creation cancelled")
			return "", nil, nil
		}
	}

	start := time.Now()
	id, rec, err := o.createBaseline(ctx, opts)
	o.recordPhase(phaseBaseline, start, err == nil)
	if err != nil {
		o.logger.Error("Phase 1 failed", "error", err)
		return id, rec, err
	}
	return id, rec, nil
}

func (o *Orchestrator) createBaseline(ctx context.Context, opts Phase1Options) (string, *models.DatasetRecord, error) {
	inputs, inputsFile, err := o.resolveInputs(ctx, opts.InputsFile, opts.NumPatterns)
	if err != nil {
		return "", nil, err
	}
	if len(inputs) == 0 {
		return "", nil, fmt.Errorf("no inputs available for baseline testing")
	}

	path, _, err := o.creator.CreateDataset(ctx, inputs, models.DatasetTypeBaseline)
	if err != nil {
		return "", nil, err
	}

	rec := &models.DatasetRecord{
		Filename:   path,
		InputsFile: inputsFile,
		NumInputs:  len(inputs),
		CreatedAt:  time.Now(),
		State:      models.DatasetRaw,
		LLMVersion: models.VersionBaseline,
		LLMConfig:  o.assistantConfig(),
	}

	if !opts.SkipEvaluation {
		evalPath, _, evalErr := o.evaluator.EvaluateDataset(ctx, path)
		if evalErr != nil {
			// The API calls already succeeded; register the raw dataset so
			// a later run can evaluate it instead of redoing the calls.
			id, addErr := o.store.AddBaseline(o.feature, rec)
			if addErr != nil {
				o.logger.Error("Failed to register unevaluated baseline", "error", addErr)
			} else {
				o.logger.Warn("Evaluation failed, baseline registered with raw state",
					"baseline_id", id)
			}
			return id, rec, fmt.Errorf("baseline evaluation failed: %w", evalErr)
		}
		rec.Filename = evalPath
		rec.State = models.DatasetEvaluated
	}

	id, err := o.store.AddBaseline(o.feature, rec)
	if err != nil {
		return "", nil, err
	}

	o.saveArtifact(dataset.TypePhase1Summary, &phaseSummary{
		Phase:        phaseBaseline,
		Feature:      o.feature,
		BaselineID:   id,
		BaselineInfo: rec,
		NextSteps: []string{
			"1. Configure the product with the LL2 candidate",
			fmt.Sprintf("2. Run 'evalgate target --feature %s' when ready", o.feature),
		},
	})

	o.logger.Info("Phase 1 completed",
		"baseline_id", id,
		"dataset", rec.Filename,
		"inputs", rec.NumInputs,
		"state", rec.State)
	return id, rec, nil
}

// RunPhase2 creates the target dataset with LL2 against a selected baseline.
// The selection persists before any further gating, so a run cancelled at a
// later confirmation still leaves the selection in place. A cancelled run
// returns a nil record with a nil error.
func (o *Orchestrator) RunPhase2(ctx context.Context, opts Phase2Options) (*models.DatasetRecord, error) {
	mode := opts.TestMode
	if mode == "" {
		mode = models.TestModeConsistency
	}
	if mode != models.TestModeConsistency && mode != models.TestModeAccuracy {
		return nil, fmt.Errorf("unknown test mode %q", mode)
	}

	o.logger.Info("Phase 2: target creation with LL2",
		"feature", o.feature,
		"test_mode", mode,
		"assistant", describeConfig(o.assistantConfig()),
		"skip_evaluation", opts.SkipEvaluation)

	ws, err := o.store.Load(o.feature)
	if err != nil {
		return nil, err
	}
	if ws == nil || len(ws.Baselines) == 0 {
		return nil, fmt.Errorf("no baselines found for feature %s, create a baseline first", o.feature)
	}

	selectedID, baseline, err := o.selectBaseline(ws, opts.BaselineID)
	if err != nil {
		return nil, err
	}
	if selectedID == "" {
		o.logger.Info("Baseline selection cancelled")
		return nil, nil
	}

	o.logger.Info("Selected baseline",
		"baseline_id", selectedID,
		"created", baseline.CreatedAt.Format(time.RFC3339),
		"inputs", baseline.NumInputs,
		"state", baseline.State)

	if err := o.store.SelectBaseline(o.feature, selectedID); err != nil {
		return nil, err
	}

	if baseline.State != models.DatasetEvaluated {
		o.logger.Warn("Selected baseline is not evaluated. Consider evaluating it first.")
		if !o.prompter.Confirm("Continue anyway?") {
			return nil, nil
		}
	}

	if !o.confirmReconfigured(baseline) {
		return nil, nil
	}

	start := time.Now()
	rec, err := o.createTarget(ctx, mode, selectedID, baseline, opts)
	o.recordPhase(phaseTarget, start, err == nil)
	if err != nil {
		o.logger.Error("Phase 2 failed", "error", err)
		return rec, err
	}
	return rec, nil
}

func (o *Orchestrator) createTarget(ctx context.Context, mode models.TestMode, selectedID string, baseline *models.DatasetRecord, opts Phase2Options) (*models.DatasetRecord, error) {
	var inputs []models.TestInput
	var inputsFile string
	var err error

	if mode == models.TestModeConsistency {
		o.logger.Info("Reusing baseline inputs for consistency testing",
			"inputs_file", baseline.InputsFile)
		inputs, err = o.mgr.LoadInputs(baseline.InputsFile)
		inputsFile = baseline.InputsFile
	} else {
		o.logger.Info("Generating fresh inputs for accuracy testing")
		inputs, inputsFile, err = o.inputGen.Generate(ctx, opts.NumPatterns)
	}
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no inputs available for target testing")
	}

	path, _, err := o.creator.CreateDataset(ctx, inputs, models.DatasetTypeTarget)
	if err != nil {
		return nil, err
	}

	rec := &models.DatasetRecord{
		Filename:             path,
		InputsFile:           inputsFile,
		NumInputs:            len(inputs),
		CreatedAt:            time.Now(),
		State:                models.DatasetRaw,
		LLMVersion:           models.VersionTarget,
		LLMConfig:            o.assistantConfig(),
		TestMode:             mode,
		ComparedWithBaseline: selectedID,
	}

	if !opts.SkipEvaluation {
		evalPath, _, evalErr := o.evaluator.EvaluateDataset(ctx, path)
		if evalErr != nil {
			if setErr := o.store.SetTarget(o.feature, rec); setErr != nil {
				o.logger.Error("Failed to register unevaluated target", "error", setErr)
			} else {
				o.logger.Warn("Evaluation failed, target registered with raw state")
			}
			return rec, fmt.Errorf("target evaluation failed: %w", evalErr)
		}
		rec.Filename = evalPath
		rec.State = models.DatasetEvaluated
	}

	if err := o.store.SetTarget(o.feature, rec); err != nil {
		return nil, err
	}

	o.saveArtifact(dataset.TypePhase2Summary, &phaseSummary{
		Phase:            phaseTarget,
		Feature:          o.feature,
		TargetInfo:       rec,
		SelectedBaseline: selectedID,
		NextSteps: []string{
			fmt.Sprintf("1. Run 'evalgate compare --feature %s' to compare datasets", o.feature),
		},
	})

	o.logger.Info("Phase 2 completed",
		"dataset", rec.Filename,
		"compared_with", selectedID,
		"test_mode", mode,
		"state", rec.State)
	return rec, nil
}

// RunPhase3 compares the selected baseline against the target. It is gated
// entirely by the state store's readiness check and performs no dataset I/O
// when any precondition fails. Each invocation re-runs the comparison; with
// the judge strategy repeat runs may differ.
func (o *Orchestrator) RunPhase3(ctx context.Context, opts Phase3Options) (*models.ComparisonResult, string, error) {
	strategy := opts.Strategy
	if strategy == "" {
		strategy = models.StrategyJudge
	}
	if strategy != models.StrategyJudge && strategy != models.StrategyAnalytic {
		return nil, "", fmt.Errorf("unknown comparison strategy %q", strategy)
	}

	o.logger.Info("Phase 3: dataset comparison", "feature", o.feature, "strategy", strategy)

	ready, reason, err := o.store.CheckReadyForComparison(o.feature)
	if err != nil {
		return nil, "", err
	}
	if !ready {
		o.logger.Error("Not ready for comparison", "reason", reason)
		return nil, "", fmt.Errorf("not ready for comparison: %s", reason)
	}

	start := time.Now()
	result, reportPath, err := o.compareDatasets(ctx, strategy)
	o.recordPhase(phaseComparison, start, err == nil)
	if err != nil {
		o.logger.Error("Phase 3 failed", "error", err)
		return nil, "", err
	}
	return result, reportPath, nil
}

func (o *Orchestrator) compareDatasets(ctx context.Context, strategy string) (*models.ComparisonResult, string, error) {
	ws, err := o.store.Load(o.feature)
	if err != nil {
		return nil, "", err
	}
	baseline := ws.SelectedBaseline()
	target := ws.TargetDataset

	mode := target.TestMode
	if mode == "" {
		mode = models.TestModeConsistency
	}

	o.logger.Info("Comparing datasets",
		"baseline", baseline.Filename,
		"baseline_id", ws.SelectedBaselineID,
		"target", target.Filename,
		"test_mode", mode)

	baseDF, err := o.mgr.LoadDataset(baseline.Filename)
	if err != nil {
		return nil, "", err
	}
	targDF, err := o.mgr.LoadDataset(target.Filename)
	if err != nil {
		return nil, "", err
	}

	var result *models.ComparisonResult
	if strategy == models.StrategyAnalytic {
		result = o.analytic.Compare(baseDF, targDF, o.feature, mode)
	} else {
		verdict := o.adapter.CompareDatasets(ctx, baseDF, targDF, o.feature, mode)
		result = o.adapter.ToComparisonResult(verdict, baseDF, targDF, o.feature, mode)
	}

	comparisonPath := o.mgr.GenerateFilename(dataset.TypeComparison, "")
	if err := o.mgr.SaveJSON(comparisonPath, result); err != nil {
		return nil, "", fmt.Errorf("failed to persist comparison result: %w", err)
	}
	o.mgr.Cleanup(dataset.TypeComparison, o.cfg.Workflow.KeepFiles)

	if err := o.store.MarkCompared(o.feature); err != nil {
		return nil, "", err
	}

	reportPath, err := o.renderer.Render(o.feature, result, baseline, target)
	if err != nil {
		return nil, "", fmt.Errorf("failed to render report: %w", err)
	}

	o.saveArtifact(dataset.TypeFinalReport, &finalReport{
		Phase:          phaseComparison,
		Feature:        o.feature,
		BaselineID:     ws.SelectedBaselineID,
		BaselineInfo:   baseline,
		TargetInfo:     target,
		Strategy:       strategy,
		Result:         result,
		Recommendation: result.Recommendation,
		ReportPath:     reportPath,
		Timestamp:      time.Now(),
	})

	writeRecommendation(o.prompter.Out(), result.Recommendation)
	fmt.Fprintf(o.prompter.Out(), "\nReport: %s\n", reportPath)

	o.logger.Info("Phase 3 completed",
		"comparison", comparisonPath,
		"report", reportPath,
		"decision", result.Recommendation.Decision,
		"confidence", result.Recommendation.Confidence)
	return result, reportPath, nil
}

// Promote turns the current target into a new baseline after confirmation.
// It returns false with a nil error when the operator declines, and an
// error when there is no target to promote.
func (o *Orchestrator) Promote() (bool, error) {
	ws, err := o.store.Load(o.feature)
	if err != nil {
		return false, err
	}
	if ws == nil || ws.TargetDataset == nil {
		return false, fmt.Errorf("no target dataset to promote for feature %s", o.feature)
	}

	o.logger.Warn("Promotion makes the current LL2 target the new baseline for future comparisons")
	if !o.prompter.Confirm("Are you sure you want to promote target to baseline?") {
		o.logger.Info("Promotion cancelled")
		return false, nil
	}

	id, err := o.store.PromoteTargetToBaseline(o.feature)
	if err != nil {
		return false, err
	}

	out := o.prompter.Out()
	fmt.Fprintln(out, "✅ Target successfully promoted to baseline")
	fmt.Fprintf(out, "New baseline id: %s\n", id)
	fmt.Fprintln(out, "The previous baseline has been archived")
	fmt.Fprintln(out, "You can now test a new LL2 configuration against this baseline")
	return true, nil
}

// Status reads the workflow state and derives the next-action hint. It
// never mutates state.
func (o *Orchestrator) Status() (*Status, error) {
	ws, err := o.store.Load(o.feature)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return &Status{
			Feature:    o.feature,
			Status:     "Not started",
			NextAction: "Run Phase 1 to create baseline",
		}, nil
	}

	st := &Status{
		Feature:          o.feature,
		CurrentPhase:     ws.CurrentPhase,
		LLMConfigState:   ws.LLMConfigState,
		NumBaselines:     len(ws.Baselines),
		BaselineIDs:      ws.BaselineIDs(),
		SelectedBaseline: ws.SelectedBaselineID,
		TargetExists:     ws.TargetDataset != nil,
		LastUpdated:      ws.UpdatedAt,
	}
	if ws.TargetDataset != nil {
		st.TargetStale = ws.TargetDataset.Stale
	}

	switch {
	case st.NumBaselines == 0:
		st.NextAction = "Run Phase 1 to create baseline(s)"
	case !st.TargetExists:
		st.NextAction = "Configure product with LL2, then run Phase 2"
	case st.TargetStale:
		st.NextAction = "Target is stale after baseline re-selection, run Phase 2 again"
	default:
		st.NextAction = "Run Phase 3 to compare datasets"
	}
	return st, nil
}

// resolveInputs loads the caller-supplied inputs file or generates a fresh
// mock set. The returned path is what downstream records reference.
func (o *Orchestrator) resolveInputs(ctx context.Context, inputsFile string, numPatterns int) ([]models.TestInput, string, error) {
	if inputsFile != "" {
		inputs, err := o.mgr.LoadInputs(inputsFile)
		if err != nil {
			return nil, "", err
		}
		o.logger.Info("Loaded inputs from file", "path", inputsFile, "count", len(inputs))
		return inputs, inputsFile, nil
	}
	return o.inputGen.Generate(ctx, numPatterns)
}

// selectBaseline resolves which baseline the target run compares against,
// either from an explicit id or interactively. An empty id with a nil error
// means the operator quit the selection.
func (o *Orchestrator) selectBaseline(ws *models.WorkflowState, explicit string) (string, *models.DatasetRecord, error) {
	if explicit != "" {
		rec, ok := ws.Baselines[explicit]
		if !ok {
			return "", nil, fmt.Errorf("unknown baseline id %q for feature %s", explicit, o.feature)
		}
		return explicit, rec, nil
	}

	ids := ws.BaselineIDs()
	writeBaselineTable(o.prompter.Out(), ws)
	idx, ok := o.prompter.Select("\nSelect baseline", len(ids))
	if !ok {
		return "", nil, nil
	}
	return ids[idx], ws.Baselines[ids[idx]], nil
}

// confirmReconfigured warns when the assistant configuration matches the
// one the baseline was created with. Identical configurations usually mean
// the operator forgot to switch the product to the LL2 candidate.
func (o *Orchestrator) confirmReconfigured(baseline *models.DatasetRecord) bool {
	current := o.assistantConfig()
	o.logger.Info("Configuration comparison",
		"baseline_ll1", describeConfig(baseline.LLMConfig),
		"candidate_ll2", describeConfig(current))

	if baseline.LLMConfig == nil || *baseline.LLMConfig != *current {
		o.logger.Info("Assistant configuration differs from the baseline, no product reconfiguration needed")
		return true
	}

	o.logger.Warn("Assistant configuration matches the baseline. Ensure the product is configured with LL2.")
	if !o.prompter.Confirm("Is the product configured differently for LL2?") {
		o.logger.Info("Configure the product for LL2 and try again")
		return false
	}
	return true
}

// saveArtifact persists an informational phase artifact. Failures are
// logged, never fatal: summaries exist for the operator, not the workflow.
func (o *Orchestrator) saveArtifact(dataType string, v any) {
	path := o.mgr.GenerateFilename(dataType, "")
	if err := o.mgr.SaveJSON(path, v); err != nil {
		o.logger.Warn("Failed to save phase artifact", "type", dataType, "error", err)
		return
	}
	o.mgr.Cleanup(dataType, o.cfg.Workflow.KeepFiles)
}

func (o *Orchestrator) recordPhase(phase string, start time.Time, success bool) {
	if o.collector != nil {
		o.collector.RecordPhase(phase, o.feature, time.Since(start), success)
	}
}

func (o *Orchestrator) assistantConfig() *models.LLMConfigInfo {
	mc := o.cfg.Models[config.RoleAssistant]
	return &models.LLMConfigInfo{Type: mc.Provider, Model: mc.ModelName}
}

func describeConfig(info *models.LLMConfigInfo) string {
	if info == nil {
		return "unknown"
	}
	return fmt.Sprintf("%s (%s)", info.Model, info.Type)
}
