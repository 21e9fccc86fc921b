// Package judge drives the LL3 model: a per-result rubric pass that scores
// dataset outputs, and a dataset-level comparison that returns a structured
// verdict mapped onto the shared comparison result contract.
package judge

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/dataset"
	"github.com/evalgate/evalgate/internal/llm"
	"github.com/evalgate/evalgate/internal/metrics"
	"github.com/evalgate/evalgate/internal/util"
	"github.com/evalgate/evalgate/pkg/models"
	"github.com/schollz/progressbar/v3"
)

// Evaluator scores every clean result in a dataset against the feature's
// rubric. Results stay in the dataset whether or not their evaluation
// succeeds; a failed evaluation is tallied, never fatal.
type Evaluator struct {
	gen       llm.Generator
	mgr       *dataset.Manager
	cfg       *config.Config
	fc        config.FeatureConfig
	feature   string
	collector *metrics.Collector
	logger    *slog.Logger
}

// NewEvaluator builds an evaluator for one feature. gen must be the
// judge-role model.
func NewEvaluator(gen llm.Generator, mgr *dataset.Manager, cfg *config.Config, feature string, collector *metrics.Collector, logger *slog.Logger) (*Evaluator, error) {
	fc, err := cfg.Feature(feature)
	if err != nil {
		return nil, err
	}
	return &Evaluator{
		gen:       gen,
		mgr:       mgr,
		cfg:       cfg,
		fc:        fc,
		feature:   feature,
		collector: collector,
		logger:    logger.With("component", "evaluator", "feature", feature),
	}, nil
}

type evalJob struct {
	id     string
	input  models.TestInput
	result *models.TestResult
}

// EvaluateDataset runs the rubric over the dataset at path and writes the
// evaluated copy into the feature directory. It returns the new file's path
// and the pass summary. Results that fail evaluation keep their output but
// carry no scores.
func (e *Evaluator) EvaluateDataset(ctx context.Context, path string) (string, *models.EvaluationSummary, error) {
	df, err := e.mgr.LoadDataset(path)
	if err != nil {
		return "", nil, err
	}

	summary := &models.EvaluationSummary{
		EvaluatorModel: e.gen.Model(),
		StartTime:      time.Now().UTC(),
	}

	inputs := make(map[string]models.TestInput, len(df.Inputs))
	for _, in := range df.Inputs {
		inputs[in.InputID] = in
	}

	jobs := e.eligibleJobs(df, inputs)
	e.logger.Info("Starting evaluation pass",
		"dataset", path,
		"results", len(df.Results),
		"eligible", len(jobs),
		"evaluator", e.gen.Model())

	workers := e.cfg.Workflow.EvalConcurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) && len(jobs) > 0 {
		workers = len(jobs)
	}
	if e.collector != nil {
		e.collector.SetActiveWorkers("evaluation", workers)
	}

	jobCh := make(chan evalJob)
	outcomeCh := make(chan error)

	var workerWG sync.WaitGroup
	for w := 0; w < workers; w++ {
		workerWG.Add(1)
		go e.worker(ctx, jobCh, outcomeCh, &workerWG)
	}

	var collectWG sync.WaitGroup
	collectWG.Add(1)
	go func() {
		defer collectWG.Done()
		bar := progressbar.Default(int64(len(jobs)), "Evaluating")
		for err := range outcomeCh {
			if err != nil {
				summary.EvaluationErrors++
			} else {
				summary.TotalEvaluated++
			}
			if e.collector != nil {
				e.collector.RecordEvaluation(e.feature, string(df.Metadata.DatasetType), err == nil)
			}
			_ = bar.Add(1)
		}
	}()

feed:
	for _, job := range jobs {
		select {
		case jobCh <- job:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobCh)
	workerWG.Wait()
	close(outcomeCh)
	collectWG.Wait()

	if e.collector != nil {
		e.collector.SetActiveWorkers("evaluation", 0)
	}
	if err := ctx.Err(); err != nil {
		return "", nil, fmt.Errorf("evaluation cancelled: %w", err)
	}

	summary.EndTime = time.Now().UTC()
	aggregateScores(df, summary)
	df.Metadata.Evaluation = summary

	evaluatedType := dataset.EvaluatedType(df.Metadata.DatasetType)
	outPath, err := e.mgr.SaveDataset(evaluatedType, df.Metadata.LLMVersion, df)
	if err != nil {
		return "", nil, err
	}
	e.mgr.Cleanup(evaluatedType, e.cfg.Workflow.KeepFiles)

	e.logger.Info("Evaluation pass complete",
		"evaluated", summary.TotalEvaluated,
		"errors", summary.EvaluationErrors,
		"average_score", summary.AverageScore,
		"path", outPath)
	return outPath, summary, nil
}

// eligibleJobs strips stale evaluations and selects the results the rubric
// will run on, in input-id order. Failed results and results without a
// matching input are preserved but never sent to the judge.
func (e *Evaluator) eligibleJobs(df *models.DatasetFile, inputs map[string]models.TestInput) []evalJob {
	ids := make([]string, 0, len(df.Results))
	for id := range df.Results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	jobs := make([]evalJob, 0, len(ids))
	for _, id := range ids {
		res := df.Results[id]
		if res == nil {
			continue
		}
		res.LL3Evaluation = nil // a re-run must not keep stale scores
		if res.Error != "" {
			e.logger.Debug("Skipping failed result", "input_id", id)
			continue
		}
		in, ok := inputs[id]
		if !ok {
			e.logger.Warn("No input found for result, leaving it unevaluated", "input_id", id)
			continue
		}
		jobs = append(jobs, evalJob{id: id, input: in, result: res})
	}
	return jobs
}

func (e *Evaluator) worker(ctx context.Context, jobs <-chan evalJob, outcomes chan<- error, wg *sync.WaitGroup) {
	defer wg.Done()
	for job := range jobs {
		eval, err := e.evaluateResult(ctx, job.input, job.result)
		if err != nil {
			e.logger.Warn("Evaluation failed", "input_id", job.id, "error", err)
			outcomes <- err
			continue
		}
		job.result.LL3Evaluation = eval
		outcomes <- nil
	}
}

func (e *Evaluator) evaluateResult(ctx context.Context, in models.TestInput, res *models.TestResult) (*models.LLMEvaluation, error) {
	prompt, err := e.rubricPrompt(in, res)
	if err != nil {
		return nil, fmt.Errorf("failed to render rubric template: %w", err)
	}

	resp, err := e.gen.Submit(ctx, llm.Request{Prompt: prompt, JSONMode: true})
	if err != nil {
		return nil, fmt.Errorf("rubric call failed: %w", err)
	}

	var eval models.LLMEvaluation
	if err := util.UnmarshalResponse(resp.Text, &eval); err != nil {
		return nil, fmt.Errorf("failed to parse rubric response: %w", err)
	}
	if eval.Scores == nil {
		eval.Scores = map[string]float64{}
	}
	eval.EvaluatorModel = e.gen.Model()
	eval.EvaluationTimestamp = time.Now().UTC()
	return &eval, nil
}

// rubricPrompt renders the evaluation template for one result. The criteria
// bullets and the JSON field stubs are derived from the feature's rubric so
// custom templates only need the placeholder slots.
func (e *Evaluator) rubricPrompt(in models.TestInput, res *models.TestResult) (string, error) {
	names := e.fc.CriteriaNames()
	bullets := make([]string, 0, len(names))
	scoreFields := make([]string, 0, len(names))
	feedbackFields := make([]string, 0, len(names))
	for i, name := range names {
		sep := ","
		if i == len(names)-1 {
			sep = ""
		}
		bullets = append(bullets, fmt.Sprintf("- %s: %s", name, e.fc.Criteria[name]))
		scoreFields = append(scoreFields, fmt.Sprintf("    %q: <0-10>%s", name, sep))
		feedbackFields = append(feedbackFields, fmt.Sprintf("    %q: \"<brief feedback>\"%s", name, sep))
	}

	return util.RenderTemplate(e.cfg.PromptTemplates.EvaluationRubric, map[string]interface{}{
		"UserInput":      in.Prompt,
		"Output":         res.APIOutput,
		"Criteria":       strings.Join(bullets, "\n"),
		"ScoreFields":    strings.Join(scoreFields, "\n"),
		"FeedbackFields": strings.Join(feedbackFields, "\n"),
	})
}

// aggregateScores fills the summary's score statistics from the evaluations
// attached to df.
func aggregateScores(df *models.DatasetFile, summary *models.EvaluationSummary) {
	var sum, low, high float64
	count := 0
	criterionSums := make(map[string]float64)
	criterionCounts := make(map[string]int)

	for _, res := range df.Results {
		if res == nil || res.LL3Evaluation == nil {
			continue
		}
		s := res.LL3Evaluation.OverallScore
		if count == 0 || s < low {
			low = s
		}
		if count == 0 || s > high {
			high = s
		}
		sum += s
		count++
		for name, cs := range res.LL3Evaluation.Scores {
			criterionSums[name] += cs
			criterionCounts[name]++
		}
	}
	if count == 0 {
		return
	}

	summary.AverageScore = sum / float64(count)
	summary.MinScore = low
	summary.MaxScore = high
	if len(criterionSums) > 0 {
		means := make(map[string]float64, len(criterionSums))
		for name, s := range criterionSums {
			means[name] = s / float64(criterionCounts[name])
		}
		summary.CriterionMeans = means
	}
}
