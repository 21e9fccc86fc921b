package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/evalgate/evalgate/internal/config"
	"github.com/evalgate/evalgate/internal/dataset"
	"github.com/evalgate/evalgate/internal/llm"
	"github.com/evalgate/evalgate/internal/metrics"
	"github.com/evalgate/evalgate/internal/state"
	"github.com/evalgate/evalgate/internal/validation"
	"github.com/evalgate/evalgate/internal/workflow"
	"github.com/evalgate/evalgate/internal/workspace"
	"github.com/evalgate/evalgate/pkg/models"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configPath  string
	envFile     string
	feature     string
	metricsAddr string
	assumeYes   bool
	verbose     bool

	numPatterns  int
	inputsFile   string
	skipEval     bool
	testMode     string
	baselineID   string
	strategy     string
	statusJSON   bool
	datasetPath  string
	templatePath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "evalgate",
		Short: "evalgate - phased LLM configuration evaluation",
		Long: `evalgate compares two configurations of an AI code-assistance feature by
running matched prompt sets through both and scoring every output with an
independent judge model.

The workflow runs in three phases with manual product reconfiguration
in between:
1. baseline - create the LL1 baseline dataset
2. target   - create the LL2 candidate dataset against a selected baseline
3. compare  - compare both datasets and produce a recommendation

A favorable comparison can then promote the target to become the new
baseline.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to environment file")
	rootCmd.PersistentFlags().StringVar(&feature, "feature", "generate_code", "Feature under evaluation")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address (e.g. :9090)")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "Answer yes to all confirmations")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	baselineCmd := &cobra.Command{
		Use:   "baseline",
		Short: "Phase 1: create a baseline dataset with LL1",
		Long: `Run every test input through the assistant under its current (LL1)
configuration, optionally evaluate the outputs with the judge, and register
the result as a new baseline. Inputs come from --inputs-file or are
generated as a fresh mock set.`,
		RunE: runBaseline,
	}
	baselineCmd.Flags().IntVar(&numPatterns, "num-patterns", 0, "Mock inputs to generate (default from config)")
	baselineCmd.Flags().StringVar(&inputsFile, "inputs-file", "", "Reuse an existing inputs file instead of generating")
	baselineCmd.Flags().BoolVar(&skipEval, "skip-evaluation", false, "Leave the dataset raw, skipping the judge pass")

	targetCmd := &cobra.Command{
		Use:   "target",
		Short: "Phase 2: create a target dataset with LL2",
		Long: `Select a baseline, then run the assistant under the candidate (LL2)
configuration. Consistency mode reuses the baseline's exact inputs so
identical prompts hit both configurations; accuracy mode generates a fresh
input set.`,
		RunE: runTarget,
	}
	targetCmd.Flags().StringVar(&testMode, "mode", "consistency", "Test mode: consistency or accuracy")
	targetCmd.Flags().StringVar(&baselineID, "baseline", "", "Baseline id to compare against (skips the selection prompt)")
	targetCmd.Flags().IntVar(&numPatterns, "num-patterns", 0, "Mock inputs to generate in accuracy mode (default from config)")
	targetCmd.Flags().BoolVar(&skipEval, "skip-evaluation", false, "Leave the dataset raw, skipping the judge pass")

	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "Phase 3: compare baseline and target datasets",
		Long: `Compare the selected baseline against the target and produce a
recommendation. Both datasets must be evaluated first. The judge strategy
delegates scoring to the LL3 model; the analytic strategy computes scores
and similarity locally.`,
		RunE: runCompare,
	}
	compareCmd.Flags().StringVar(&strategy, "strategy", "judge", "Comparison strategy: judge or analytic")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the workflow state and suggested next action",
		RunE:  runStatus,
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print status as JSON")

	promoteCmd := &cobra.Command{
		Use:   "promote",
		Short: "Promote the current target to become the new baseline",
		RunE:  runPromote,
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Manage human validation of evaluated datasets",
	}

	templateCmd := &cobra.Command{
		Use:   "template",
		Short: "Generate a reviewer template from a dataset",
		RunE:  runValidateTemplate,
	}
	templateCmd.Flags().StringVar(&datasetPath, "dataset", "", "Dataset file to review")
	_ = templateCmd.MarkFlagRequired("dataset")

	applyCmd := &cobra.Command{
		Use:   "apply",
		Short: "Merge a filled reviewer template back into its dataset",
		RunE:  runValidateApply,
	}
	applyCmd.Flags().StringVar(&datasetPath, "dataset", "", "Dataset file the template was generated from")
	applyCmd.Flags().StringVar(&templatePath, "template", "", "Filled template file")
	_ = applyCmd.MarkFlagRequired("dataset")
	_ = applyCmd.MarkFlagRequired("template")

	validateCmd.AddCommand(templateCmd)
	validateCmd.AddCommand(applyCmd)

	rootCmd.AddCommand(baselineCmd)
	rootCmd.AddCommand(targetCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(validateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles the collaborators every command shares
type app struct {
	cfg       *config.Config
	secrets   *config.Secrets
	logger    *slog.Logger
	logFile   *os.File
	store     *state.Store
	mgr       *dataset.Manager
	collector *metrics.Collector
	orch      *workflow.Orchestrator
}

// setup loads configuration and secrets, prepares the workspace and logger,
// and wires the orchestrator. Commands that never call a model pass
// needModels=false so they work without API credentials.
func setup(ctx context.Context, needModels bool) (*app, error) {
	if envFile != "" {
		if err := loadEnvFile(envFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load env file: %v\n", err)
		}
	}

	cfg, secrets, err := config.Load(ctx, configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level, err := workspace.ParseLevel(cfg.Workflow.LogLevel)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}

	ws, err := workspace.New(cfg.Workflow.DataDir)
	if err != nil {
		return nil, err
	}
	logger, logFile, err := ws.SetupLogger(level)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}

	logger.Info("evalgate starting",
		"version", Version,
		"config", configPath,
		"feature", feature,
		"log_file", ws.LogPath())

	collector := metrics.NewCollector(logger)
	if metricsAddr != "" {
		go collector.Serve(metricsAddr)
	}

	store, err := state.NewStore(ws.StateDir(), logger)
	if err != nil {
		return nil, err
	}
	mgr, err := dataset.NewManager(cfg.Workflow.DataDir, feature, logger)
	if err != nil {
		return nil, err
	}

	var assistant, judgeGen llm.Generator
	if needModels {
		if assistant, err = llm.New(ctx, config.RoleAssistant, cfg.Models[config.RoleAssistant], secrets, logger); err != nil {
			return nil, err
		}
		if judgeGen, err = llm.New(ctx, config.RoleJudge, cfg.Models[config.RoleJudge], secrets, logger); err != nil {
			return nil, err
		}
	}

	prompter := workflow.NewPrompter(os.Stdin, os.Stdout, assumeYes)
	orch, err := workflow.New(feature, cfg, store, mgr, assistant, judgeGen, collector, prompter, logger)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:       cfg,
		secrets:   secrets,
		logger:    logger,
		logFile:   logFile,
		store:     store,
		mgr:       mgr,
		collector: collector,
		orch:      orch,
	}, nil
}

func (a *app) close() {
	if a.logFile != nil {
		_ = a.logFile.Sync()
		_ = a.logFile.Close()
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runBaseline(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	patterns := numPatterns
	if patterns == 0 {
		patterns = a.cfg.Workflow.NumPatterns
	}

	id, _, err := a.orch.RunPhase1(ctx, workflow.Phase1Options{
		NumPatterns:    patterns,
		InputsFile:     inputsFile,
		SkipEvaluation: skipEval,
	})
	if err != nil {
		return err
	}
	if id != "" {
		fmt.Printf("Baseline created: %s\n", id)
	}
	return nil
}

func runTarget(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	patterns := numPatterns
	if patterns == 0 {
		patterns = a.cfg.Workflow.NumPatterns
	}

	rec, err := a.orch.RunPhase2(ctx, workflow.Phase2Options{
		TestMode:       models.TestMode(testMode),
		SkipEvaluation: skipEval,
		NumPatterns:    patterns,
		BaselineID:     baselineID,
	})
	if err != nil {
		return err
	}
	if rec != nil {
		fmt.Printf("Target created: %s\n", rec.Filename)
	}
	return nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()

	_, _, err = a.orch.RunPhase3(ctx, workflow.Phase3Options{Strategy: strategy})
	return err
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()

	st, err := a.orch.Status()
	if err != nil {
		return err
	}

	if statusJSON {
		data, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	workflow.WriteStatus(os.Stdout, st)
	return nil
}

func runPromote(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()

	_, err = a.orch.Promote()
	return err
}

func runValidateTemplate(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()

	svc := validation.NewService(a.mgr, a.logger)
	path, err := svc.CreateTemplate(datasetPath)
	if err != nil {
		return err
	}
	fmt.Printf("Validation template created: %s\n", path)
	fmt.Println("Fill in the assessment fields, then run 'evalgate validate apply'")
	return nil
}

func runValidateApply(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()

	svc := validation.NewService(a.mgr, a.logger)
	path, err := svc.Merge(datasetPath, templatePath)
	if err != nil {
		return err
	}
	fmt.Printf("Human-validated dataset written: %s\n", path)
	return nil
}

// loadEnvFile loads KEY=VALUE pairs from a file into the environment so
// config.LoadSecrets picks them up
func loadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return nil
}
