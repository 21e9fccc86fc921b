package config

import (
	"fmt"
	"sort"
)

// Model roles. Every config must define both: the assistant role answers
// feature prompts (LL1 or LL2 depending on the active configuration), and
// the judge role evaluates and compares datasets (LL3).
const (
	RoleAssistant = "assistant"
	RoleJudge     = "judge"
)

// Supported backend providers. The set is closed: selection happens once at
// client construction, never per request.
const (
	ProviderOpenAI    = "openai" // any OpenAI-compatible endpoint via base_url
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

const (
	// DefaultNumPatterns is the number of mock inputs generated per phase
	DefaultNumPatterns = 10
	// DefaultKeepFiles is how many files of each artifact kind are retained
	DefaultKeepFiles = 10
	// DefaultRateLimitPerMinute is the per-model request budget
	DefaultRateLimitPerMinute = 60
	// DefaultMaxRetries is the retry budget for failed API calls
	DefaultMaxRetries = 3
	// DefaultHTTPTimeoutSeconds is the per-request HTTP timeout
	DefaultHTTPTimeoutSeconds = 30
	// DefaultMaxOutputTokens caps model responses
	DefaultMaxOutputTokens = 4096
	// DefaultMaxPromptChars is the prompt budget before comparison prompts
	// fall back to sampled dataset excerpts
	DefaultMaxPromptChars = 120000
	// MaxNumPatterns is the upper bound on generated inputs per run
	MaxNumPatterns = 500
	// MaxEvalConcurrency is the maximum allowed evaluation concurrency
	MaxEvalConcurrency = 64
)

// Config represents the complete application configuration
type Config struct {
	Workflow        WorkflowConfig           `toml:"workflow"`
	Models          map[string]ModelConfig   `toml:"models"`
	Features        map[string]FeatureConfig `toml:"features"`
	PromptTemplates PromptTemplates          `toml:"prompt_templates"`
}

// WorkflowConfig holds workspace and batch settings
type WorkflowConfig struct {
	DataDir         string `toml:"data_dir"`         // Root directory for datasets, state, and reports
	NumPatterns     int    `toml:"num_patterns"`     // Mock inputs per generation run (default 10)
	KeepFiles       int    `toml:"keep_files"`       // Files retained per artifact kind (default 10)
	EvalConcurrency int    `toml:"eval_concurrency"` // Parallel judge calls during evaluation (default 1 = sequential)
	LogLevel        string `toml:"log_level"`        // debug, info, warn, error (default info)
}

// ModelConfig represents configuration for a single model endpoint
type ModelConfig struct {
	Provider           string  `toml:"provider"`              // openai, gemini, or anthropic
	BaseURL            string  `toml:"base_url"`              // Required for the openai provider, ignored otherwise
	ModelName          string  `toml:"model_name"`
	Temperature        float64 `toml:"temperature"`
	TopP               float64 `toml:"top_p"`
	MaxOutputTokens    int     `toml:"max_output_tokens"`
	MaxPromptChars     int     `toml:"max_prompt_chars"`      // Prompt budget before sampling fallback (default 120000)
	RateLimitPerMinute int     `toml:"rate_limit_per_minute"` // Requests per minute (default 60)
	MaxRetries         int     `toml:"max_retries"`           // Retry attempts for transient failures (default 3)
	MaxBackoffSeconds  int     `toml:"max_backoff_seconds"`   // Max backoff duration (default 120)
	HTTPTimeoutSeconds int     `toml:"http_timeout_seconds"`  // Per-request timeout (default 30)
	UseJSONMode        bool    `toml:"use_json_mode"`         // Request structured JSON output where the provider supports it
}

// FeatureConfig describes one assistant feature under evaluation.
// Criteria keys are rubric dimensions scored 0-10 by the judge; values
// describe what the dimension measures.
type FeatureConfig struct {
	PromptID      string            `toml:"prompt_id"`      // Stable identifier recorded in datasets
	Description   string            `toml:"description"`    // One-line summary shown in status output
	SystemPrompt  string            `toml:"system_prompt"`  // System prompt sent with every assistant call
	Criteria      map[string]string `toml:"criteria"`       // Rubric dimension -> description
	InputGuidance []string          `toml:"input_guidance"` // Scenario hints embedded in the input generation prompt
}

// PromptTemplates holds all customizable prompt templates
type PromptTemplates struct {
	InputGeneration  string `toml:"input_generation"`  // Template for mock input generation
	EvaluationRubric string `toml:"evaluation_rubric"` // Template for per-result rubric scoring
	Comparison       string `toml:"comparison"`        // Template for the dataset comparison verdict
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Workflow.DataDir == "" {
		return fmt.Errorf("workflow.data_dir is required")
	}
	if c.Workflow.NumPatterns < 1 {
		return fmt.Errorf("workflow.num_patterns must be at least 1 (got %d)", c.Workflow.NumPatterns)
	}
	if c.Workflow.NumPatterns > MaxNumPatterns {
		return fmt.Errorf("workflow.num_patterns must not exceed %d (got %d)", MaxNumPatterns, c.Workflow.NumPatterns)
	}
	if c.Workflow.KeepFiles < 1 {
		return fmt.Errorf("workflow.keep_files must be at least 1 (got %d)", c.Workflow.KeepFiles)
	}
	if c.Workflow.EvalConcurrency < 1 || c.Workflow.EvalConcurrency > MaxEvalConcurrency {
		return fmt.Errorf("workflow.eval_concurrency must be between 1 and %d (got %d)", MaxEvalConcurrency, c.Workflow.EvalConcurrency)
	}
	switch c.Workflow.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("workflow.log_level must be one of: debug, info, warn, error (got %s)", c.Workflow.LogLevel)
	}

	for _, role := range []string{RoleAssistant, RoleJudge} {
		if _, ok := c.Models[role]; !ok {
			return fmt.Errorf("models.%s is required", role)
		}
	}
	for name, mc := range c.Models {
		if err := validateModelConfig(name, mc); err != nil {
			return err
		}
	}

	if len(c.Features) == 0 {
		return fmt.Errorf("at least one feature must be configured")
	}
	for name, fc := range c.Features {
		if err := validateFeatureConfig(name, fc); err != nil {
			return err
		}
	}

	return nil
}

func validateModelConfig(name string, mc ModelConfig) error {
	switch mc.Provider {
	case ProviderOpenAI:
		if mc.BaseURL == "" {
			return fmt.Errorf("models.%s.base_url is required for the openai provider", name)
		}
	case ProviderGemini, ProviderAnthropic:
	default:
		return fmt.Errorf("models.%s.provider must be one of: openai, gemini, anthropic (got %s)", name, mc.Provider)
	}
	if mc.ModelName == "" {
		return fmt.Errorf("models.%s.model_name is required", name)
	}
	if mc.Temperature < 0 || mc.Temperature > 2 {
		return fmt.Errorf("models.%s.temperature must be between 0 and 2", name)
	}
	if mc.TopP < 0 || mc.TopP > 1 {
		return fmt.Errorf("models.%s.top_p must be between 0 and 1", name)
	}
	if mc.MaxOutputTokens < 1 {
		return fmt.Errorf("models.%s.max_output_tokens must be at least 1", name)
	}
	if mc.MaxPromptChars < 1 {
		return fmt.Errorf("models.%s.max_prompt_chars must be at least 1", name)
	}
	if mc.RateLimitPerMinute < 1 {
		return fmt.Errorf("models.%s.rate_limit_per_minute must be at least 1", name)
	}
	if mc.HTTPTimeoutSeconds < 1 {
		return fmt.Errorf("models.%s.http_timeout_seconds must be at least 1", name)
	}
	return nil
}

func validateFeatureConfig(name string, fc FeatureConfig) error {
	if name == "" {
		return fmt.Errorf("feature name must not be empty")
	}
	if fc.PromptID == "" {
		return fmt.Errorf("features.%s.prompt_id is required", name)
	}
	if fc.SystemPrompt == "" {
		return fmt.Errorf("features.%s.system_prompt is required", name)
	}
	if len(fc.Criteria) == 0 {
		return fmt.Errorf("features.%s.criteria must define at least one dimension", name)
	}
	for criterion, desc := range fc.Criteria {
		if criterion == "" {
			return fmt.Errorf("features.%s has an empty criterion name", name)
		}
		if desc == "" {
			return fmt.Errorf("features.%s.criteria.%s has an empty description", name, criterion)
		}
	}
	return nil
}

// Feature returns the configuration for the named feature.
func (c *Config) Feature(name string) (FeatureConfig, error) {
	fc, ok := c.Features[name]
	if !ok {
		return FeatureConfig{}, fmt.Errorf("unknown feature %q (configured: %v)", name, c.FeatureNames())
	}
	return fc, nil
}

// FeatureNames returns configured feature names in sorted order.
func (c *Config) FeatureNames() []string {
	names := make([]string, 0, len(c.Features))
	for name := range c.Features {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CriteriaNames returns the feature's rubric dimensions in sorted order
// so prompts and summaries iterate deterministically.
func (fc FeatureConfig) CriteriaNames() []string {
	names := make([]string, 0, len(fc.Criteria))
	for name := range fc.Criteria {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
