package config

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	// Workflow defaults
	if cfg.Workflow.DataDir == "" {
		cfg.Workflow.DataDir = "data"
	}
	if cfg.Workflow.NumPatterns == 0 {
		cfg.Workflow.NumPatterns = DefaultNumPatterns
	}
	if cfg.Workflow.KeepFiles == 0 {
		cfg.Workflow.KeepFiles = DefaultKeepFiles
	}
	if cfg.Workflow.EvalConcurrency == 0 {
		cfg.Workflow.EvalConcurrency = 1
	}
	if cfg.Workflow.LogLevel == "" {
		cfg.Workflow.LogLevel = "info"
	}

	// Apply defaults for each model
	for name, model := range cfg.Models {
		if model.Provider == "" {
			model.Provider = ProviderOpenAI
		}
		if model.Temperature == 0 {
			model.Temperature = 0.7
		}
		if model.TopP == 0 {
			model.TopP = 1.0
		}
		if model.MaxOutputTokens == 0 {
			model.MaxOutputTokens = DefaultMaxOutputTokens
		}
		if model.MaxPromptChars == 0 {
			model.MaxPromptChars = DefaultMaxPromptChars
		}
		if model.RateLimitPerMinute == 0 {
			model.RateLimitPerMinute = DefaultRateLimitPerMinute
		}
		if model.MaxBackoffSeconds == 0 {
			model.MaxBackoffSeconds = 120
		}
		// NOTE: In TOML, we can't distinguish 0 from unset, so:
		// - Unset (0) → defaults to 3
		// - Explicitly set to -1 → no retries
		// - Any positive number → use that value
		if model.MaxRetries == 0 {
			model.MaxRetries = DefaultMaxRetries
		}
		if model.HTTPTimeoutSeconds == 0 {
			model.HTTPTimeoutSeconds = DefaultHTTPTimeoutSeconds
		}
		cfg.Models[name] = model
	}

	// Built-in feature registry when the config file defines none
	if len(cfg.Features) == 0 {
		cfg.Features = BuiltinFeatures()
	}

	// Apply default templates if not provided
	if cfg.PromptTemplates.InputGeneration == "" {
		cfg.PromptTemplates.InputGeneration = GetDefaultInputGenerationTemplate()
	}
	if cfg.PromptTemplates.EvaluationRubric == "" {
		cfg.PromptTemplates.EvaluationRubric = GetDefaultEvaluationRubricTemplate()
	}
	if cfg.PromptTemplates.Comparison == "" {
		cfg.PromptTemplates.Comparison = GetDefaultComparisonTemplate()
	}
}

// GetDefaultInputGenerationTemplate returns the default template for mock
// test input generation
func GetDefaultInputGenerationTemplate() string {
	return `You are a test design expert for AI coding assistants. Generate {{.NumPatterns}} diverse test inputs for evaluating the "{{.Feature}}" feature.

Feature description: {{.Description}}

The inputs should cover:
{{.Guidance}}

Each input must be realistic, specific, and distinct from the others. Vary complexity from simple one-step requests to multi-step scenarios.

Return ONLY a valid JSON array of objects with this exact structure (no markdown, no additional text):
[
  {
    "input_id": "{{.Feature}}_001",
    "feature": "{{.Feature}}",
    "prompt": "<the user request text>"
  },
  ...
]

Number the input_id values sequentially ({{.Feature}}_001, {{.Feature}}_002, ...). The feature field must always be "{{.Feature}}".`
}

// GetDefaultEvaluationRubricTemplate returns the default template for
// per-result rubric scoring
func GetDefaultEvaluationRubricTemplate() string {
	return `You are an expert reviewer of AI-assisted test automation. Evaluate the quality of the assistant response below.

USER REQUEST:
{{.UserInput}}

ASSISTANT RESPONSE:
{{.Output}}

EVALUATION CRITERIA:
{{.Criteria}}

Score each criterion from 0 to 10, where 0 means the response completely fails the criterion and 10 means it could not be improved. Provide brief feedback per criterion.

Return ONLY a valid JSON object with this exact structure (no markdown, no additional text):
{
  "scores": {
{{.ScoreFields}}
  },
  "feedback": {
{{.FeedbackFields}}
  },
  "overall_assessment": "<2-3 sentence summary>",
  "overall_score": <0-10>,
  "suggestions": ["<improvement suggestion>", ...],
  "meets_requirements": <true or false>
}

IMPORTANT: Your response must be valid JSON and nothing else.`
}

// GetDefaultComparisonTemplate returns the default template for the
// judge-driven dataset comparison verdict
func GetDefaultComparisonTemplate() string {
	return `You are an expert evaluator comparing two AI assistant configurations for the "{{.Feature}}" feature. LL1 is the current baseline configuration; LL2 is the candidate replacement. Test mode: {{.TestMode}}.

BASELINE DATASET (LL1):
{{.BaselineData}}

TARGET DATASET (LL2):
{{.TargetData}}

Compare the two datasets and produce a structured verdict. Score each dimension from 0 to 10.

Return ONLY a valid JSON object with this exact structure (no markdown, no additional text):
{
  "consistency_scores": {
    "output_stability": <0-10>,
    "behavior_consistency": <0-10>,
    "style_consistency": <0-10>
  },
  "accuracy_scores": {
    "functional_correctness": <0-10>,
    "code_quality": <0-10>,
    "test_coverage": <0-10>
  },
  "performance_metrics": {
    "baseline_avg_time": <seconds>,
    "target_avg_time": <seconds>,
    "time_difference": <seconds>
  },
  "analysis": {
    "key_differences": ["<difference>", ...],
    "improvements": ["<improvement>", ...],
    "regressions": ["<regression>", ...],
    "concerns": ["<concern>", ...]
  },
  "recommendations": ["<actionable recommendation>", ...],
  "final_recommendation": "<PROMOTE_LL2 | KEEP_LL1 | FURTHER_TESTING>",
  "confidence_level": "<High | Moderate | Low>",
  "detailed_explanation": "<one paragraph justifying the recommendation>"
}

IMPORTANT: Your response must be valid JSON and nothing else. Every field is required.`
}
