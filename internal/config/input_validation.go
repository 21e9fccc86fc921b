package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

const (
	// MaxFeatureNameLength is the maximum allowed length for feature names
	MaxFeatureNameLength = 64

	// MaxModelNameLength is the maximum allowed length for model names
	MaxModelNameLength = 100

	// MaxTemplateSize is the maximum allowed size for template content
	MaxTemplateSize = 50 * 1024 // 50KB
)

// featureNamePattern restricts feature names to identifiers that are safe to
// embed in filenames.
var featureNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidateInputs performs additional validation on user-controllable fields.
// This prevents oversized prompts, malformed endpoints, and names that would
// produce unusable artifact filenames.
func (c *Config) ValidateInputs() error {
	for name := range c.Features {
		if err := ValidateFeatureName(name); err != nil {
			return err
		}
	}

	for name, mc := range c.Models {
		if err := validateModelName(mc.ModelName, name); err != nil {
			return err
		}
		if mc.Provider == ProviderOpenAI {
			if err := validateBaseURL(mc.BaseURL, name); err != nil {
				return err
			}
		}
	}

	if err := c.validateTemplateSizes(); err != nil {
		return err
	}

	return nil
}

// ValidateFeatureName checks that a feature name is a safe identifier.
// Feature names become part of dataset and state filenames.
func ValidateFeatureName(name string) error {
	if name == "" {
		return fmt.Errorf("feature name must not be empty")
	}
	if len(name) > MaxFeatureNameLength {
		return fmt.Errorf("feature name exceeds maximum length of %d (got %d)",
			MaxFeatureNameLength, len(name))
	}
	if !featureNamePattern.MatchString(name) {
		return fmt.Errorf("feature name %q must match %s", name, featureNamePattern.String())
	}
	return nil
}

// ValidateInputsFilePath checks a user-supplied inputs file path.
func ValidateInputsFilePath(path string) error {
	if path == "" {
		return fmt.Errorf("inputs file path must not be empty")
	}
	if containsControlChars(path) {
		return fmt.Errorf("inputs file path contains invalid control characters")
	}
	if !strings.HasSuffix(path, ".json") {
		return fmt.Errorf("inputs file must be a .json file (got %s)", path)
	}
	return nil
}

// validateModelName checks model name for length and control characters
func validateModelName(modelName, configKey string) error {
	if len(modelName) > MaxModelNameLength {
		return fmt.Errorf("model '%s' name exceeds maximum length of %d (got %d)",
			configKey, MaxModelNameLength, len(modelName))
	}

	if containsControlChars(modelName) {
		return fmt.Errorf("model '%s' name contains invalid control characters", configKey)
	}

	return nil
}

// validateBaseURL checks that the base URL is properly formatted and safe
func validateBaseURL(baseURL, configKey string) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("model '%s' has invalid base_url: %w", configKey, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("model '%s' base_url must use http or https scheme (got %s)",
			configKey, u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("model '%s' base_url must have a host", configKey)
	}

	return nil
}

// validateTemplateSizes checks that templates are within reasonable size limits
func (c *Config) validateTemplateSizes() error {
	templates := []struct {
		name  string
		value string
	}{
		{"input_generation", c.PromptTemplates.InputGeneration},
		{"evaluation_rubric", c.PromptTemplates.EvaluationRubric},
		{"comparison", c.PromptTemplates.Comparison},
	}

	for _, tmpl := range templates {
		if len(tmpl.value) > MaxTemplateSize {
			return fmt.Errorf("template '%s' exceeds maximum size of %d bytes (got %d)",
				tmpl.name, MaxTemplateSize, len(tmpl.value))
		}
	}

	return nil
}

// containsControlChars checks if a string contains control characters
// (excluding newlines, tabs, and carriage returns which are acceptable)
func containsControlChars(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return true
		}
	}
	return false
}
