package util

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

// templateCache avoids reparsing identical templates. Rubric prompts render
// once per input with the same template string, so hits dominate.
var templateCache sync.Map // template string -> *template.Template

// RenderTemplate renders a template string with the given data
// Includes validation to prevent template injection attacks
func RenderTemplate(tmpl string, data map[string]interface{}) (string, error) {
	// Validate template for forbidden directives that could be exploited
	// Block: call (function calls), define (template definition), template (template inclusion)
	forbiddenDirectives := []string{"{{call", "{{define", "{{template", "{{block"}
	for _, directive := range forbiddenDirectives {
		if strings.Contains(tmpl, directive) {
			return "", fmt.Errorf("template contains forbidden directive: %s", directive)
		}
	}

	var t *template.Template
	if cached, ok := templateCache.Load(tmpl); ok {
		t = cached.(*template.Template)
	} else {
		parsed, err := template.New("prompt").
			Option("missingkey=error"). // Fail on missing keys to prevent silent errors
			Parse(tmpl)
		if err != nil {
			return "", fmt.Errorf("failed to parse template: %w", err)
		}
		templateCache.Store(tmpl, parsed)
		t = parsed
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// ClearTemplateCache drops all cached parsed templates
func ClearTemplateCache() {
	templateCache.Range(func(key, _ any) bool {
		templateCache.Delete(key)
		return true
	})
}

// TruncateString truncates a string to maxLen runes (Unicode-safe)
// Uses runes instead of bytes to properly handle multi-byte UTF-8 characters
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
