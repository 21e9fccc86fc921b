package util

import "testing"

func TestContainsThinkTags(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{
			name:     "has think tags",
			input:    "<think>reasoning here</think>The answer",
			expected: true,
		},
		{
			name:     "has thinking tags",
			input:    "<thinking>reasoning here</thinking>The answer",
			expected: true,
		},
		{
			name:     "case insensitive",
			input:    "<THINK>reasoning</THINK>answer",
			expected: true,
		},
		{
			name:     "no think tags",
			input:    "Just a regular response",
			expected: false,
		},
		{
			name:     "unclosed tag does not match",
			input:    "<think>never closed",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ContainsThinkTags(tt.input)
			if result != tt.expected {
				t.Errorf("ContainsThinkTags() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestStripThinkTags(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "strip single think block",
			input:    "<think>This is my reasoning</think>The answer is 42",
			expected: "The answer is 42",
		},
		{
			name:     "strip multiple think blocks",
			input:    "<think>First thought</think>Some text<think>Second thought</think>Final answer",
			expected: "Some textFinal answer",
		},
		{
			name:     "strip multiline reasoning",
			input:    "<think>Step 1\nStep 2\nStep 3</think>\n\nWebUI.click(findTestObject('btn'))",
			expected: "WebUI.click(findTestObject('btn'))",
		},
		{
			name:     "no think tags",
			input:    "Just a regular response",
			expected: "Just a regular response",
		},
		{
			name:     "trims surrounding whitespace",
			input:    "  <think>hm</think>  answer  ",
			expected: "answer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StripThinkTags(tt.input)
			if result != tt.expected {
				t.Errorf("StripThinkTags() = %q, want %q", result, tt.expected)
			}
		})
	}
}
