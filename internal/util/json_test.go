package util

import (
	"encoding/json"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType string // "array" or "object"
	}{
		{
			name:     "plain array",
			input:    `["a", "b", "c"]`,
			wantType: "array",
		},
		{
			name:     "array in markdown",
			input:    "```json\n[\"a\", \"b\", \"c\"]\n```",
			wantType: "array",
		},
		{
			name:     "truncated array",
			input:    `["a", "b", "c"`,
			wantType: "array",
		},
		{
			name:     "array with text before",
			input:    `Here are the results: ["a", "b", "c"]`,
			wantType: "array",
		},
		{
			name:     "plain object",
			input:    `{"key": "value"}`,
			wantType: "object",
		},
		{
			name:     "object containing array field",
			input:    `{"scores": {"relevance": 8}, "suggestions": ["tighten step 2"]}`,
			wantType: "object",
		},
		{
			name:     "object in markdown with trailing prose",
			input:    "```json\n{\"overall_score\": 7.5}\n```\nLet me know if you need more detail.",
			wantType: "object",
		},
		{
			name:     "truncated object - missing closing brace",
			input:    `{"field1": "value1", "field2": "value2"`,
			wantType: "object",
		},
		{
			name:     "truncated object - missing nested closing braces",
			input:    `{"field1": {"score": 3}, "field2": {"score": 2}, "field3": {`,
			wantType: "object",
		},
		{
			name:     "truncated object - judge response pattern",
			input:    `{"plot": {"score": 3, "reasoning": "Good"}, "character": {"score": 2`,
			wantType: "object",
		},
		{
			name:     "truncated object - mid string",
			input:    `{"assessment": "The response covers the requ`,
			wantType: "object",
		},
		{
			name:     "object with trailing comma before truncation",
			input:    `{"field1": "value1", "field2": "value2",`,
			wantType: "object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractJSON(tt.input)

			if len(got) == 0 {
				t.Errorf("ExtractJSON() returned empty string")
				return
			}

			// Verify it's valid JSON
			if tt.wantType == "array" {
				var arr []interface{}
				if err := json.Unmarshal([]byte(got), &arr); err != nil {
					t.Errorf("ExtractJSON() produced invalid array JSON: %v\nGot: %s", err, got)
				}
			} else {
				var obj map[string]interface{}
				if err := json.Unmarshal([]byte(got), &obj); err != nil {
					t.Errorf("ExtractJSON() produced invalid object JSON: %v\nGot: %s", err, got)
				}
			}
		})
	}
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "valid json",
			input: `["a", "b", "c"]`,
		},
		{
			name:  "trailing comma in array",
			input: `["a", "b", "c",]`,
		},
		{
			name:  "trailing comma with spaces",
			input: `["a", "b", "c" , ]`,
		},
		{
			name:  "single quotes",
			input: `['a', 'b', 'c']`,
		},
		{
			name:  "unescaped newline in string",
			input: "[\"a\nb\"]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repaired := RepairJSON(tt.input)

			var arr []string
			if err := json.Unmarshal([]byte(repaired), &arr); err != nil {
				t.Errorf("RepairJSON() failed to produce valid JSON: %v\nInput: %s\nOutput: %s", err, tt.input, repaired)
			}
		})
	}
}

func TestSanitizeJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "no changes needed",
			input: `{"key": "value"}`,
			want:  `{"key": "value"}`,
		},
		{
			name:  "newline in string",
			input: "{\"key\": \"line1\nline2\"}",
			want:  `{"key": "line1\nline2"}`,
		},
		{
			name:  "crlf in string",
			input: "{\"key\": \"line1\r\nline2\"}",
			want:  `{"key": "line1\nline2"}`,
		},
		{
			name:  "newline outside string preserved",
			input: "{\n\"key\": \"value\"\n}",
			want:  "{\n\"key\": \"value\"\n}",
		},
		{
			name:  "escaped quote does not end string",
			input: "{\"key\": \"say \\\"hi\\\"\nthere\"}",
			want:  `{"key": "say \"hi\"\nthere"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeJSON(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnmarshalResponse(t *testing.T) {
	type rubric struct {
		Scores       map[string]float64 `json:"scores"`
		OverallScore float64            `json:"overall_score"`
		Suggestions  []string           `json:"suggestions"`
	}

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:  "clean json",
			input: `{"scores": {"relevance": 8}, "overall_score": 8, "suggestions": []}`,
		},
		{
			name:  "fenced with preamble",
			input: "Here is the evaluation:\n```json\n{\"scores\": {\"relevance\": 8}, \"overall_score\": 8, \"suggestions\": [\"none\"]}\n```",
		},
		{
			name:  "reasoning tags before json",
			input: "<think>scoring each dimension</think>{\"scores\": {\"clarity\": 6.5}, \"overall_score\": 6.5, \"suggestions\": []}",
		},
		{
			name:  "raw newline inside string value",
			input: "{\"scores\": {\"clarity\": 5}, \"overall_score\": 5, \"suggestions\": [\"split the\nlong step\"]}",
		},
		{
			name:  "trailing commas repaired",
			input: `{"scores": {"clarity": 5,}, "overall_score": 5, "suggestions": [],}`,
		},
		{
			name:    "no json at all",
			input:   "I cannot evaluate this response.",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out rubric
			err := UnmarshalResponse(tt.input, &out)
			if (err != nil) != tt.wantErr {
				t.Fatalf("UnmarshalResponse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && len(out.Scores) == 0 {
				t.Errorf("UnmarshalResponse() produced empty scores from %q", tt.input)
			}
		})
	}
}
