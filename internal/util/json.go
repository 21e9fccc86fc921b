package util

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Precompiled regex patterns for performance (compiled once at package init)
var (
	jsonCodeBlockRegex = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")
)

// ExtractJSON extracts JSON content from a response that may contain markdown
// code blocks and attempts to close truncated arrays and objects.
// The outermost value wins: an object containing array fields is returned as
// the object, not its first array.
func ExtractJSON(s string) string {
	// Try to extract from markdown code blocks using precompiled regex
	matches := jsonCodeBlockRegex.FindStringSubmatch(s)
	if len(matches) > 1 {
		s = strings.TrimSpace(matches[1])
	} else {
		s = strings.TrimSpace(s)
	}

	arrayStart := strings.Index(s, "[")
	objectStart := strings.Index(s, "{")

	start := arrayStart
	open, close := '[', ']'
	if arrayStart == -1 || (objectStart != -1 && objectStart < arrayStart) {
		start = objectStart
		open, close = '{', '}'
	}
	if start == -1 {
		// No JSON boundaries found
		return s
	}

	if end := findMatchingBracket(s, start, open, close); end != -1 {
		return s[start : end+1]
	}

	// Truncated value - close whatever is still open
	return closeTruncated(s[start:])
}

// findMatchingBracket finds the matching closing bracket for an opening bracket
// using proper bracket matching that handles escaped quotes and strings
// Returns -1 if no matching bracket is found
func findMatchingBracket(s string, startPos int, openChar, closeChar rune) int {
	count := 0
	inString := false
	escaped := false

	for i := startPos; i < len(s); i++ {
		ch := rune(s[i])

		// Handle escape sequences
		if escaped {
			escaped = false
			continue
		}

		if ch == '\\' {
			escaped = true
			continue
		}

		// Handle strings
		if ch == '"' {
			inString = !inString
			continue
		}

		// Only count brackets outside of strings
		if !inString {
			if ch == openChar {
				count++
			} else if ch == closeChar {
				count--
				if count == 0 {
					return i
				}
			}
		}
	}

	return -1 // No matching bracket found
}

// closeTruncated appends the closing brackets a truncated JSON value is
// missing. Nesting order is preserved so interleaved objects and arrays
// close correctly.
func closeTruncated(s string) string {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if escaped {
			escaped = false
			continue
		}

		switch ch {
		case '\\':
			escaped = true
		case '"':
			inString = !inString
		case '{':
			if !inString {
				stack = append(stack, '}')
			}
		case '[':
			if !inString {
				stack = append(stack, ']')
			}
		case '}', ']':
			if !inString && len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if inString {
		// Truncated mid-string, terminate it first
		s += `"`
	} else {
		s = strings.TrimRight(s, " \n\t\r,")
	}

	for i := len(stack) - 1; i >= 0; i-- {
		s += string(stack[i])
	}
	return s
}

// SanitizeJSON fixes common JSON issues from LLM responses
// Specifically handles unescaped newlines in string values
func SanitizeJSON(s string) string {
	var result strings.Builder
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		ch := s[i]

		if escaped {
			result.WriteByte(ch)
			escaped = false
			continue
		}

		if ch == '\\' {
			result.WriteByte(ch)
			escaped = true
			continue
		}

		if ch == '"' {
			result.WriteByte(ch)
			inString = !inString
			continue
		}

		// Replace literal newlines in strings with \n
		if inString && (ch == '\n' || ch == '\r') {
			result.WriteString("\\n")
			// Skip \r if followed by \n
			if ch == '\r' && i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
			continue
		}

		result.WriteByte(ch)
	}

	return result.String()
}

// RepairJSON runs heuristic repair over malformed JSON (trailing commas,
// missing delimiters, single quotes). Returns the input unchanged when
// repair fails so the caller's unmarshal surfaces the real error.
func RepairJSON(s string) string {
	out, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return s
	}
	return out
}

// UnmarshalResponse decodes an LLM response into v, tolerating markdown
// fences, reasoning tags, unescaped newlines, and truncation. Each stage
// only runs when the previous one still fails to parse.
func UnmarshalResponse(raw string, v any) error {
	extracted := ExtractJSON(StripThinkTags(raw))
	if json.Valid([]byte(extracted)) {
		return json.Unmarshal([]byte(extracted), v)
	}

	sanitized := SanitizeJSON(extracted)
	if json.Valid([]byte(sanitized)) {
		return json.Unmarshal([]byte(sanitized), v)
	}

	repaired := RepairJSON(sanitized)
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("response is not valid JSON after repair: %w", err)
	}
	return nil
}
