package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotJSONObject is returned when no JSON object can be recovered from the input
var ErrNotJSONObject = errors.New("no JSON object found")

// ParseAIObject extracts a JSON object from AI output that may contain:
// - Pure JSON
// - JSON wrapped in a markdown code fence (```json ... ```)
// - JSON doubled in braces ({{ ... }}), as template-escaped prompts make some models answer
// - JSON with surrounding prose
//
// Numbers are decoded as json.Number so large budgets keep full precision.
func ParseAIObject(input string) (map[string]interface{}, error) {
	cleaned := strings.TrimSpace(input)
	if cleaned == "" {
		return nil, fmt.Errorf("empty input")
	}

	cleaned = stripCodeFence(cleaned)
	cleaned = unwrapDoubleBraces(cleaned)

	// Try direct parsing first (most common case)
	if obj, err := decodeObject(cleaned); err == nil {
		return obj, nil
	}

	// Fall back to the widest {...} span in the text
	if extracted := extractOuterBraces(cleaned); extracted != "" {
		if obj, err := decodeObject(extracted); err == nil {
			return obj, nil
		}
	}

	return nil, fmt.Errorf("%w in input: %s", ErrNotJSONObject, truncateString(input, 100))
}

// stripCodeFence removes an outer markdown fence and anything before the first brace
func stripCodeFence(input string) string {
	if !strings.HasPrefix(input, "```") {
		return input
	}
	s := strings.Trim(input, "`")
	if idx := strings.Index(s, "{"); idx >= 0 {
		s = s[idx:]
	}
	return strings.TrimSpace(s)
}

// unwrapDoubleBraces trims one layer from {{ ... }}
func unwrapDoubleBraces(input string) string {
	if strings.HasPrefix(input, "{{") && strings.HasSuffix(input, "}}") {
		return strings.TrimSpace(input[1 : len(input)-1])
	}
	return input
}

// extractOuterBraces returns the text between the first '{' and the last '}'
func extractOuterBraces(input string) string {
	start := strings.Index(input, "{")
	end := strings.LastIndex(input, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return input[start : end+1]
}

// decodeObject decodes exactly one JSON object; null, arrays and scalars are rejected
func decodeObject(input string) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(input)))
	dec.UseNumber()

	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, ErrNotJSONObject
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON object")
	}
	return obj, nil
}

// truncateString truncates a string to maxLen bytes
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
