package utils

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseAIObject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKeys []string
		wantErr  bool
	}{
		{
			name:     "Pure JSON",
			input:    `{"tier": "A", "budget": 400000000}`,
			wantKeys: []string{"tier", "budget"},
		},
		{
			name: "JSON in markdown code block",
			input: "```json\n" +
				`{"tier": "B", "area": "Pasto"}` + "\n```",
			wantKeys: []string{"tier", "area"},
		},
		{
			name:     "JSON in bare code block",
			input:    "```\n{\"tier\": \"C\"}\n```",
			wantKeys: []string{"tier"},
		},
		{
			name:     "Double braces",
			input:    `{{"tier": "A", "urgency": "high"}}`,
			wantKeys: []string{"tier", "urgency"},
		},
		{
			name:     "Fenced double braces",
			input:    "```json\n{{\"tier\": \"B\"}}\n```",
			wantKeys: []string{"tier"},
		},
		{
			name:     "JSON with surrounding text",
			input:    `Here is the result: {"tier": "B", "budget": null} hope it helps.`,
			wantKeys: []string{"tier", "budget"},
		},
		{
			name:     "Nested object keeps outer braces",
			input:    `answer: {"tier": "A", "extra": {"k": 1}} done`,
			wantKeys: []string{"tier", "extra"},
		},
		{
			name:    "Empty string",
			input:   "   ",
			wantErr: true,
		},
		{
			name:    "Invalid JSON",
			input:   "not json at all",
			wantErr: true,
		},
		{
			name:    "Unquoted keys are not repaired",
			input:   `{tier: "A"}`,
			wantErr: true,
		},
		{
			name:    "Null literal",
			input:   "null",
			wantErr: true,
		},
		{
			name:    "Array is not an object",
			input:   `[{"tier": "A"}]`,
			wantErr: false,
			// the outer-brace slice recovers the inner object
			wantKeys: []string{"tier"},
		},
		{
			name:    "Two objects in prose",
			input:   `{"a": 1} and then {"b": 2}`,
			wantErr: true,
		},
		{
			name:    "Closing brace before opening",
			input:   `} nothing {`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAIObject(tt.input)

			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAIObject() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.wantKeys) {
				t.Errorf("ParseAIObject() got %d keys (%v), want %v", len(got), got, tt.wantKeys)
			}
			for _, k := range tt.wantKeys {
				if _, ok := got[k]; !ok {
					t.Errorf("ParseAIObject() missing key %q in %v", k, got)
				}
			}
		})
	}
}

func TestParseAIObject_KeepsNumberPrecision(t *testing.T) {
	got, err := ParseAIObject(`{"budget": 9007199254740993}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, ok := got["budget"].(json.Number)
	if !ok {
		t.Fatalf("budget decoded as %T, want json.Number", got["budget"])
	}
	if n.String() != "9007199254740993" {
		t.Errorf("budget = %s, want 9007199254740993", n)
	}
}

func TestParseAIObject_ErrorWrapsSentinel(t *testing.T) {
	_, err := ParseAIObject("no json here")
	if !errors.Is(err, ErrNotJSONObject) {
		t.Errorf("expected ErrNotJSONObject, got %v", err)
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "JSON code block with json tag",
			input: "```json\n{\"test\": true}\n```",
			want:  `{"test": true}`,
		},
		{
			name:  "JSON code block without tag",
			input: "```\n{\"test\": true}\n```",
			want:  `{"test": true}`,
		},
		{
			name:  "No code block",
			input: `{"test": true}`,
			want:  `{"test": true}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stripCodeFence(tt.input)
			if got != tt.want {
				t.Errorf("stripCodeFence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractOuterBraces(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "Simple object", input: `x {"a": 1} y`, want: `{"a": 1}`},
		{name: "Nested objects", input: `{"a": {"b": 2}}`, want: `{"a": {"b": 2}}`},
		{name: "No braces", input: `plain`, want: ""},
		{name: "Only opening", input: `{"a": 1`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractOuterBraces(tt.input)
			if got != tt.want {
				t.Errorf("extractOuterBraces() = %v, want %v", got, tt.want)
			}
		})
	}
}
