package validation

import (
	"strings"
	"testing"
)

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trims whitespace", "  hello  ", "hello"},
		{"keeps newline and tab", "a\nb\tc", "a\nb\tc"},
		{"drops control characters", "bad\x00\x07text", "badtext"},
		{"keeps unicode", "café ^tomorrow", "café ^tomorrow"},
		{"empty after trim", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeText(tt.input); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestValidateNodeType(t *testing.T) {
	t.Parallel()

	if err := ValidateNodeType("task"); err != nil {
		t.Errorf("Expected task to be valid, got %v", err)
	}
	err := ValidateNodeType("sticker")
	if err == nil {
		t.Fatal("Expected error for unknown type")
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Errorf("Expected error to list valid types, got %v", err)
	}
}

func TestValidatePatternKind(t *testing.T) {
	t.Parallel()

	for _, kind := range []string{"date", "priority", "tag", "assignee", "color", "fontSize", "status", "checkbox"} {
		if err := ValidatePatternKind(kind); err != nil {
			t.Errorf("Expected %s to be valid, got %v", kind, err)
		}
	}
	if err := ValidatePatternKind("emoji"); err == nil {
		t.Error("Expected error for unknown kind")
	}
}

func TestStructTags(t *testing.T) {
	t.Parallel()

	type request struct {
		Kind string `validate:"required,pattern_kind"`
		Type string `validate:"omitempty,node_type"`
	}

	tests := []struct {
		name    string
		req     request
		wantErr bool
	}{
		{"valid", request{Kind: "date", Type: "text"}, false},
		{"empty optional type", request{Kind: "tag"}, false},
		{"bad kind", request{Kind: "emoji"}, true},
		{"bad type", request{Kind: "tag", Type: "sticker"}, true},
		{"missing kind", request{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate.Struct(tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
			if err != nil && !strings.HasPrefix(FirstError(err), "Validation failed: field") {
				t.Errorf("Unexpected message %q", FirstError(err))
			}
		})
	}
}
