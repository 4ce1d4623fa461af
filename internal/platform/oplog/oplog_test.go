package oplog

import (
	"strings"
	"testing"
)

func TestRedact(t *testing.T) {
	tests := []struct {
		name  string
		input string
		leak  string
	}{
		{"password json", `{"username":"a","password":"hunter2"}`, "hunter2"},
		{"token header", `authorization: Bearer eyJabc.def.ghi`, "eyJabc"},
		{"assignment", `secret=topsecretvalue failed`, "topsecretvalue"},
		{"api key", `api_key: abc123`, "abc123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Redact(tt.input)
			if strings.Contains(got, tt.leak) {
				t.Errorf("Redact(%q) = %q, still contains %q", tt.input, got, tt.leak)
			}
			if !strings.Contains(got, "[REDACTED]") {
				t.Errorf("Redact(%q) = %q, expected [REDACTED] marker", tt.input, got)
			}
		})
	}

	clean := "duplicate key value violates unique constraint"
	if Redact(clean) != clean {
		t.Errorf("clean message altered: %q", Redact(clean))
	}
}

func TestNullableID(t *testing.T) {
	if nullableID(0) != nil {
		t.Error("zero id should map to nil")
	}
	if p := nullableID(7); p == nil || *p != 7 {
		t.Errorf("nullableID(7) = %v", p)
	}
}
