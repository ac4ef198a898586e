package sdk

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestValidateArguments(t *testing.T) {
	schema, err := compileParametersSchema("GetWeather", json.RawMessage(`{
		"type": "object",
		"properties": {
			"location": {"type": "string"},
			"units": {"type": "string", "enum": ["c", "f"]},
			"window": {"type": "object", "properties": {"days": {"type": "integer", "minimum": 1}}}
		},
		"required": ["location"]
	}`))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if issues := validateArguments(schema, `{"location":"Kuala Lumpur","units":"c"}`); len(issues) != 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}

	issues := validateArguments(schema, `{"units":"k","window":{"days":0}}`)
	paths := map[string]bool{}
	for _, issue := range issues {
		paths[issue.Path] = true
	}
	for _, want := range []string{"", "units", "window.days"} {
		if !paths[want] {
			t.Errorf("expected an issue at %q, got %v", want, issues)
		}
	}

	issues = validateArguments(schema, `{"location":`)
	if len(issues) != 1 || !strings.Contains(issues[0].Message, "not valid JSON") {
		t.Fatalf("unexpected issues for malformed JSON %v", issues)
	}

	if issues := validateArguments(schema, ""); len(issues) == 0 {
		t.Fatal("empty arguments are treated as {} and must fail the required check")
	}
	if issues := validateArguments(nil, "garbage"); issues != nil {
		t.Fatal("a nil schema accepts anything")
	}
}

func TestCompileParametersSchema(t *testing.T) {
	if schema, err := compileParametersSchema("f", nil); schema != nil || err != nil {
		t.Fatalf("empty parameters compile to no schema, got %v %v", schema, err)
	}
	if _, err := compileParametersSchema("f", json.RawMessage(`{"type":"nonsense"}`)); err == nil {
		t.Fatal("expected compile error for an invalid schema")
	}
}

func TestValidationIssueString(t *testing.T) {
	if got := (ValidationIssue{Path: "units", Message: "bad"}).String(); got != "units: bad" {
		t.Fatalf("unexpected %q", got)
	}
	if got := (ValidationIssue{Message: "bad"}).String(); got != "bad" {
		t.Fatalf("unexpected %q", got)
	}
}
