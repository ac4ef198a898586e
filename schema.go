package sdk

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidationIssue is a single schema violation in tool-call arguments.
type ValidationIssue struct {
	// Path is the dotted location of the offending value ("" for the root).
	Path    string
	Message string
}

func (i ValidationIssue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// compileParametersSchema compiles a function's declared parameter schema.
func compileParametersSchema(name string, raw json.RawMessage) (*jsonschema.Schema, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("parameters for %q are not valid JSON", name)
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	resource := "functions/" + name + ".json"
	if err := compiler.AddResource(resource, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource for %q: %w", name, err)
	}
	schema, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("failed to compile parameters for %q: %w", name, err)
	}
	return schema, nil
}

// validateArguments checks raw JSON arguments against schema and returns the
// violations found; nil means the arguments conform.
func validateArguments(schema *jsonschema.Schema, rawArgs string) []ValidationIssue {
	if schema == nil {
		return nil
	}
	if strings.TrimSpace(rawArgs) == "" {
		rawArgs = "{}"
	}
	var data any
	dec := json.NewDecoder(strings.NewReader(rawArgs))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return []ValidationIssue{{Message: "arguments are not valid JSON: " + err.Error()}}
	}
	err := schema.Validate(data)
	if err == nil {
		return nil
	}
	var validationErr *jsonschema.ValidationError
	if errors.As(err, &validationErr) {
		return extractValidationIssues(validationErr)
	}
	return []ValidationIssue{{Message: err.Error()}}
}

// extractValidationIssues flattens a jsonschema error tree into leaf issues.
func extractValidationIssues(err *jsonschema.ValidationError) []ValidationIssue {
	if len(err.Causes) == 0 {
		path := strings.TrimPrefix(err.InstanceLocation, "#")
		path = strings.TrimPrefix(path, "/")
		path = strings.ReplaceAll(path, "/", ".")
		return []ValidationIssue{{Path: path, Message: err.Message}}
	}
	var issues []ValidationIssue
	for _, cause := range err.Causes {
		issues = append(issues, extractValidationIssues(cause)...)
	}
	return issues
}
