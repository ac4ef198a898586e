package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/sync/errgroup"
)

// ============================================================================
// Type-safe Argument Parsing
// ============================================================================

// ToolArgsError is returned when tool argument parsing or validation fails.
// Its message is suitable for sending back to the assistant as a tool output.
type ToolArgsError struct {
	Message      string
	ToolCallID   string
	ToolName     string
	RawArguments string
	Issues       []ValidationIssue
	Cause        error
}

func (e *ToolArgsError) Error() string {
	return e.Message
}

func (e *ToolArgsError) Unwrap() error {
	return e.Cause
}

// ParseToolArgs unmarshals a call's JSON arguments into target, which must be
// a pointer. Empty arguments decode as {}.
//
// Example:
//
//	type WeatherArgs struct {
//	    Location string `json:"location"`
//	}
//
//	var args WeatherArgs
//	if err := sdk.ParseToolArgs(call, &args); err != nil {
//	    return "", err // surfaced to the assistant as "Error: ..."
//	}
func ParseToolArgs(call ToolCall, target any) error {
	rawArgs := call.Function.Arguments
	if strings.TrimSpace(rawArgs) == "" {
		rawArgs = "{}"
	}
	if err := json.Unmarshal([]byte(rawArgs), target); err != nil {
		return &ToolArgsError{
			Message:      "failed to parse arguments for tool '" + call.Function.Name + "': " + err.Error(),
			ToolCallID:   call.ID,
			ToolName:     call.Function.Name,
			RawArguments: rawArgs,
			Cause:        err,
		}
	}
	return nil
}

// ParseToolArgsMap parses a call's arguments into a map for dynamic access.
func ParseToolArgsMap(call ToolCall) (map[string]any, error) {
	var args map[string]any
	if err := ParseToolArgs(call, &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = make(map[string]any)
	}
	return args, nil
}

// Validator is implemented by argument structs that check themselves.
type Validator interface {
	Validate() error
}

// ParseAndValidateToolArgs parses arguments and then runs target's Validate
// method when it implements Validator.
func ParseAndValidateToolArgs(call ToolCall, target any) error {
	if err := ParseToolArgs(call, target); err != nil {
		return err
	}
	v, ok := target.(Validator)
	if !ok {
		return nil
	}
	if err := v.Validate(); err != nil {
		return &ToolArgsError{
			Message:      "invalid arguments for tool '" + call.Function.Name + "': " + err.Error(),
			ToolCallID:   call.ID,
			ToolName:     call.Function.Name,
			RawArguments: call.Function.Arguments,
			Cause:        err,
		}
	}
	return nil
}

// ============================================================================
// Tool Registry
// ============================================================================

// ToolHandler executes one function call. The result is used verbatim when it
// is a string and JSON-encoded otherwise. A returned error is reported to the
// assistant as the call's output rather than failing the dispatch.
type ToolHandler func(ctx context.Context, call ToolCall) (any, error)

// ToolExecutionResult is the outcome of executing one tool call.
type ToolExecutionResult struct {
	ToolCallID string
	ToolName   string
	Result     any
	Error      error
}

// Output renders the result as the string submitted to the provider.
func (r ToolExecutionResult) Output() string {
	if r.Error != nil {
		return "Error: " + r.Error.Error()
	}
	switch v := r.Result.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "Error: failed to marshal tool result"
		}
		return string(data)
	}
}

type registeredTool struct {
	def     *FunctionDefinition
	schema  *jsonschema.Schema
	handler ToolHandler
}

// RegistryOption configures a ToolRegistry.
type RegistryOption func(*ToolRegistry)

// WithDispatchConcurrency bounds how many handlers Dispatch runs at once
// (default 4). n <= 0 removes the bound.
func WithDispatchConcurrency(n int) RegistryOption {
	return func(r *ToolRegistry) { r.concurrency = n }
}

// ToolRegistry maps function names to handlers and answers requires_action
// pauses. It is safe for concurrent use.
//
// Example:
//
//	registry := sdk.NewToolRegistry()
//	if _, err := registry.RegisterFunction(getWeather, func(ctx context.Context, call sdk.ToolCall) (any, error) {
//	    var args WeatherArgs
//	    if err := sdk.ParseToolArgs(call, &args); err != nil {
//	        return nil, err
//	    }
//	    return map[string]any{"location": args.Location, "temp_c": 18}, nil
//	}); err != nil {
//	    return err
//	}
//	run, err = client.Runs.Drive(ctx, run, registry)
type ToolRegistry struct {
	mu          sync.RWMutex
	tools       map[string]registeredTool
	concurrency int
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry(opts ...RegistryOption) *ToolRegistry {
	r := &ToolRegistry{
		tools:       make(map[string]registeredTool),
		concurrency: 4,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Register adds a handler without a declared definition; its arguments are
// not schema-checked. Returns the registry for chaining.
func (r *ToolRegistry) Register(name string, handler ToolHandler) *ToolRegistry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[name] = registeredTool{handler: handler}
	return r
}

// RegisterFunction adds a handler together with its definition. Arguments are
// validated against def.Parameters before the handler runs.
func (r *ToolRegistry) RegisterFunction(def FunctionDefinition, handler ToolHandler) (*ToolRegistry, error) {
	if handler == nil {
		return r, ConfigError{Reason: fmt.Sprintf("handler for %q is nil", def.Name)}
	}
	if !functionNamePattern.MatchString(def.Name) {
		return r, ConfigError{Reason: fmt.Sprintf("invalid function name %q", def.Name)}
	}
	schema, err := compileParametersSchema(def.Name, def.Parameters)
	if err != nil {
		return r, ConfigError{Reason: err.Error()}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[def.Name] = registeredTool{def: &def, schema: schema, handler: handler}
	return r, nil
}

// MustRegisterFunction is RegisterFunction for static definitions; it panics on error.
func (r *ToolRegistry) MustRegisterFunction(def FunctionDefinition, handler ToolHandler) *ToolRegistry {
	if _, err := r.RegisterFunction(def, handler); err != nil {
		panic(err)
	}
	return r
}

// Unregister removes a handler and reports whether one was present.
func (r *ToolRegistry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; ok {
		delete(r.tools, name)
		return true
	}
	return false
}

// Has reports whether a handler is registered for name.
func (r *ToolRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// RegisteredTools returns the registered names in sorted order.
func (r *ToolRegistry) RegisteredTools() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns function tools for every handler registered with a
// definition, sorted by name, ready for RunCreateRequest.Tools.
func (r *ToolRegistry) Definitions() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Tool
	for _, entry := range r.tools {
		if entry.def != nil {
			out = append(out, FunctionTool(*entry.def))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Function.Name < out[j].Function.Name })
	return out
}

// Execute runs the handler for a single call. Unknown tools and invalid
// arguments are reported in the result's Error.
func (r *ToolRegistry) Execute(ctx context.Context, call ToolCall) ToolExecutionResult {
	name := call.Function.Name
	res := ToolExecutionResult{ToolCallID: call.ID, ToolName: name}

	r.mu.RLock()
	entry, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		res.Error = &UnknownToolError{ToolName: name, Available: r.RegisteredTools()}
		return res
	}
	if issues := validateArguments(entry.schema, call.Function.Arguments); len(issues) > 0 {
		parts := make([]string, len(issues))
		for i, issue := range issues {
			parts[i] = issue.String()
		}
		res.Error = &ToolArgsError{
			Message:      "invalid arguments for tool '" + name + "': " + strings.Join(parts, "; "),
			ToolCallID:   call.ID,
			ToolName:     name,
			RawArguments: call.Function.Arguments,
			Issues:       issues,
		}
		return res
	}
	res.Result, res.Error = entry.handler(ctx, call)
	return res
}

// Dispatch executes every call the run is waiting on and returns a
// submission covering each call exactly once, in the order the provider
// listed them. Handlers run concurrently up to the registry's bound.
//
// A call naming an unregistered tool fails the whole dispatch with
// *UnknownToolError; handler and argument errors become "Error: ..." outputs.
func (r *ToolRegistry) Dispatch(ctx context.Context, run *Run) (SubmitToolOutputsRequest, error) {
	calls, err := RequiredToolCalls(run)
	if err != nil {
		return SubmitToolOutputsRequest{}, err
	}
	for _, call := range calls {
		if !r.Has(call.Function.Name) {
			return SubmitToolOutputsRequest{}, &UnknownToolError{ToolName: call.Function.Name, Available: r.RegisteredTools()}
		}
	}

	results := make([]ToolExecutionResult, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for i, call := range calls {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.Execute(gctx, call)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SubmitToolOutputsRequest{}, err
	}

	req := SubmitToolOutputsRequest{ToolOutputs: make([]ToolOutput, len(results))}
	for i, res := range results {
		req.ToolOutputs[i] = ToolOutput{ToolCallID: res.ToolCallID, Output: res.Output()}
	}
	return req, nil
}

// UnknownToolError is returned when a tool call references an unregistered tool.
type UnknownToolError struct {
	ToolName  string
	Available []string
}

func (e *UnknownToolError) Error() string {
	if len(e.Available) == 0 {
		return "unknown tool: '" + e.ToolName + "'. No tools registered."
	}
	return "unknown tool: '" + e.ToolName + "'. Available: " + strings.Join(e.Available, ", ")
}
