package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/modelrelay/assistants/sdk/go/routes"
)

// Run is one execution of an assistant against a thread. Status and
// RequiredAction are the only fields the provider changes after creation;
// every fetch returns an independent snapshot.
type Run struct {
	ID             string          `json:"id"`
	Object         string          `json:"object"`
	CreatedAt      int64           `json:"created_at"`
	ThreadID       string          `json:"thread_id"`
	AssistantID    string          `json:"assistant_id"`
	Status         RunStatus       `json:"status"`
	RequiredAction *RequiredAction `json:"required_action,omitempty"`
	LastError      *RunError       `json:"last_error,omitempty"`
	ExpiresAt      *int64          `json:"expires_at,omitempty"`
	StartedAt      *int64          `json:"started_at,omitempty"`
	CancelledAt    *int64          `json:"cancelled_at,omitempty"`
	FailedAt       *int64          `json:"failed_at,omitempty"`
	CompletedAt    *int64          `json:"completed_at,omitempty"`
	Model          string          `json:"model"`
	Instructions   string          `json:"instructions"`
	Tools          []Tool          `json:"tools"`
	FileIDs        []string        `json:"file_ids,omitempty"`
	Metadata       Metadata        `json:"metadata,omitempty"`
	Usage          *RunUsage       `json:"usage,omitempty"`
}

// Validate checks that RequiredAction is present exactly when the run is in
// requires_action, and that a submit_tool_outputs action names at least one
// well-formed function call.
func (r Run) Validate() error {
	if r.Status == RunStatusRequiresAction {
		if r.RequiredAction == nil {
			return ProtocolError{Message: fmt.Sprintf("run %s is requires_action without required_action", r.ID)}
		}
		return r.RequiredAction.validate()
	}
	if r.RequiredAction != nil {
		return ProtocolError{Message: fmt.Sprintf("run %s is %s but carries required_action", r.ID, r.Status)}
	}
	return nil
}

// RunError describes why a run failed.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e RunError) Error() string { return e.Code + ": " + e.Message }

// RunUsage reports token usage once a run reaches a terminal status.
type RunUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// RequiredAction is a tagged union keyed by Type. submit_tool_outputs is the
// only variant today; callers should switch on Type with a default branch so
// new variants do not break them.
type RequiredAction struct {
	Type              RequiredActionType       `json:"type"`
	SubmitToolOutputs *SubmitToolOutputsAction `json:"submit_tool_outputs,omitempty"`
}

// SubmitToolOutputsAction lists the function calls the caller must execute.
type SubmitToolOutputsAction struct {
	ToolCalls []ToolCall `json:"tool_calls"`
}

// Kind returns the action variant; RequiredActionSubmitToolOutputs is the
// only one the SDK acts on.
func (a RequiredAction) Kind() RequiredActionType { return a.Type }

func (a RequiredAction) validate() error {
	switch a.Type {
	case RequiredActionSubmitToolOutputs:
		if a.SubmitToolOutputs == nil || len(a.SubmitToolOutputs.ToolCalls) == 0 {
			return ProtocolError{Message: "submit_tool_outputs action has no tool calls"}
		}
		for _, call := range a.SubmitToolOutputs.ToolCalls {
			if call.ID == "" {
				return ProtocolError{Message: "tool call is missing id"}
			}
			if call.Type != ToolTypeFunction {
				return ProtocolError{Message: fmt.Sprintf("tool call %s has unsupported type %q", call.ID, call.Type)}
			}
			if call.Function.Name == "" {
				return ProtocolError{Message: fmt.Sprintf("tool call %s is missing function name", call.ID)}
			}
		}
		return nil
	case "":
		return ProtocolError{Message: "required_action is missing type"}
	default:
		// Unknown variants decode as-is; RequiredToolCalls reports them.
		return nil
	}
}

// ToolCall is one function invocation requested by the provider.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     ToolType     `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the function and carries its arguments as an opaque
// JSON string, exactly as the provider sent it.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolOutput is the caller's result for one ToolCall.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// SubmitToolOutputsRequest resumes a run paused in requires_action. It must
// carry exactly one output for every outstanding tool call.
type SubmitToolOutputsRequest struct {
	ToolOutputs []ToolOutput `json:"tool_outputs"`
}

// Tool enables a capability for a run.
type Tool struct {
	Type     ToolType            `json:"type"`
	Function *FunctionDefinition `json:"function,omitempty"`
}

// FunctionDefinition declares a caller-executed function. Parameters is a
// JSON Schema object describing the arguments.
type FunctionDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// CodeInterpreterTool enables the provider-hosted code interpreter.
func CodeInterpreterTool() Tool { return Tool{Type: ToolTypeCodeInterpreter} }

// RetrievalTool enables provider-hosted retrieval over attached files.
func RetrievalTool() Tool { return Tool{Type: ToolTypeRetrieval} }

// FunctionTool enables a caller-executed function.
func FunctionTool(def FunctionDefinition) Tool {
	return Tool{Type: ToolTypeFunction, Function: &def}
}

// RunCreateRequest starts a run on an existing thread. Empty overrides
// inherit the assistant's configuration.
type RunCreateRequest struct {
	AssistantID            string   `json:"assistant_id"`
	Model                  string   `json:"model,omitempty"`
	Instructions           string   `json:"instructions,omitempty"`
	AdditionalInstructions string   `json:"additional_instructions,omitempty"`
	Tools                  []Tool   `json:"tools,omitempty"`
	Metadata               Metadata `json:"metadata,omitempty"`
}

// Validate checks required fields, tool definitions and metadata limits.
func (r RunCreateRequest) Validate() error {
	if err := requireID("assistant_id", r.AssistantID); err != nil {
		return err
	}
	if err := validateTools(r.Tools); err != nil {
		return err
	}
	return r.Metadata.Validate()
}

// ThreadAndRunCreateRequest creates a thread and its first run in one call.
type ThreadAndRunCreateRequest struct {
	AssistantID  string               `json:"assistant_id"`
	Thread       *ThreadCreateRequest `json:"thread,omitempty"`
	Model        string               `json:"model,omitempty"`
	Instructions string               `json:"instructions,omitempty"`
	Tools        []Tool               `json:"tools,omitempty"`
	Metadata     Metadata             `json:"metadata,omitempty"`
}

// Validate checks required fields, the thread seed, tools and metadata limits.
func (r ThreadAndRunCreateRequest) Validate() error {
	if err := requireID("assistant_id", r.AssistantID); err != nil {
		return err
	}
	if r.Thread != nil {
		if err := r.Thread.Validate(); err != nil {
			return err
		}
	}
	if err := validateTools(r.Tools); err != nil {
		return err
	}
	return r.Metadata.Validate()
}

// RunModifyRequest replaces a run's metadata.
type RunModifyRequest struct {
	Metadata Metadata `json:"metadata"`
}

// RunsClient calls the /threads/{thread_id}/runs endpoints and drives the run
// lifecycle. It holds no state between calls, so one client may await many
// runs concurrently.
type RunsClient struct {
	client *Client
}

func (c *RunsClient) ensureInitialized() error {
	if c == nil || c.client == nil {
		return ConfigError{Reason: "runs client not initialized"}
	}
	return nil
}

// Create starts a run on an existing thread. An unknown thread or assistant
// is reported by the provider and returned unchanged as an APIError.
func (c *RunsClient) Create(ctx context.Context, threadID string, req RunCreateRequest) (*Run, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if err := requireID("thread_id", threadID); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	path := expandRoute(routes.ThreadRuns, "thread_id", threadID)
	return c.postRun(ctx, path, req)
}

// CreateThreadAndRun creates a thread and starts its first run atomically.
func (c *RunsClient) CreateThreadAndRun(ctx context.Context, req ThreadAndRunCreateRequest) (*Run, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return c.postRun(ctx, routes.ThreadsRuns, req)
}

// Get fetches a fresh snapshot of a run.
func (c *RunsClient) Get(ctx context.Context, threadID, runID string) (*Run, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if err := requireRunRef(threadID, runID); err != nil {
		return nil, err
	}
	var out Run
	path := expandRoute(routes.ThreadRunByID, "thread_id", threadID, "run_id", runID)
	if err := c.client.sendAndDecode(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		return &out, err
	}
	return &out, nil
}

// Modify replaces the metadata of a run.
func (c *RunsClient) Modify(ctx context.Context, threadID, runID string, req RunModifyRequest) (*Run, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if err := requireRunRef(threadID, runID); err != nil {
		return nil, err
	}
	if err := req.Metadata.Validate(); err != nil {
		return nil, err
	}
	path := expandRoute(routes.ThreadRunByID, "thread_id", threadID, "run_id", runID)
	return c.postRun(ctx, path, req)
}

// List returns one page of a thread's runs.
func (c *RunsClient) List(ctx context.Context, threadID string, opts ListOptions) (*ListResponse[Run], error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if err := requireID("thread_id", threadID); err != nil {
		return nil, err
	}
	query, err := opts.query()
	if err != nil {
		return nil, err
	}
	var out ListResponse[Run]
	path := expandRoute(routes.ThreadRuns, "thread_id", threadID)
	if err := c.client.sendAndDecode(ctx, http.MethodGet, path, query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RunsClient) postRun(ctx context.Context, path string, payload any) (*Run, error) {
	var out Run
	if err := c.client.sendAndDecode(ctx, http.MethodPost, path, nil, payload, &out); err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		return &out, err
	}
	return &out, nil
}

func requireRunRef(threadID, runID string) error {
	if err := requireID("thread_id", threadID); err != nil {
		return err
	}
	return requireID("run_id", runID)
}
