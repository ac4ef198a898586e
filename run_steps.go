package sdk

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/modelrelay/assistants/sdk/go/routes"
)

// RunStep is a read-only trace record of one action taken during a run.
type RunStep struct {
	ID          string         `json:"id"`
	Object      string         `json:"object"`
	CreatedAt   int64          `json:"created_at"`
	AssistantID string         `json:"assistant_id"`
	ThreadID    string         `json:"thread_id"`
	RunID       string         `json:"run_id"`
	Type        RunStepType    `json:"type"`
	Status      RunStepStatus  `json:"status"`
	StepDetails RunStepDetails `json:"step_details"`
	LastError   *RunError      `json:"last_error,omitempty"`
	ExpiredAt   *int64         `json:"expired_at,omitempty"`
	CancelledAt *int64         `json:"cancelled_at,omitempty"`
	FailedAt    *int64         `json:"failed_at,omitempty"`
	CompletedAt *int64         `json:"completed_at,omitempty"`
	Metadata    Metadata       `json:"metadata,omitempty"`
}

// RunStepDetails is a tagged union keyed by Type: MessageCreation is set for
// message_creation steps and ToolCalls for tool_calls steps.
type RunStepDetails struct {
	Type            RunStepType         `json:"type"`
	MessageCreation *MessageCreationRef `json:"message_creation,omitempty"`
	ToolCalls       []StepToolCall      `json:"tool_calls,omitempty"`
}

// MessageCreationRef points at the message a step produced.
type MessageCreationRef struct {
	MessageID string `json:"message_id"`
}

// StepToolCall records one tool invocation executed during a step. Exactly
// one of Function, CodeInterpreter or Retrieval is set, matching Type.
type StepToolCall struct {
	ID              string               `json:"id"`
	Type            ToolType             `json:"type"`
	Function        *StepFunctionCall    `json:"function,omitempty"`
	CodeInterpreter *CodeInterpreterCall `json:"code_interpreter,omitempty"`
	// Retrieval is always an empty object today.
	Retrieval json.RawMessage `json:"retrieval,omitempty"`
}

// StepFunctionCall is a function call with its submitted output (nil until
// the output has been submitted).
type StepFunctionCall struct {
	Name      string  `json:"name"`
	Arguments string  `json:"arguments"`
	Output    *string `json:"output"`
}

// CodeInterpreterCall captures the code interpreter's input and outputs.
type CodeInterpreterCall struct {
	Input   string                  `json:"input"`
	Outputs []CodeInterpreterOutput `json:"outputs"`
}

// CodeInterpreterOutput is either a log excerpt or a generated image.
type CodeInterpreterOutput struct {
	Type  string            `json:"type"`
	Logs  string            `json:"logs,omitempty"`
	Image *MessageImageFile `json:"image,omitempty"`
}

// FunctionCalls returns the function invocations recorded by a tool_calls step.
func (s RunStep) FunctionCalls() []StepToolCall {
	var out []StepToolCall
	for _, call := range s.StepDetails.ToolCalls {
		if call.Type == ToolTypeFunction && call.Function != nil {
			out = append(out, call)
		}
	}
	return out
}

// ListSteps returns one page of a run's execution steps.
//
// Example:
//
//	page, err := client.Runs.ListSteps(ctx, threadID, runID, sdk.ListOptions{Order: sdk.ListOrderAsc})
//	for _, step := range page.Data {
//	    fmt.Printf("%s %s %s\n", step.ID, step.Type, step.Status)
//	}
func (c *RunsClient) ListSteps(ctx context.Context, threadID, runID string, opts ListOptions) (*ListResponse[RunStep], error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if err := requireRunRef(threadID, runID); err != nil {
		return nil, err
	}
	query, err := opts.query()
	if err != nil {
		return nil, err
	}
	var out ListResponse[RunStep]
	path := expandRoute(routes.ThreadRunSteps, "thread_id", threadID, "run_id", runID)
	if err := c.client.sendAndDecode(ctx, http.MethodGet, path, query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetStep retrieves a single run step.
func (c *RunsClient) GetStep(ctx context.Context, threadID, runID, stepID string) (*RunStep, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if err := requireRunRef(threadID, runID); err != nil {
		return nil, err
	}
	if err := requireID("step_id", stepID); err != nil {
		return nil, err
	}
	var out RunStep
	path := expandRoute(routes.ThreadRunStepByID, "thread_id", threadID, "run_id", runID, "step_id", stepID)
	if err := c.client.sendAndDecode(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
