package sdk

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RunStatus is the lifecycle status of a run. Only the provider moves a run
// between statuses; the client observes transitions by re-fetching.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusExpired        RunStatus = "expired"
)

// ParseRunStatus normalizes known statuses while keeping unknown values.
func ParseRunStatus(val string) RunStatus {
	normalized := strings.TrimSpace(strings.ToLower(val))
	switch normalized {
	case "":
		return ""
	case "queued":
		return RunStatusQueued
	case "in_progress":
		return RunStatusInProgress
	case "requires_action":
		return RunStatusRequiresAction
	case "cancelling":
		return RunStatusCancelling
	case "cancelled", "canceled":
		return RunStatusCancelled
	case "failed":
		return RunStatusFailed
	case "completed":
		return RunStatusCompleted
	case "expired":
		return RunStatusExpired
	default:
		return RunStatus(val)
	}
}

// IsPollAgain reports whether a waiter should fetch the run again.
// cancelling is included: it only ever resolves to cancelled or failed.
func (s RunStatus) IsPollAgain() bool {
	switch s {
	case RunStatusQueued, RunStatusInProgress, RunStatusCancelling:
		return true
	default:
		return false
	}
}

// IsSuspended reports whether the run is paused waiting on the caller.
func (s RunStatus) IsSuspended() bool {
	return s == RunStatusRequiresAction
}

// IsTerminal reports whether the run can no longer change status.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCancelled, RunStatusFailed, RunStatusCompleted, RunStatusExpired:
		return true
	default:
		return false
	}
}

// IsCancellable reports whether a cancel request is valid in this status.
func (s RunStatus) IsCancellable() bool {
	return s == RunStatusQueued || s == RunStatusInProgress
}

// IsOther reports whether the value is not one of the known constants.
func (s RunStatus) IsOther() bool {
	return !s.IsPollAgain() && !s.IsSuspended() && !s.IsTerminal() && strings.TrimSpace(string(s)) != ""
}

func (s RunStatus) String() string { return string(s) }

func (s *RunStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseRunStatus(raw)
	return nil
}

// RunStepStatus is the status of a single run step.
type RunStepStatus string

const (
	RunStepStatusInProgress RunStepStatus = "in_progress"
	RunStepStatusCancelled  RunStepStatus = "cancelled"
	RunStepStatusFailed     RunStepStatus = "failed"
	RunStepStatusCompleted  RunStepStatus = "completed"
	RunStepStatusExpired    RunStepStatus = "expired"
)

// IsTerminal reports whether the step has finished.
func (s RunStepStatus) IsTerminal() bool {
	return s != RunStepStatusInProgress && s != ""
}

// RunStepType discriminates run step details.
type RunStepType string

const (
	RunStepTypeMessageCreation RunStepType = "message_creation"
	RunStepTypeToolCalls       RunStepType = "tool_calls"
)

// MessageRole identifies who authored a thread message.
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// ParseMessageRole validates a role string.
func ParseMessageRole(val string) (MessageRole, error) {
	switch strings.TrimSpace(strings.ToLower(val)) {
	case "user":
		return MessageRoleUser, nil
	case "assistant":
		return MessageRoleAssistant, nil
	default:
		return "", ConfigError{Reason: fmt.Sprintf("invalid message role %q (must be user or assistant)", val)}
	}
}

// ToolType discriminates tool definitions and tool calls.
type ToolType string

const (
	ToolTypeFunction        ToolType = "function"
	ToolTypeCodeInterpreter ToolType = "code_interpreter"
	ToolTypeRetrieval       ToolType = "retrieval"
)

// RequiredActionType discriminates RequiredAction variants.
type RequiredActionType string

const (
	RequiredActionSubmitToolOutputs RequiredActionType = "submit_tool_outputs"
)

// ListOrder is the sort order of list endpoints by creation time.
type ListOrder string

const (
	ListOrderAsc  ListOrder = "asc"
	ListOrderDesc ListOrder = "desc"
)

func (o ListOrder) valid() bool {
	return o == "" || o == ListOrderAsc || o == ListOrderDesc
}
