package sdk

import (
	"fmt"
	"sort"
)

// RequiredToolCalls returns the function calls a run is waiting on, in the
// order the provider listed them. It fails with NoActionRequiredError unless
// the run is in requires_action with a submit_tool_outputs action.
//
// Example:
//
//	calls, err := sdk.RequiredToolCalls(run)
//	if err != nil { /* not waiting on us */ }
//	outputs := map[string]string{}
//	for _, call := range calls {
//	    outputs[call.ID] = runTool(call.Function.Name, call.Function.Arguments)
//	}
//	run, err = client.Runs.SubmitToolOutputs(ctx, run, sdk.BuildSubmission(outputs))
func RequiredToolCalls(run *Run) ([]ToolCall, error) {
	if run == nil {
		return nil, ConfigError{Reason: "run is required"}
	}
	if !run.Status.IsSuspended() {
		return nil, NoActionRequiredError{Status: run.Status}
	}
	action := run.RequiredAction
	if action == nil {
		return nil, ProtocolError{Message: fmt.Sprintf("run %s is requires_action without required_action", run.ID)}
	}
	if action.Type != RequiredActionSubmitToolOutputs {
		return nil, ProtocolError{Message: fmt.Sprintf("run %s requires unsupported action %q", run.ID, action.Type)}
	}
	if action.SubmitToolOutputs == nil || len(action.SubmitToolOutputs.ToolCalls) == 0 {
		return nil, ProtocolError{Message: fmt.Sprintf("run %s requires tool outputs but lists no calls", run.ID)}
	}
	return append([]ToolCall(nil), action.SubmitToolOutputs.ToolCalls...), nil
}

// BuildSubmission packages outputs keyed by tool call id into a submission,
// one entry per key, ordered by id.
func BuildSubmission(outputs map[string]string) SubmitToolOutputsRequest {
	ids := make([]string, 0, len(outputs))
	for id := range outputs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	req := SubmitToolOutputsRequest{ToolOutputs: make([]ToolOutput, 0, len(ids))}
	for _, id := range ids {
		req.ToolOutputs = append(req.ToolOutputs, ToolOutput{ToolCallID: id, Output: outputs[id]})
	}
	return req
}

// checkToolOutputs verifies that outputs answer calls one-to-one.
func checkToolOutputs(calls []ToolCall, outputs []ToolOutput) error {
	pending := make(map[string]bool, len(calls))
	for _, call := range calls {
		pending[call.ID] = true
	}
	seen := make(map[string]bool, len(outputs))
	var report IncompleteToolOutputsError
	for _, out := range outputs {
		switch {
		case !pending[out.ToolCallID]:
			report.Unexpected = append(report.Unexpected, out.ToolCallID)
		case seen[out.ToolCallID]:
			report.Duplicate = append(report.Duplicate, out.ToolCallID)
		default:
			seen[out.ToolCallID] = true
		}
	}
	for _, call := range calls {
		if !seen[call.ID] {
			report.Missing = append(report.Missing, call.ID)
		}
	}
	if len(outputs) == 0 || !report.empty() {
		report.sort()
		return report
	}
	return nil
}
