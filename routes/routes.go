// Package routes provides the API route constants used by the SDK so that
// path templates live in one place.
package routes

// API route paths. Placeholders in braces are substituted (and path-escaped)
// by the SDK before a request is sent.
const (
	// Threads creates a conversation thread.
	Threads = "/threads"

	// ThreadByID retrieves, modifies or deletes a thread.
	ThreadByID = "/threads/{thread_id}"

	// ThreadsRuns creates a thread and starts its first run in one call.
	ThreadsRuns = "/threads/runs"

	// ThreadMessages creates or lists messages on a thread.
	ThreadMessages = "/threads/{thread_id}/messages"

	// ThreadMessageByID retrieves or modifies a single message.
	ThreadMessageByID = "/threads/{thread_id}/messages/{message_id}"

	// ThreadRuns creates or lists runs on a thread.
	ThreadRuns = "/threads/{thread_id}/runs"

	// ThreadRunByID retrieves or modifies a run.
	ThreadRunByID = "/threads/{thread_id}/runs/{run_id}"

	// ThreadRunCancel requests cancellation of a queued or in-progress run.
	ThreadRunCancel = "/threads/{thread_id}/runs/{run_id}/cancel"

	// ThreadRunSubmitToolOutputs resumes a run paused in requires_action.
	ThreadRunSubmitToolOutputs = "/threads/{thread_id}/runs/{run_id}/submit_tool_outputs"

	// ThreadRunSteps lists the execution steps of a run.
	ThreadRunSteps = "/threads/{thread_id}/runs/{run_id}/steps"

	// ThreadRunStepByID retrieves a single run step.
	ThreadRunStepByID = "/threads/{thread_id}/runs/{run_id}/steps/{step_id}"
)
