package sdk

import (
	"context"
	"fmt"
	"time"

	"github.com/modelrelay/assistants/sdk/go/routes"
)

const (
	defaultPollInterval = time.Second
	defaultMaxPolls     = 60
)

// Sleeper suspends the caller between polls. It must return ctx.Err() as soon
// as ctx is done. Tests inject a Sleeper that returns immediately.
type Sleeper func(ctx context.Context, d time.Duration) error

type awaitOptions struct {
	interval time.Duration
	maxPolls int
	sleep    Sleeper
}

// AwaitOption customizes Await and Drive.
type AwaitOption func(*awaitOptions)

// WithPollInterval sets the wait between polls (default 1s).
func WithPollInterval(d time.Duration) AwaitOption {
	return func(o *awaitOptions) { o.interval = d }
}

// WithMaxPolls bounds the number of fetches per Await call (default 60).
func WithMaxPolls(n int) AwaitOption {
	return func(o *awaitOptions) { o.maxPolls = n }
}

// WithSleeper replaces the timer-based wait between polls.
func WithSleeper(s Sleeper) AwaitOption {
	return func(o *awaitOptions) { o.sleep = s }
}

func buildAwaitOptions(opts []AwaitOption) awaitOptions {
	out := awaitOptions{
		interval: defaultPollInterval,
		maxPolls: defaultMaxPolls,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&out)
		}
	}
	if out.interval < 0 {
		out.interval = 0
	}
	if out.maxPolls <= 0 {
		out.maxPolls = defaultMaxPolls
	}
	if out.sleep == nil {
		out.sleep = sleepContext
	}
	return out
}

// Await re-fetches a run until it leaves queued, in_progress and cancelling,
// sleeping between polls. Polls are strictly sequential.
//
// The returned run is always the last snapshot fetched, whatever the outcome:
//   - requires_action or a terminal status: (run, nil)
//   - still polling after maxPolls fetches: (run, *PollingTimeoutError); await again to resume
//   - ctx done while waiting: (run, err) with errors.Is(err, ctx.Err())
//
// ctx only stops the local wait; it never cancels the run itself (see Cancel).
//
// Example:
//
//	run, err := client.Runs.Await(ctx, run.ThreadID, run.ID, sdk.WithPollInterval(500*time.Millisecond))
//	if last, ok := sdk.IsPollingTimeout(err); ok {
//	    log.Printf("run %s still %s", last.ID, last.Status)
//	}
func (c *RunsClient) Await(ctx context.Context, threadID, runID string, opts ...AwaitOption) (*Run, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if err := requireRunRef(threadID, runID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	options := buildAwaitOptions(opts)
	telemetry := c.client.telemetry

	var last *Run
	sawCancelling := false
	for poll := 1; ; poll++ {
		run, err := c.Get(ctx, threadID, runID)
		if run != nil {
			last = run
		}
		if err != nil {
			return last, err
		}
		telemetry.runPolled(ctx, *run, poll)
		telemetry.log(ctx, LogLevelDebug, "run_poll", map[string]any{
			"thread_id": threadID,
			"run_id":    runID,
			"status":    string(run.Status),
			"poll":      poll,
		})

		// cancelling only ever resolves to cancelled or failed.
		switch {
		case run.Status == RunStatusCancelling:
			sawCancelling = true
		case sawCancelling && run.Status != RunStatusCancelled && run.Status != RunStatusFailed:
			sawCancelling = false
			telemetry.log(ctx, LogLevelWarn, "run_status_anomaly", map[string]any{
				"thread_id": threadID,
				"run_id":    runID,
				"from":      string(RunStatusCancelling),
				"to":        string(run.Status),
			})
		}

		if !run.Status.IsPollAgain() {
			telemetry.metric(ctx, "sdk_run_polls", float64(poll), map[string]string{"status": string(run.Status)})
			if !run.Status.IsSuspended() && !run.Status.IsTerminal() {
				return run, ProtocolError{Message: fmt.Sprintf("run %s has unknown status %q", runID, run.Status)}
			}
			return run, nil
		}
		if poll >= options.maxPolls {
			telemetry.log(ctx, LogLevelWarn, "run_await_timeout", map[string]any{
				"thread_id": threadID,
				"run_id":    runID,
				"status":    string(run.Status),
				"polls":     poll,
			})
			return run, &PollingTimeoutError{LastRun: run, Polls: poll}
		}
		if err := options.sleep(ctx, options.interval); err != nil {
			return run, fmt.Errorf("sdk: await run %s after %d polls: %w", runID, poll, err)
		}
	}
}

// Cancel asks the provider to stop a run. run is the last observed snapshot;
// unless it is queued or in_progress an IllegalStateTransitionError is
// returned without sending a request. The result is the immediate snapshot,
// usually cancelling; Await it for the terminal outcome.
func (c *RunsClient) Cancel(ctx context.Context, run *Run) (*Run, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ConfigError{Reason: "run is required"}
	}
	if err := requireRunRef(run.ThreadID, run.ID); err != nil {
		return nil, err
	}
	if !run.Status.IsCancellable() {
		return nil, IllegalStateTransitionError{
			Op:     "cancel",
			Status: run.Status,
			Want:   []RunStatus{RunStatusQueued, RunStatusInProgress},
		}
	}
	path := expandRoute(routes.ThreadRunCancel, "thread_id", run.ThreadID, "run_id", run.ID)
	return c.postRun(ctx, path, nil)
}

// SubmitToolOutputs resumes a run paused in requires_action. run is the last
// observed snapshot; req must answer every outstanding tool call exactly
// once. Both conditions are checked before any request is sent.
func (c *RunsClient) SubmitToolOutputs(ctx context.Context, run *Run, req SubmitToolOutputsRequest) (*Run, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ConfigError{Reason: "run is required"}
	}
	if err := requireRunRef(run.ThreadID, run.ID); err != nil {
		return nil, err
	}
	if !run.Status.IsSuspended() {
		return nil, IllegalStateTransitionError{
			Op:     "submit tool outputs to",
			Status: run.Status,
			Want:   []RunStatus{RunStatusRequiresAction},
		}
	}
	calls, err := RequiredToolCalls(run)
	if err != nil {
		return nil, err
	}
	if err := checkToolOutputs(calls, req.ToolOutputs); err != nil {
		return nil, err
	}
	path := expandRoute(routes.ThreadRunSubmitToolOutputs, "thread_id", run.ThreadID, "run_id", run.ID)
	return c.postRun(ctx, path, req)
}

// Drive runs the full round trip: it awaits run, answers every
// requires_action pause through registry, and returns once the run is
// terminal. On a polling timeout the last snapshot is returned with the error
// so the caller can Drive it again.
//
// Example:
//
//	run, err := client.Runs.Create(ctx, thread.ID, req)
//	if err != nil { /* handle */ }
//	run, err = client.Runs.Drive(ctx, run, registry, sdk.WithMaxPolls(120))
//	if err == nil && run.Status == sdk.RunStatusCompleted {
//	    msgs, _ := client.Messages.List(ctx, thread.ID, sdk.ListOptions{Limit: 1})
//	    fmt.Println(msgs.Data[0].Text())
//	}
func (c *RunsClient) Drive(ctx context.Context, run *Run, registry *ToolRegistry, opts ...AwaitOption) (*Run, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ConfigError{Reason: "run is required"}
	}
	current := run
	for {
		if current.Status.IsPollAgain() {
			next, err := c.Await(ctx, current.ThreadID, current.ID, opts...)
			if next != nil {
				current = next
			}
			if err != nil {
				return current, err
			}
		}
		switch {
		case current.Status.IsTerminal():
			return current, nil
		case current.Status.IsSuspended():
			if registry == nil {
				return current, ConfigError{Reason: "run requires action but no tool registry was supplied"}
			}
			req, err := registry.Dispatch(ctx, current)
			if err != nil {
				return current, err
			}
			c.client.telemetry.log(ctx, LogLevelInfo, "tool_dispatch", map[string]any{
				"thread_id": current.ThreadID,
				"run_id":    current.ID,
				"outputs":   len(req.ToolOutputs),
			})
			next, err := c.SubmitToolOutputs(ctx, current, req)
			if next != nil {
				current = next
			}
			if err != nil {
				return current, err
			}
		default:
			return current, ProtocolError{Message: fmt.Sprintf("run %s has unknown status %q", current.ID, current.Status)}
		}
	}
}
