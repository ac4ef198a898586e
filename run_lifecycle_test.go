package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/modelrelay/assistants/sdk/go/testutil"
)

func TestAwaitReturnsCompletedAfterThreePolls(t *testing.T) {
	srv := testutil.NewAssistantsServer()
	defer srv.Close()
	srv.AddRun("thread_1", testutil.RunScript{
		RunID:    "run_1",
		Statuses: []string{"queued", "in_progress", "completed"},
	})
	client := newTestClient(t, srv.Server)
	sleeper := &recordingSleeper{}

	run, err := client.Runs.Await(context.Background(), "thread_1", "run_1",
		WithPollInterval(250*time.Millisecond), WithSleeper(sleeper.Sleep))
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if run.Status != RunStatusCompleted {
		t.Fatalf("expected completed, got %s", run.Status)
	}
	if got := srv.Polls("run_1"); got != 3 {
		t.Fatalf("expected exactly 3 polls, got %d", got)
	}
	if sleeper.count() != 2 {
		t.Fatalf("expected 2 waits between 3 polls, got %d", sleeper.count())
	}
	for _, d := range sleeper.delays {
		if d != 250*time.Millisecond {
			t.Fatalf("expected 250ms poll interval, got %s", d)
		}
	}
}

func TestAwaitPollingTimeoutKeepsLastRun(t *testing.T) {
	mock := NewMockTransport()
	for i := 0; i < 10; i++ {
		mock.WithJSON(runWithStatus(RunStatusInProgress))
	}
	client := newMockTestClient(t, mock)
	sleeper := &recordingSleeper{}

	run, err := client.Runs.Await(context.Background(), testThreadID, testRunID,
		WithMaxPolls(10), WithSleeper(sleeper.Sleep))
	if err == nil {
		t.Fatal("expected polling timeout")
	}
	if !errors.Is(err, ErrPollingTimeout) {
		t.Fatalf("expected ErrPollingTimeout, got %v", err)
	}
	last, ok := IsPollingTimeout(err)
	if !ok || last == nil {
		t.Fatalf("expected timeout to carry the last run, got %v", err)
	}
	if last.Status != RunStatusInProgress || run == nil || run.Status != RunStatusInProgress {
		t.Fatalf("expected last snapshot in_progress, got %+v / %+v", last, run)
	}
	var timeout *PollingTimeoutError
	if !errors.As(err, &timeout) || timeout.Polls != 10 {
		t.Fatalf("expected 10 polls recorded, got %+v", timeout)
	}
	if got := len(mock.Requests()); got != 10 {
		t.Fatalf("expected 10 fetches, got %d", got)
	}
	if sleeper.count() != 9 {
		t.Fatalf("expected no wait after the final poll (9 waits), got %d", sleeper.count())
	}
}

func TestAwaitKeepsPollingWhileQueuedOrInProgress(t *testing.T) {
	mock := NewMockTransport()
	sequence := []RunStatus{
		RunStatusQueued, RunStatusQueued, RunStatusInProgress,
		RunStatusQueued, RunStatusInProgress, RunStatusInProgress,
	}
	for _, status := range sequence {
		mock.WithJSON(runWithStatus(status))
	}
	mock.WithJSON(requiresActionRun(functionCall("call_1", "GetWeather", `{}`)))
	client := newMockTestClient(t, mock)

	run, err := client.Runs.Await(context.Background(), testThreadID, testRunID, WithSleeper(NoSleep))
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if run.Status != RunStatusRequiresAction {
		t.Fatalf("expected requires_action, got %s", run.Status)
	}
	if got := len(mock.Requests()); got != len(sequence)+1 {
		t.Fatalf("expected %d polls, got %d", len(sequence)+1, got)
	}
	for _, req := range mock.Requests() {
		if req.Method != http.MethodGet || req.Path != "/threads/thread_abc/runs/run_abc" {
			t.Fatalf("unexpected request %s %s", req.Method, req.Path)
		}
	}
}

func TestAwaitReturnsOnEveryTerminalStatus(t *testing.T) {
	for _, status := range []RunStatus{RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusExpired} {
		t.Run(string(status), func(t *testing.T) {
			mock := NewMockTransport().WithJSON(runWithStatus(status))
			client := newMockTestClient(t, mock)
			run, err := client.Runs.Await(context.Background(), testThreadID, testRunID, WithSleeper(NoSleep))
			if err != nil {
				t.Fatalf("await: %v", err)
			}
			if run.Status != status {
				t.Fatalf("expected %s, got %s", status, run.Status)
			}
		})
	}
}

func TestAwaitResumesAfterTimeout(t *testing.T) {
	srv := testutil.NewAssistantsServer()
	defer srv.Close()
	srv.AddRun("thread_1", testutil.RunScript{
		RunID:    "run_1",
		Statuses: []string{"in_progress", "in_progress", "in_progress", "completed"},
	})
	client := newTestClient(t, srv.Server)
	ctx := context.Background()

	run, err := client.Runs.Await(ctx, "thread_1", "run_1", WithMaxPolls(2), WithSleeper(NoSleep))
	if _, ok := IsPollingTimeout(err); !ok {
		t.Fatalf("expected polling timeout, got %v", err)
	}
	run, err = client.Runs.Await(ctx, run.ThreadID, run.ID, WithMaxPolls(2), WithSleeper(NoSleep))
	if err != nil {
		t.Fatalf("resume await: %v", err)
	}
	if run.Status != RunStatusCompleted {
		t.Fatalf("expected completed after resuming, got %s", run.Status)
	}
	if got := srv.Polls("run_1"); got != 4 {
		t.Fatalf("expected 4 polls across both awaits, got %d", got)
	}
}

func TestAwaitStopsWhenContextCancelled(t *testing.T) {
	mock := NewMockTransport().
		WithJSON(runWithStatus(RunStatusInProgress)).
		WithJSON(runWithStatus(RunStatusCompleted))
	client := newMockTestClient(t, mock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cancelling := func(ctx context.Context, _ time.Duration) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	}
	run, err := client.Runs.Await(ctx, testThreadID, testRunID, WithSleeper(cancelling))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if run == nil || run.Status != RunStatusInProgress {
		t.Fatalf("expected last snapshot in_progress, got %+v", run)
	}
	if got := len(mock.Requests()); got != 1 {
		t.Fatalf("expected no poll after cancellation, got %d requests", got)
	}
}

func TestAwaitWithCancelledContextSendsNothing(t *testing.T) {
	mock := NewMockTransport().WithJSON(runWithStatus(RunStatusCompleted))
	client := newMockTestClient(t, mock)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.Runs.Await(ctx, testThreadID, testRunID); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(mock.Requests()) != 0 {
		t.Fatalf("expected no requests, got %d", len(mock.Requests()))
	}
}

func TestAwaitRealSleeperHonoursDeadline(t *testing.T) {
	mock := NewMockTransport()
	for i := 0; i < 5; i++ {
		mock.WithJSON(runWithStatus(RunStatusQueued))
	}
	client := newMockTestClient(t, mock)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Runs.Await(ctx, testThreadID, testRunID, WithPollInterval(time.Hour))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("wait was not interrupted promptly (%s)", elapsed)
	}
}

func TestAwaitUnknownStatusIsProtocolError(t *testing.T) {
	mock := NewMockTransport().WithRaw([]byte(`{"id":"run_abc","thread_id":"thread_abc","status":"paused"}`))
	client := newMockTestClient(t, mock)

	run, err := client.Runs.Await(context.Background(), testThreadID, testRunID, WithSleeper(NoSleep))
	var protoErr ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
	if run == nil || !run.Status.IsOther() {
		t.Fatalf("expected the unknown snapshot to be returned, got %+v", run)
	}
}

func TestAwaitLogsCancellingReversal(t *testing.T) {
	mock := NewMockTransport().
		WithJSON(runWithStatus(RunStatusCancelling)).
		WithJSON(runWithStatus(RunStatusInProgress)).
		WithJSON(runWithStatus(RunStatusCancelled))
	rec := &logRecorder{}
	client := newMockTestClient(t, mock, WithTelemetry(rec.hooks()))

	run, err := client.Runs.Await(context.Background(), testThreadID, testRunID, WithSleeper(NoSleep))
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if run.Status != RunStatusCancelled {
		t.Fatalf("expected cancelled, got %s", run.Status)
	}
	anomalies := rec.withMessage("run_status_anomaly")
	if len(anomalies) != 1 {
		t.Fatalf("expected one anomaly entry, got %d", len(anomalies))
	}
	if anomalies[0].Level != LogLevelWarn || anomalies[0].Fields["to"] != "in_progress" {
		t.Fatalf("unexpected anomaly entry %+v", anomalies[0])
	}
	if len(rec.polls) != 3 {
		t.Fatalf("expected OnRunPoll for every snapshot, got %v", rec.polls)
	}
	if len(rec.metrics) != 1 || rec.metrics[0].Name != "sdk_run_polls" || rec.metrics[0].Value != 3 {
		t.Fatalf("unexpected metrics %+v", rec.metrics)
	}
}

func TestAwaitPropagatesTransportFailures(t *testing.T) {
	t.Run("network", func(t *testing.T) {
		netErr := TransportError{Method: http.MethodGet, Path: "/threads/thread_abc/runs/run_abc", Err: errors.New("connection reset")}
		mock := NewMockTransport().WithJSON(runWithStatus(RunStatusQueued)).WithError(netErr)
		client := newMockTestClient(t, mock)
		run, err := client.Runs.Await(context.Background(), testThreadID, testRunID, WithSleeper(NoSleep))
		var got TransportError
		if !errors.As(err, &got) || got.Err.Error() != "connection reset" {
			t.Fatalf("expected transport error unchanged, got %v", err)
		}
		if run == nil || run.Status != RunStatusQueued {
			t.Fatalf("expected the last good snapshot, got %+v", run)
		}
	})
	t.Run("unknown run", func(t *testing.T) {
		mock := NewMockTransport().WithAPIError(http.StatusNotFound, "", "No run found with id 'run_abc'.")
		client := newMockTestClient(t, mock)
		_, err := client.Runs.Await(context.Background(), testThreadID, testRunID, WithSleeper(NoSleep))
		if !IsInvalidRequest(err) {
			t.Fatalf("expected invalid request, got %v", err)
		}
	})
}

func TestCancelRejectsNonCancellableStatusesWithoutRequest(t *testing.T) {
	statuses := []RunStatus{
		RunStatusCompleted, RunStatusFailed, RunStatusCancelled,
		RunStatusExpired, RunStatusCancelling, RunStatusRequiresAction,
	}
	for _, status := range statuses {
		t.Run(string(status), func(t *testing.T) {
			mock := NewMockTransport().WithJSON(runWithStatus(RunStatusCancelling))
			client := newMockTestClient(t, mock)
			run := runWithStatus(status)
			_, err := client.Runs.Cancel(context.Background(), &run)
			if !errors.Is(err, ErrIllegalStateTransition) {
				t.Fatalf("expected illegal state transition, got %v", err)
			}
			var ist IllegalStateTransitionError
			if !errors.As(err, &ist) || ist.Status != status || ist.Op != "cancel" {
				t.Fatalf("unexpected error details %+v", ist)
			}
			if n := len(mock.Requests()); n != 0 {
				t.Fatalf("expected no network call, got %d", n)
			}
		})
	}
}

func TestCancelPostsToCancelRoute(t *testing.T) {
	for _, status := range []RunStatus{RunStatusQueued, RunStatusInProgress} {
		t.Run(string(status), func(t *testing.T) {
			mock := NewMockTransport().WithJSON(runWithStatus(RunStatusCancelling))
			client := newMockTestClient(t, mock)
			run := runWithStatus(status)
			got, err := client.Runs.Cancel(context.Background(), &run)
			if err != nil {
				t.Fatalf("cancel: %v", err)
			}
			if got.Status != RunStatusCancelling {
				t.Fatalf("expected cancelling snapshot, got %s", got.Status)
			}
			reqs := mock.Requests()
			if len(reqs) != 1 || reqs[0].Method != http.MethodPost || reqs[0].Path != "/threads/thread_abc/runs/run_abc/cancel" {
				t.Fatalf("unexpected requests %+v", reqs)
			}
			if len(reqs[0].Body) != 0 {
				t.Fatalf("expected empty cancel body, got %s", reqs[0].Body)
			}
		})
	}
}

func TestCancelThenAwaitReachesTerminal(t *testing.T) {
	srv := testutil.NewAssistantsServer()
	defer srv.Close()
	srv.AddRun("thread_1", testutil.RunScript{RunID: "run_1", Statuses: []string{"in_progress"}})
	client := newTestClient(t, srv.Server)
	ctx := context.Background()

	run, err := client.Runs.Get(ctx, "thread_1", "run_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	run, err = client.Runs.Cancel(ctx, run)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if run.Status != RunStatusCancelling {
		t.Fatalf("expected cancelling, got %s", run.Status)
	}
	run, err = client.Runs.Await(ctx, run.ThreadID, run.ID, WithSleeper(NoSleep))
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if run.Status != RunStatusCancelled {
		t.Fatalf("expected cancelled, got %s", run.Status)
	}
}

func TestSubmitToolOutputsRequiresAction(t *testing.T) {
	mock := NewMockTransport()
	client := newMockTestClient(t, mock)
	run := runWithStatus(RunStatusInProgress)
	_, err := client.Runs.SubmitToolOutputs(context.Background(), &run, BuildSubmission(map[string]string{"call_1": "28C"}))
	if !errors.Is(err, ErrIllegalStateTransition) {
		t.Fatalf("expected illegal state transition, got %v", err)
	}
	if len(mock.Requests()) != 0 {
		t.Fatal("expected no network call")
	}
}

func TestSubmitToolOutputsRejectsIncompleteSets(t *testing.T) {
	run := requiresActionRun(
		functionCall("call_1", "GetWeather", `{"location":"Kuala Lumpur"}`),
		functionCall("call_2", "GetTime", `{}`),
	)
	cases := []struct {
		name    string
		outputs []ToolOutput
		want    IncompleteToolOutputsError
	}{
		{
			name: "empty",
			want: IncompleteToolOutputsError{Missing: []string{"call_1", "call_2"}},
		},
		{
			name:    "missing",
			outputs: []ToolOutput{{ToolCallID: "call_1", Output: "28C"}},
			want:    IncompleteToolOutputsError{Missing: []string{"call_2"}},
		},
		{
			name: "unknown",
			outputs: []ToolOutput{
				{ToolCallID: "call_1", Output: "28C"},
				{ToolCallID: "call_2", Output: "noon"},
				{ToolCallID: "call_9", Output: "?"},
			},
			want: IncompleteToolOutputsError{Unexpected: []string{"call_9"}},
		},
		{
			name: "duplicate",
			outputs: []ToolOutput{
				{ToolCallID: "call_2", Output: "noon"},
				{ToolCallID: "call_1", Output: "28C"},
				{ToolCallID: "call_1", Output: "29C"},
			},
			want: IncompleteToolOutputsError{Duplicate: []string{"call_1"}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := NewMockTransport()
			client := newMockTestClient(t, mock)
			_, err := client.Runs.SubmitToolOutputs(context.Background(), &run, SubmitToolOutputsRequest{ToolOutputs: tc.outputs})
			if !errors.Is(err, ErrIncompleteToolOutputs) {
				t.Fatalf("expected incomplete tool outputs, got %v", err)
			}
			var got IncompleteToolOutputsError
			errors.As(err, &got)
			if strings.Join(got.Missing, ",") != strings.Join(tc.want.Missing, ",") ||
				strings.Join(got.Unexpected, ",") != strings.Join(tc.want.Unexpected, ",") ||
				strings.Join(got.Duplicate, ",") != strings.Join(tc.want.Duplicate, ",") {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
			if len(mock.Requests()) != 0 {
				t.Fatal("expected no network call")
			}
		})
	}
}

func TestSubmitToolOutputsWeatherRoundTrip(t *testing.T) {
	srv := testutil.NewAssistantsServer()
	defer srv.Close()
	srv.AddRun("thread_1", testutil.RunScript{
		RunID:    "run_1",
		Statuses: []string{"in_progress", "requires_action"},
		ToolCalls: []testutil.ToolCallSpec{
			{ID: "call_1", Name: "GetWeather", Arguments: `{"location":"Kuala Lumpur"}`},
		},
		AfterSubmit: []string{"completed"},
	})
	client := newTestClient(t, srv.Server)
	ctx := context.Background()

	run, err := client.Runs.Await(ctx, "thread_1", "run_1", WithSleeper(NoSleep))
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	calls, err := RequiredToolCalls(run)
	if err != nil {
		t.Fatalf("required calls: %v", err)
	}
	if len(calls) != 1 || calls[0].ID != "call_1" || calls[0].Function.Name != "GetWeather" {
		t.Fatalf("unexpected calls %+v", calls)
	}
	if calls[0].Function.Arguments != `{"location":"Kuala Lumpur"}` {
		t.Fatalf("arguments must stay opaque, got %q", calls[0].Function.Arguments)
	}

	run, err = client.Runs.SubmitToolOutputs(ctx, run, BuildSubmission(map[string]string{"call_1": "28C"}))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if run.Status == RunStatusRequiresAction {
		t.Fatal("expected status to move away from requires_action")
	}
	run, err = client.Runs.Await(ctx, run.ThreadID, run.ID, WithSleeper(NoSleep))
	if err != nil {
		t.Fatalf("await after submit: %v", err)
	}
	if run.Status != RunStatusCompleted {
		t.Fatalf("expected completed, got %s", run.Status)
	}

	bodies := srv.Submissions("run_1")
	if len(bodies) != 1 {
		t.Fatalf("expected one submission, got %d", len(bodies))
	}
	var raw struct {
		ToolOutputs []map[string]string `json:"tool_outputs"`
	}
	if err := json.Unmarshal(bodies[0], &raw); err != nil {
		t.Fatalf("decode submission: %v", err)
	}
	if len(raw.ToolOutputs) != 1 {
		t.Fatalf("expected exactly one output, got %d", len(raw.ToolOutputs))
	}
	if raw.ToolOutputs[0]["tool_call_id"] != "call_1" || raw.ToolOutputs[0]["output"] != "28C" {
		t.Fatalf("unexpected output entry %v", raw.ToolOutputs[0])
	}
}

func TestDriveCompletesToolRoundTrip(t *testing.T) {
	srv := testutil.NewAssistantsServer()
	defer srv.Close()
	srv.QueueRun(testutil.RunScript{
		Statuses: []string{"queued", "in_progress", "requires_action"},
		ToolCalls: []testutil.ToolCallSpec{
			{ID: "call_a", Name: "GetWeather", Arguments: `{"location":"Kuala Lumpur"}`},
			{ID: "call_b", Name: "GetWeather", Arguments: `{"location":"Lisbon"}`},
		},
		AfterSubmit: []string{"in_progress", "completed"},
		Reply:       "It is 28C in Kuala Lumpur and 21C in Lisbon.",
	})
	rec := &logRecorder{}
	client := newTestClient(t, srv.Server, WithTelemetry(rec.hooks()))
	ctx := context.Background()

	type weatherArgs struct {
		Location string `json:"location"`
	}
	registry := NewToolRegistry()
	if err := RegisterTyped(registry, "GetWeather", "Current weather", func(_ context.Context, args weatherArgs) (any, error) {
		if args.Location == "Kuala Lumpur" {
			return "28C", nil
		}
		return "21C", nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	thread, err := client.Threads.Create(ctx, ThreadCreateRequest{
		Messages: []ThreadMessage{{Role: MessageRoleUser, Content: "Weather in KL and Lisbon?"}},
	})
	if err != nil {
		t.Fatalf("create thread: %v", err)
	}
	req, err := NewRunRequestBuilder("asst_weather").Tools(registry.Definitions()).Build()
	if err != nil {
		t.Fatalf("build run: %v", err)
	}
	run, err := client.Runs.Create(ctx, thread.ID, req)
	if err != nil {
		t.Fatalf("create run: %v", err)
	}

	run, err = client.Runs.Drive(ctx, run, registry, WithSleeper(NoSleep))
	if err != nil {
		t.Fatalf("drive: %v", err)
	}
	if run.Status != RunStatusCompleted {
		t.Fatalf("expected completed, got %s", run.Status)
	}

	bodies := srv.Submissions(run.ID)
	if len(bodies) != 1 {
		t.Fatalf("expected one submission, got %d", len(bodies))
	}
	var sub SubmitToolOutputsRequest
	if err := json.Unmarshal(bodies[0], &sub); err != nil {
		t.Fatalf("decode submission: %v", err)
	}
	if len(sub.ToolOutputs) != 2 ||
		sub.ToolOutputs[0] != (ToolOutput{ToolCallID: "call_a", Output: "28C"}) ||
		sub.ToolOutputs[1] != (ToolOutput{ToolCallID: "call_b", Output: "21C"}) {
		t.Fatalf("unexpected submission %+v", sub.ToolOutputs)
	}
	if len(rec.withMessage("tool_dispatch")) != 1 {
		t.Fatal("expected a tool_dispatch log entry")
	}

	page, err := client.Messages.List(ctx, thread.ID, ListOptions{Limit: 1})
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(page.Data) == 0 || page.Data[0].Role != MessageRoleAssistant || !strings.Contains(page.Data[0].Text(), "28C") {
		t.Fatalf("unexpected latest message %+v", page.Data)
	}
}

func TestDriveRequiresRegistryForToolCalls(t *testing.T) {
	client := newMockTestClient(t, NewMockTransport())
	run := requiresActionRun(functionCall("call_1", "GetWeather", `{}`))
	got, err := client.Runs.Drive(context.Background(), &run, nil)
	var cfgErr ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if got.Status != RunStatusRequiresAction {
		t.Fatalf("expected the suspended run back, got %s", got.Status)
	}
}

func TestDriveStopsOnUnknownTool(t *testing.T) {
	mock := NewMockTransport()
	client := newMockTestClient(t, mock)
	registry := NewToolRegistry().Register("GetTime", func(context.Context, ToolCall) (any, error) { return "noon", nil })
	run := requiresActionRun(functionCall("call_1", "GetWeather", `{}`))

	_, err := client.Runs.Drive(context.Background(), &run, registry)
	var unknown *UnknownToolError
	if !errors.As(err, &unknown) || unknown.ToolName != "GetWeather" {
		t.Fatalf("expected UnknownToolError, got %v", err)
	}
	if len(mock.Requests()) != 0 {
		t.Fatal("expected nothing to be submitted")
	}
}

func TestDriveReturnsTerminalRunImmediately(t *testing.T) {
	mock := NewMockTransport()
	client := newMockTestClient(t, mock)
	run := runWithStatus(RunStatusFailed)
	run.LastError = &RunError{Code: "server_error", Message: "boom"}

	got, err := client.Runs.Drive(context.Background(), &run, NewToolRegistry())
	if err != nil {
		t.Fatalf("drive: %v", err)
	}
	if got.Status != RunStatusFailed || got.LastError == nil {
		t.Fatalf("expected failed run with error, got %+v", got)
	}
	if len(mock.Requests()) != 0 {
		t.Fatal("expected no requests for a terminal run")
	}
}

func TestAwaitLogsAnyUnexpectedExitFromCancelling(t *testing.T) {
	cases := []struct {
		name      string
		statuses  []RunStatus
		anomalies int
	}{
		{"cancelled", []RunStatus{RunStatusCancelling, RunStatusCancelling, RunStatusCancelled}, 0},
		{"failed", []RunStatus{RunStatusCancelling, RunStatusFailed}, 0},
		{"completed", []RunStatus{RunStatusCancelling, RunStatusCompleted}, 1},
		{"requires_action", []RunStatus{RunStatusCancelling, RunStatusRequiresAction}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := NewMockTransport()
			for _, status := range tc.statuses {
				if status == RunStatusRequiresAction {
					mock.WithJSON(requiresActionRun(functionCall("call_1", "GetWeather", `{}`)))
					continue
				}
				mock.WithJSON(runWithStatus(status))
			}
			rec := &logRecorder{}
			client := newMockTestClient(t, mock, WithTelemetry(rec.hooks()))

			run, err := client.Runs.Await(context.Background(), testThreadID, testRunID, WithSleeper(NoSleep))
			if err != nil {
				t.Fatalf("await: %v", err)
			}
			last := tc.statuses[len(tc.statuses)-1]
			if run.Status != last {
				t.Fatalf("expected %s, got %s", last, run.Status)
			}
			anomalies := rec.withMessage("run_status_anomaly")
			if len(anomalies) != tc.anomalies {
				t.Fatalf("expected %d anomaly entries, got %d", tc.anomalies, len(anomalies))
			}
			if tc.anomalies > 0 && anomalies[0].Fields["to"] != string(last) {
				t.Fatalf("unexpected anomaly entry %+v", anomalies[0])
			}
		})
	}
}

func TestDriveKeepsSubmitSnapshotOnProtocolError(t *testing.T) {
	bad := runWithStatus(RunStatusCompleted)
	bad.RequiredAction = &RequiredAction{Type: RequiredActionSubmitToolOutputs}
	mock := NewMockTransport().WithJSON(bad)
	client := newMockTestClient(t, mock)
	registry := NewToolRegistry().Register("GetWeather", func(context.Context, ToolCall) (any, error) {
		return "28C", nil
	})

	start := requiresActionRun(functionCall("call_1", "GetWeather", `{"location":"Kuala Lumpur"}`))
	run, err := client.Runs.Drive(context.Background(), &start, registry, WithSleeper(NoSleep))
	var protoErr ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
	if run == nil || run.Status != RunStatusCompleted {
		t.Fatalf("expected the snapshot returned by the submit call, got %+v", run)
	}
	if len(mock.Requests()) != 1 {
		t.Fatalf("expected only the submit request, got %d", len(mock.Requests()))
	}
}
