package sdk

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/modelrelay/assistants/sdk/go/testutil"
)

func TestRunValidateRequiredActionPresence(t *testing.T) {
	for _, status := range []RunStatus{
		RunStatusQueued, RunStatusInProgress, RunStatusCancelling, RunStatusCancelled,
		RunStatusFailed, RunStatusCompleted, RunStatusExpired,
	} {
		run := runWithStatus(status)
		if err := run.Validate(); err != nil {
			t.Fatalf("%s without action must be valid: %v", status, err)
		}
		run.RequiredAction = &RequiredAction{Type: RequiredActionSubmitToolOutputs}
		var protoErr ProtocolError
		if err := run.Validate(); !errors.As(err, &protoErr) {
			t.Fatalf("%s with action must be rejected, got %v", status, err)
		}
	}

	missing := runWithStatus(RunStatusRequiresAction)
	var protoErr ProtocolError
	if err := missing.Validate(); !errors.As(err, &protoErr) {
		t.Fatalf("requires_action without action must be rejected, got %v", err)
	}

	valid := requiresActionRun(functionCall("call_1", "GetWeather", `{}`))
	if err := valid.Validate(); err != nil {
		t.Fatalf("well-formed requires_action must be valid: %v", err)
	}
}

func TestRunValidateToolCalls(t *testing.T) {
	cases := map[string]Run{
		"no calls":       requiresActionRun(),
		"missing id":     requiresActionRun(functionCall("", "f", "")),
		"missing name":   requiresActionRun(functionCall("call_1", "", "")),
		"non-function":   requiresActionRun(ToolCall{ID: "call_1", Type: ToolTypeRetrieval}),
		"missing action": {Status: RunStatusRequiresAction, RequiredAction: &RequiredAction{}},
	}
	for name, run := range cases {
		var protoErr ProtocolError
		if err := run.Validate(); !errors.As(err, &protoErr) {
			t.Errorf("%s: expected ProtocolError, got %v", name, err)
		}
	}
}

func TestRunsGetReturnsSnapshotWithProtocolError(t *testing.T) {
	mock := NewMockTransport().WithRaw([]byte(`{"id":"run_1","thread_id":"thread_1","status":"completed","required_action":{"type":"submit_tool_outputs","submit_tool_outputs":{"tool_calls":[]}}}`))
	client := newMockTestClient(t, mock)

	run, err := client.Runs.Get(context.Background(), "thread_1", "run_1")
	var protoErr ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
	if run == nil || run.ID != "run_1" {
		t.Fatalf("expected the offending snapshot alongside the error, got %+v", run)
	}
}

func TestRunsGetDecodesRequiredAction(t *testing.T) {
	mock := NewMockTransport().WithJSON(requiresActionRun(
		functionCall("call_1", "GetWeather", `{"location":"Kuala Lumpur"}`),
	))
	client := newMockTestClient(t, mock)

	run, err := client.Runs.Get(context.Background(), testThreadID, testRunID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if run.RequiredAction.Kind() != RequiredActionSubmitToolOutputs {
		t.Fatalf("unexpected action %+v", run.RequiredAction)
	}
	call := run.RequiredAction.SubmitToolOutputs.ToolCalls[0]
	if call.Function.Arguments != `{"location":"Kuala Lumpur"}` {
		t.Fatalf("arguments must be kept verbatim, got %q", call.Function.Arguments)
	}
	reqs := mock.Requests()
	if reqs[0].Method != http.MethodGet || reqs[0].Path != "/threads/thread_abc/runs/run_abc" {
		t.Fatalf("unexpected request %+v", reqs[0])
	}
}

func TestRunMetadataRoundTrip(t *testing.T) {
	srv := testutil.NewAssistantsServer()
	defer srv.Close()
	client := newTestClient(t, srv.Server)
	ctx := context.Background()

	thread, err := client.Threads.Create(ctx, ThreadCreateRequest{})
	if err != nil {
		t.Fatalf("create thread: %v", err)
	}
	srv.QueueRun(testutil.RunScript{RunID: "run_md", Statuses: []string{"in_progress"}})
	created, err := client.Runs.Create(ctx, thread.ID, RunCreateRequest{
		AssistantID: "asst_1",
		Metadata:    Metadata{"key": "value"},
	})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if created.Status != RunStatusQueued || created.AssistantID != "asst_1" {
		t.Fatalf("unexpected created run %+v", created)
	}

	fetched, err := client.Runs.Get(ctx, thread.ID, created.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if len(fetched.Metadata) != 1 || fetched.Metadata["key"] != "value" {
		t.Fatalf("metadata must round trip unchanged, got %v", fetched.Metadata)
	}
}

func TestRunsCreateUnknownThreadIsInvalidRequest(t *testing.T) {
	srv := testutil.NewAssistantsServer()
	defer srv.Close()
	client := newTestClient(t, srv.Server)

	_, err := client.Runs.Create(context.Background(), "thread_missing", RunCreateRequest{AssistantID: "asst_1"})
	if !IsInvalidRequest(err) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestRunsListAndModify(t *testing.T) {
	mock := NewMockTransport().
		WithRaw([]byte(`{"object":"list","data":[{"id":"run_2","status":"completed"},{"id":"run_1","status":"expired"}],"first_id":"run_2","last_id":"run_1","has_more":true}`)).
		WithJSON(Run{ID: "run_1", Status: RunStatusExpired, Metadata: Metadata{"reviewed": "yes"}})
	client := newMockTestClient(t, mock)
	ctx := context.Background()

	page, err := client.Runs.List(ctx, "thread_1", ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Data) != 2 || page.Data[1].Status != RunStatusExpired {
		t.Fatalf("unexpected page %+v", page)
	}
	if next, ok := page.NextPage(ListOptions{Limit: 2}); !ok || next.After != "run_1" {
		t.Fatalf("unexpected next page %+v %v", next, ok)
	}

	run, err := client.Runs.Modify(ctx, "thread_1", "run_1", RunModifyRequest{Metadata: Metadata{"reviewed": "yes"}})
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if run.Metadata["reviewed"] != "yes" {
		t.Fatalf("unexpected run %+v", run)
	}

	reqs := mock.Requests()
	if reqs[0].Query["limit"] != "2" {
		t.Fatalf("unexpected list query %v", reqs[0].Query)
	}
	if reqs[1].Method != http.MethodPost || reqs[1].Path != "/threads/thread_1/runs/run_1" {
		t.Fatalf("unexpected modify request %+v", reqs[1])
	}
}

func TestCreateThreadAndRun(t *testing.T) {
	mock := NewMockTransport().WithJSON(Run{ID: "run_1", ThreadID: "thread_new", Status: RunStatusQueued})
	client := newMockTestClient(t, mock)

	req, err := NewRunRequestBuilder("asst_1").UserMessage("hello").BuildThreadAndRun()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	run, err := client.Runs.CreateThreadAndRun(context.Background(), req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if run.ThreadID != "thread_new" {
		t.Fatalf("unexpected run %+v", run)
	}
	if got := mock.Requests()[0].Path; got != "/threads/runs" {
		t.Fatalf("unexpected path %q", got)
	}
}
