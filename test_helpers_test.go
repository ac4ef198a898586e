package sdk

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

const (
	testThreadID = "thread_abc"
	testRunID    = "run_abc"
	testAPIKey   = "sk-test-123"
)

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithBaseURL(srv.URL), WithHTTPClient(srv.Client())}, opts...)
	client, err := NewClientWithKey(testAPIKey, opts...)
	if err != nil {
		t.Fatalf("new test client: %v", err)
	}
	return client
}

func newMockTestClient(t *testing.T, mock *MockTransport, opts ...Option) *Client {
	t.Helper()
	client, err := NewMockClient(mock, opts...)
	if err != nil {
		t.Fatalf("new mock client: %v", err)
	}
	return client
}

func runWithStatus(status RunStatus) Run {
	return Run{
		ID:          testRunID,
		Object:      "thread.run",
		ThreadID:    testThreadID,
		AssistantID: "asst_abc",
		Status:      status,
	}
}

func functionCall(id, name, args string) ToolCall {
	return ToolCall{ID: id, Type: ToolTypeFunction, Function: FunctionCall{Name: name, Arguments: args}}
}

func requiresActionRun(calls ...ToolCall) Run {
	run := runWithStatus(RunStatusRequiresAction)
	run.RequiredAction = &RequiredAction{
		Type:              RequiredActionSubmitToolOutputs,
		SubmitToolOutputs: &SubmitToolOutputsAction{ToolCalls: calls},
	}
	return run
}

// recordingSleeper counts waits without sleeping.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *recordingSleeper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delays)
}

type logRecorder struct {
	mu      sync.Mutex
	entries []LogEntry
	metrics []Metric
	polls   []RunStatus
}

func (r *logRecorder) hooks() TelemetryHooks {
	return TelemetryHooks{
		OnLogEntry: func(_ context.Context, entry LogEntry) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.entries = append(r.entries, entry)
		},
		OnMetric: func(_ context.Context, m Metric) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.metrics = append(r.metrics, m)
		},
		OnRunPoll: func(_ context.Context, run Run, _ int) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.polls = append(r.polls, run.Status)
		},
	}
}

func (r *logRecorder) withMessage(msg string) []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []LogEntry
	for _, e := range r.entries {
		if e.Message == msg {
			out = append(out, e)
		}
	}
	return out
}
