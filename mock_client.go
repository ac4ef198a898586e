package sdk

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// MockTransport is an in-memory Transport for unit tests. Responses are
// served in the order they were queued, whatever the request; every request
// is recorded for later inspection.
//
// Example:
//
//	mock := sdk.NewMockTransport().
//	    WithJSON(sdk.Run{ID: "run_1", ThreadID: "thread_1", Status: sdk.RunStatusQueued}).
//	    WithJSON(sdk.Run{ID: "run_1", ThreadID: "thread_1", Status: sdk.RunStatusCompleted})
//	client, _ := sdk.NewMockClient(mock)
//	run, err := client.Runs.Await(ctx, "thread_1", "run_1", sdk.WithSleeper(sdk.NoSleep))
type MockTransport struct {
	mu       sync.Mutex
	queue    []mockResult
	requests []RecordedRequest
}

// RecordedRequest is one exchange observed by MockTransport.
type RecordedRequest struct {
	Method string
	Path   string
	Query  map[string]string
	Body   []byte
}

// DecodeBody unmarshals the recorded request body into v.
func (r RecordedRequest) DecodeBody(v any) error {
	return json.Unmarshal(r.Body, v)
}

// MockClientError is returned when a mock transport runs out of responses.
type MockClientError struct {
	Reason string
}

func (e MockClientError) Error() string { return "mock client: " + e.Reason }

type mockResult struct {
	body []byte
	err  error
}

// NewMockTransport creates an empty mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// NewMockClient builds a Client backed by mock.
func NewMockClient(mock *MockTransport, opts ...Option) (*Client, error) {
	cfg := Config{Transport: mock}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg.Transport = mock
	return NewClient(cfg)
}

// NoSleep is a Sleeper that never waits; it still honours ctx.
func NoSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// WithJSON enqueues v, JSON-encoded, as the next response body.
func (m *MockTransport) WithJSON(v any) *MockTransport {
	data, err := json.Marshal(v)
	if err != nil {
		return m.enqueue(nil, err)
	}
	return m.enqueue(data, nil)
}

// WithRaw enqueues a raw response body.
func (m *MockTransport) WithRaw(body []byte) *MockTransport {
	return m.enqueue(append([]byte(nil), body...), nil)
}

// WithError enqueues an error for the next request.
func (m *MockTransport) WithError(err error) *MockTransport {
	return m.enqueue(nil, err)
}

// WithAPIError enqueues a provider error response.
func (m *MockTransport) WithAPIError(status int, code, message string) *MockTransport {
	errType := "invalid_request_error"
	if status >= http.StatusInternalServerError {
		errType = "server_error"
	}
	return m.enqueue(nil, APIError{Status: status, Type: errType, Code: code, Message: message})
}

// Requests returns a copy of every request observed so far.
func (m *MockTransport) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RecordedRequest(nil), m.requests...)
}

// Pending reports how many queued responses have not been served.
func (m *MockTransport) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

func (m *MockTransport) enqueue(body []byte, err error) *MockTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockResult{body: body, err: err})
	return m
}

func (m *MockTransport) serve(ctx context.Context, method, path string, query map[string]string, body []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, TransportError{Method: method, Path: path, Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var q map[string]string
	if len(query) > 0 {
		q = make(map[string]string, len(query))
		for k, v := range query {
			q[k] = v
		}
	}
	m.requests = append(m.requests, RecordedRequest{
		Method: method,
		Path:   path,
		Query:  q,
		Body:   append([]byte(nil), body...),
	})
	if len(m.queue) == 0 {
		return nil, MockClientError{Reason: "no response queued for " + method + " " + path}
	}
	res := m.queue[0]
	m.queue = m.queue[1:]
	if res.err != nil {
		return nil, res.err
	}
	return res.body, nil
}

func (m *MockTransport) Post(ctx context.Context, path string, query map[string]string, body []byte) ([]byte, error) {
	return m.serve(ctx, http.MethodPost, path, query, body)
}

func (m *MockTransport) Get(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	return m.serve(ctx, http.MethodGet, path, query, nil)
}

func (m *MockTransport) Delete(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	return m.serve(ctx, http.MethodDelete, path, query, nil)
}
