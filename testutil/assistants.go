// Package testutil provides helpers for SDK tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// ToolCallSpec is a function call attached to requires_action snapshots.
type ToolCallSpec struct {
	ID        string
	Name      string
	Arguments string
}

// RunScript scripts the statuses a fake run reports.
type RunScript struct {
	RunID string
	// Statuses are returned by successive GETs; the last one repeats.
	Statuses []string
	// ToolCalls are listed whenever the run reports requires_action.
	ToolCalls []ToolCallSpec
	// AfterSubmit replaces the remaining statuses once tool outputs arrive.
	AfterSubmit []string
	// AfterCancel replaces the remaining statuses once a cancel arrives.
	// Defaults to cancelling then cancelled.
	AfterCancel []string
	// Reply is appended to the thread as an assistant message when the run
	// is first observed completed.
	Reply string
}

// Request is one request observed by the fake server.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

type fakeRun struct {
	script    RunScript
	threadID  string
	remaining []string
	status    string
	polls     int
	replied   bool
	submitted [][]byte
	assistant string
	metadata  map[string]string
}

type fakeMessage struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	CreatedAt int64  `json:"created_at"`
	ThreadID  string `json:"thread_id"`
	Role      string `json:"role"`
	Content   []any  `json:"content"`
}

// AssistantsServer is an in-memory fake of the threads and runs API.
type AssistantsServer struct {
	*httptest.Server

	mu       sync.Mutex
	pending  []RunScript
	runs     map[string]*fakeRun
	threads  map[string][]fakeMessage
	requests []Request
	seq      int
}

// NewAssistantsServer starts a fake server. Close it when done.
func NewAssistantsServer() *AssistantsServer {
	s := &AssistantsServer{
		runs:    make(map[string]*fakeRun),
		threads: make(map[string][]fakeMessage),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /threads", s.createThread)
	mux.HandleFunc("POST /threads/{thread_id}/messages", s.createMessage)
	mux.HandleFunc("GET /threads/{thread_id}/messages", s.listMessages)
	mux.HandleFunc("POST /threads/{thread_id}/runs", s.createRun)
	mux.HandleFunc("GET /threads/{thread_id}/runs/{run_id}", s.getRun)
	mux.HandleFunc("POST /threads/{thread_id}/runs/{run_id}/cancel", s.cancelRun)
	mux.HandleFunc("POST /threads/{thread_id}/runs/{run_id}/submit_tool_outputs", s.submitToolOutputs)
	s.Server = httptest.NewServer(s.record(mux))
	return s
}

// QueueRun scripts the next run created through POST /threads/{id}/runs.
func (s *AssistantsServer) QueueRun(script RunScript) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, script)
}

// AddRun registers a run that already exists on threadID.
func (s *AssistantsServer) AddRun(threadID string, script RunScript) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[threadID]; !ok {
		s.threads[threadID] = nil
	}
	s.runs[script.RunID] = newFakeRun(threadID, script)
}

// Polls reports how many GETs a run has served.
func (s *AssistantsServer) Polls(runID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run, ok := s.runs[runID]; ok {
		return run.polls
	}
	return 0
}

// Submissions returns the raw submit_tool_outputs bodies received for a run.
func (s *AssistantsServer) Submissions(runID string) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run, ok := s.runs[runID]; ok {
		return append([][]byte(nil), run.submitted...)
	}
	return nil
}

// Requests returns every request observed so far.
func (s *AssistantsServer) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

func newFakeRun(threadID string, script RunScript) *fakeRun {
	run := &fakeRun{script: script, threadID: threadID, status: "queued"}
	run.remaining = append([]string(nil), script.Statuses...)
	return run
}

func (s *AssistantsServer) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()
		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func (s *AssistantsServer) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s_%d", prefix, s.seq)
}

func (s *AssistantsServer) createThread(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
		Metadata map[string]string `json:"metadata"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("thread")
	s.threads[id] = nil
	for _, m := range req.Messages {
		s.threads[id] = append(s.threads[id], s.newMessage(id, m.Role, m.Content))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         id,
		"object":     "thread",
		"created_at": time.Now().Unix(),
		"metadata":   req.Metadata,
	})
}

func (s *AssistantsServer) newMessage(threadID, role, text string) fakeMessage {
	return fakeMessage{
		ID:        s.nextID("msg"),
		Object:    "thread.message",
		CreatedAt: time.Now().Unix(),
		ThreadID:  threadID,
		Role:      role,
		Content: []any{map[string]any{
			"type": "text",
			"text": map[string]any{"value": text, "annotations": []any{}},
		}},
	}
}

func (s *AssistantsServer) createMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if !decode(w, r, &req) {
		return
	}
	threadID := r.PathValue("thread_id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[threadID]; !ok {
		writeError(w, http.StatusNotFound, "No thread found with id '"+threadID+"'.")
		return
	}
	msg := s.newMessage(threadID, req.Role, req.Content)
	s.threads[threadID] = append(s.threads[threadID], msg)
	writeJSON(w, http.StatusOK, msg)
}

func (s *AssistantsServer) listMessages(w http.ResponseWriter, r *http.Request) {
	threadID := r.PathValue("thread_id")
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs, ok := s.threads[threadID]
	if !ok {
		writeError(w, http.StatusNotFound, "No thread found with id '"+threadID+"'.")
		return
	}
	// Newest first, as the provider does by default.
	data := make([]fakeMessage, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		data = append(data, msgs[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"object": "list", "data": data, "has_more": false})
}

func (s *AssistantsServer) createRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssistantID string            `json:"assistant_id"`
		Metadata    map[string]string `json:"metadata"`
	}
	if !decode(w, r, &req) {
		return
	}
	threadID := r.PathValue("thread_id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[threadID]; !ok {
		writeError(w, http.StatusNotFound, "No thread found with id '"+threadID+"'.")
		return
	}
	if len(s.pending) == 0 {
		writeError(w, http.StatusInternalServerError, "no run scripted")
		return
	}
	script := s.pending[0]
	s.pending = s.pending[1:]
	if script.RunID == "" {
		script.RunID = s.nextID("run")
	}
	run := newFakeRun(threadID, script)
	run.assistant = req.AssistantID
	run.metadata = req.Metadata
	s.runs[script.RunID] = run
	writeJSON(w, http.StatusOK, s.snapshot(run))
}

func (s *AssistantsServer) lookupRun(w http.ResponseWriter, r *http.Request) (*fakeRun, bool) {
	run, ok := s.runs[r.PathValue("run_id")]
	if !ok || run.threadID != r.PathValue("thread_id") {
		writeError(w, http.StatusNotFound, "No run found with id '"+r.PathValue("run_id")+"'.")
		return nil, false
	}
	return run, true
}

func (s *AssistantsServer) getRun(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	run.polls++
	if len(run.remaining) > 0 {
		run.status = run.remaining[0]
		if len(run.remaining) > 1 {
			run.remaining = run.remaining[1:]
		}
	}
	if run.status == "completed" && run.script.Reply != "" && !run.replied {
		run.replied = true
		s.threads[run.threadID] = append(s.threads[run.threadID], s.newMessage(run.threadID, "assistant", run.script.Reply))
	}
	writeJSON(w, http.StatusOK, s.snapshot(run))
}

func (s *AssistantsServer) cancelRun(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	if run.status != "queued" && run.status != "in_progress" && run.status != "requires_action" {
		writeError(w, http.StatusBadRequest, "Cannot cancel run with status '"+run.status+"'.")
		return
	}
	run.status = "cancelling"
	run.remaining = append([]string(nil), run.script.AfterCancel...)
	if len(run.remaining) == 0 {
		run.remaining = []string{"cancelling", "cancelled"}
	}
	writeJSON(w, http.StatusOK, s.snapshot(run))
}

func (s *AssistantsServer) submitToolOutputs(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	if run.status != "requires_action" {
		writeError(w, http.StatusBadRequest, "Runs in status '"+run.status+"' do not accept tool outputs.")
		return
	}
	run.submitted = append(run.submitted, body)
	run.status = "queued"
	run.remaining = append([]string(nil), run.script.AfterSubmit...)
	if len(run.remaining) == 0 {
		run.remaining = []string{"completed"}
	}
	writeJSON(w, http.StatusOK, s.snapshot(run))
}

func (s *AssistantsServer) snapshot(run *fakeRun) map[string]any {
	assistantID := run.assistant
	if assistantID == "" {
		assistantID = "asst_fake"
	}
	out := map[string]any{
		"id":           run.script.RunID,
		"object":       "thread.run",
		"created_at":   time.Now().Unix(),
		"thread_id":    run.threadID,
		"assistant_id": assistantID,
		"status":       run.status,
		"model":        "gpt-4-turbo",
		"instructions": "",
		"tools":        []any{},
		"metadata":     run.metadata,
	}
	if run.status == "requires_action" {
		calls := make([]any, 0, len(run.script.ToolCalls))
		for _, c := range run.script.ToolCalls {
			calls = append(calls, map[string]any{
				"id":   c.ID,
				"type": "function",
				"function": map[string]any{
					"name":      c.Name,
					"arguments": c.Arguments,
				},
			})
		}
		out["required_action"] = map[string]any{
			"type":                "submit_tool_outputs",
			"submit_tool_outputs": map[string]any{"tool_calls": calls},
		}
	}
	return out
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", fmt.Sprintf("req_%d", time.Now().UnixNano()))
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": map[string]any{
		"type":    "invalid_request_error",
		"code":    nil,
		"param":   nil,
		"message": message,
	}})
}
