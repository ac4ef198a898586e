package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrPollingTimeout matches any *PollingTimeoutError.
	ErrPollingTimeout = errors.New("sdk: polling timeout")
	// ErrIllegalStateTransition matches any IllegalStateTransitionError.
	ErrIllegalStateTransition = errors.New("sdk: illegal state transition")
	// ErrIncompleteToolOutputs matches any IncompleteToolOutputsError.
	ErrIncompleteToolOutputs = errors.New("sdk: incomplete tool outputs")
	// ErrNoActionRequired matches any NoActionRequiredError.
	ErrNoActionRequired = errors.New("sdk: no action required")
)

// APIError captures a non-2xx response from the provider.
type APIError struct {
	Status    int
	Type      string
	Code      string
	Param     string
	Message   string
	RequestID string
}

// Error implements the error interface.
func (e APIError) Error() string {
	code := e.Code
	if code == "" {
		code = e.Type
	}
	if code == "" {
		code = "UNKNOWN"
	}
	msg := e.Message
	if msg == "" {
		msg = fmt.Sprintf("%s (%d)", code, e.Status)
	}
	return fmt.Sprintf("%s: %s", code, msg)
}

// IsInvalidRequest reports whether the provider rejected the request itself
// (malformed body or an unknown thread, assistant or run id).
func (e APIError) IsInvalidRequest() bool {
	return e.Status >= 400 && e.Status < 500 && e.Status != http.StatusTooManyRequests
}

// IsInvalidRequest reports whether err is an APIError for a rejected request.
func IsInvalidRequest(err error) bool {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsInvalidRequest()
	}
	return false
}

func decodeAPIError(status int, statusText string, requestID string, data []byte) error {
	apiErr := APIError{Status: status, RequestID: requestID}
	if len(data) == 0 {
		apiErr.Message = statusText
		return apiErr
	}
	var payload struct {
		Error struct {
			Type    string  `json:"type"`
			Code    *string `json:"code"`
			Param   *string `json:"param"`
			Message string  `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		apiErr.Message = strings.TrimSpace(string(data))
		return apiErr
	}
	apiErr.Type = payload.Error.Type
	if payload.Error.Code != nil {
		apiErr.Code = *payload.Error.Code
	}
	if payload.Error.Param != nil {
		apiErr.Param = *payload.Error.Param
	}
	apiErr.Message = payload.Error.Message
	if apiErr.Message == "" {
		apiErr.Message = statusText
	}
	return apiErr
}

// TransportError wraps a network-level failure (no HTTP response was read).
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e TransportError) Error() string {
	return fmt.Sprintf("transport: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e TransportError) Unwrap() error { return e.Err }

// ConfigError reports invalid client or request configuration.
type ConfigError struct {
	Reason string
}

func (e ConfigError) Error() string { return "sdk: " + e.Reason }

// ProtocolError reports a response that violates the wire contract.
type ProtocolError struct {
	Message string
}

func (e ProtocolError) Error() string { return "protocol: " + e.Message }

// PollingTimeoutError is returned by Await when the run stayed in a
// poll-again status for every allowed poll. It is recoverable: LastRun is the
// final snapshot and the caller may simply await again.
type PollingTimeoutError struct {
	LastRun *Run
	Polls   int
}

func (e *PollingTimeoutError) Error() string {
	status := RunStatus("")
	if e.LastRun != nil {
		status = e.LastRun.Status
	}
	return fmt.Sprintf("sdk: run still %s after %d polls", status, e.Polls)
}

func (e *PollingTimeoutError) Is(target error) bool { return target == ErrPollingTimeout }

// IsPollingTimeout reports whether err is a polling timeout and returns the
// last fetched run when it is.
func IsPollingTimeout(err error) (*Run, bool) {
	var timeout *PollingTimeoutError
	if errors.As(err, &timeout) {
		return timeout.LastRun, true
	}
	return nil, false
}

// IllegalStateTransitionError is returned, before any request is sent, when an
// operation is invoked on a run whose last observed status forbids it.
type IllegalStateTransitionError struct {
	Op     string
	Status RunStatus
	Want   []RunStatus
}

func (e IllegalStateTransitionError) Error() string {
	want := make([]string, len(e.Want))
	for i, s := range e.Want {
		want[i] = string(s)
	}
	return fmt.Sprintf("sdk: cannot %s run in status %q (requires %s)", e.Op, e.Status, strings.Join(want, " or "))
}

func (e IllegalStateTransitionError) Is(target error) bool { return target == ErrIllegalStateTransition }

// IncompleteToolOutputsError reports a submission that does not match the
// outstanding tool calls one-to-one.
type IncompleteToolOutputsError struct {
	Missing    []string
	Unexpected []string
	Duplicate  []string
}

func (e IncompleteToolOutputsError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "unknown "+strings.Join(e.Unexpected, ", "))
	}
	if len(e.Duplicate) > 0 {
		parts = append(parts, "duplicate "+strings.Join(e.Duplicate, ", "))
	}
	if len(parts) == 0 {
		parts = append(parts, "no tool outputs")
	}
	return "sdk: incomplete tool outputs: " + strings.Join(parts, "; ")
}

func (e IncompleteToolOutputsError) Is(target error) bool { return target == ErrIncompleteToolOutputs }

func (e IncompleteToolOutputsError) empty() bool {
	return len(e.Missing) == 0 && len(e.Unexpected) == 0 && len(e.Duplicate) == 0
}

func (e *IncompleteToolOutputsError) sort() {
	sort.Strings(e.Missing)
	sort.Strings(e.Unexpected)
	sort.Strings(e.Duplicate)
}

// NoActionRequiredError is returned when tool calls are requested from a run
// that is not waiting on the caller.
type NoActionRequiredError struct {
	Status RunStatus
}

func (e NoActionRequiredError) Error() string {
	return fmt.Sprintf("sdk: run in status %q requires no action", e.Status)
}

func (e NoActionRequiredError) Is(target error) bool { return target == ErrNoActionRequired }
