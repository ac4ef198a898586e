package sdk

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/modelrelay/assistants/sdk/go/headers"
)

// Transport performs the authenticated HTTP exchange for the SDK. Bodies are
// raw JSON (nil when absent); the returned bytes are the raw response body.
//
// Implementations must return a non-2xx response as an error (APIError for the
// built-in transport) and must not swallow network failures. The default
// implementation is built by NewClient; tests and callers with their own HTTP
// stack may supply one through Config.Transport.
type Transport interface {
	Post(ctx context.Context, path string, query map[string]string, body []byte) ([]byte, error)
	Get(ctx context.Context, path string, query map[string]string) ([]byte, error)
	Delete(ctx context.Context, path string, query map[string]string) ([]byte, error)
}

type httpTransport struct {
	baseURL    string
	httpClient *http.Client
	auth       authChain
	telemetry  TelemetryHooks
	userAgent  string
	retry      RetryConfig
}

func (t *httpTransport) Post(ctx context.Context, path string, query map[string]string, body []byte) ([]byte, error) {
	return t.do(ctx, http.MethodPost, path, query, body)
}

func (t *httpTransport) Get(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	return t.do(ctx, http.MethodGet, path, query, nil)
}

func (t *httpTransport) Delete(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	return t.do(ctx, http.MethodDelete, path, query, nil)
}

func (t *httpTransport) do(ctx context.Context, method, path string, query map[string]string, body []byte) ([]byte, error) {
	target := t.buildURL(path, query)
	cfg := t.retry.normalized()
	if !cfg.allows(method) {
		cfg.MaxAttempts = 1
	}
	idempotencyKey := ""
	if method == http.MethodPost {
		idempotencyKey = uuid.NewString()
	}

	var meta RetryMetadata
	meta.MaxAttempts = cfg.MaxAttempts
	for attempt := 1; ; attempt++ {
		meta.Attempts = attempt
		if delay := cfg.backoffDelay(attempt); delay > 0 {
			meta.LastBackoff = delay
			if err := sleepContext(ctx, delay); err != nil {
				return nil, TransportError{Method: method, Path: path, Err: err}
			}
		}

		data, status, err := t.attempt(ctx, method, target, path, body, idempotencyKey)
		last := attempt >= cfg.MaxAttempts
		if err == nil {
			return data, nil
		}
		switch e := err.(type) {
		case APIError:
			meta.LastStatus = e.Status
			if last || !retryableStatus(status) {
				return nil, e
			}
		default:
			meta.LastError = err.Error()
			if last || ctx.Err() != nil {
				return nil, err
			}
		}
		t.telemetry.log(ctx, LogLevelWarn, "http_retry", map[string]any{
			"method":       method,
			"path":         path,
			"attempt":      meta.Attempts,
			"max_attempts": meta.MaxAttempts,
			"last_status":  meta.LastStatus,
			"last_error":   meta.LastError,
		})
	}
}

func (t *httpTransport) attempt(ctx context.Context, method, target, path string, body []byte, idempotencyKey string) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, 0, TransportError{Method: method, Path: path, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headers.Beta, headers.BetaAssistants)
	if idempotencyKey != "" {
		req.Header.Set(headers.IdempotencyKey, idempotencyKey)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	injectTraceparent(ctx, req)
	t.auth.Apply(req)

	if t.telemetry.OnHTTPRequest != nil {
		t.telemetry.OnHTTPRequest(ctx, req)
	}
	t.telemetry.log(ctx, LogLevelDebug, "http_request", map[string]any{
		"method": method,
		"url":    req.URL.String(),
	})
	start := time.Now()
	resp, err := t.httpClient.Do(req)
	latency := time.Since(start)
	if t.telemetry.OnHTTPResponse != nil {
		t.telemetry.OnHTTPResponse(ctx, req, resp, err, latency)
	}
	t.telemetry.metric(ctx, "sdk_http_request_latency_ms", float64(latency.Milliseconds()), map[string]string{
		"method": method,
		"path":   req.URL.Path,
	})
	if err != nil {
		return nil, 0, TransportError{Method: method, Path: path, Err: err}
	}
	//nolint:errcheck // best-effort cleanup on return
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, TransportError{Method: method, Path: path, Err: err}
	}
	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, decodeAPIError(resp.StatusCode, resp.Status, resp.Header.Get(headers.RequestID), data)
	}
	return data, resp.StatusCode, nil
}

func (t *httpTransport) buildURL(path string, query map[string]string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	out := t.baseURL + path
	if len(query) == 0 {
		return out
	}
	values := url.Values{}
	for k, v := range query {
		if v == "" {
			continue
		}
		values.Set(k, v)
	}
	if enc := values.Encode(); enc != "" {
		out += "?" + enc
	}
	return out
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// expandRoute substitutes {name} placeholders in route with path-escaped
// values. params alternate name, value.
func expandRoute(route string, params ...string) string {
	out := route
	for i := 0; i+1 < len(params); i += 2 {
		out = strings.ReplaceAll(out, "{"+params[i]+"}", url.PathEscape(params[i+1]))
	}
	return out
}
