// Package headers defines the HTTP header names sent by the SDK.
package headers

const (
	// Authorization carries the bearer API key.
	Authorization = "Authorization"

	// Beta opts requests into the assistants API surface.
	Beta = "OpenAI-Beta"

	// BetaAssistants is the value sent in the Beta header.
	BetaAssistants = "assistants=v1"

	// Organization scopes requests to an organization when set.
	Organization = "OpenAI-Organization"

	// IdempotencyKey is attached to every POST so transport-level retries
	// cannot create duplicate threads, messages or runs.
	IdempotencyKey = "Idempotency-Key"

	// RequestID is echoed by the provider on every response.
	RequestID = "X-Request-Id"

	// Traceparent propagates the caller's W3C trace context.
	Traceparent = "Traceparent"
)
