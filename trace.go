package sdk

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/modelrelay/assistants/sdk/go/headers"
)

// injectTraceparent copies the span context carried by ctx onto req as a
// W3C traceparent header. Requests made without an active span are untouched.
func injectTraceparent(ctx context.Context, req *http.Request) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return
	}
	flags := sc.TraceFlags() & trace.FlagsSampled
	req.Header.Set(headers.Traceparent, fmt.Sprintf("00-%s-%s-%s", sc.TraceID(), sc.SpanID(), flags))
}
