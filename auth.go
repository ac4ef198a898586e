// Package sdk provides a Go client for the threads and runs API: conversation
// threads, assistant runs over those threads, the tool-call round trip and
// step-level execution traces.
package sdk

import (
	"net/http"
	"strings"

	"github.com/modelrelay/assistants/sdk/go/headers"
)

type authStrategy interface {
	Apply(req *http.Request)
}

type authChain []authStrategy

func (c authChain) Apply(req *http.Request) {
	for _, s := range c {
		if s == nil {
			continue
		}
		s.Apply(req)
	}
}

type bearerAuth struct {
	token string
}

func (b bearerAuth) Apply(req *http.Request) {
	if b.token == "" {
		return
	}
	req.Header.Set(headers.Authorization, "Bearer "+b.token)
}

type organizationScope struct {
	org string
}

func (o organizationScope) Apply(req *http.Request) {
	if o.org == "" {
		return
	}
	req.Header.Set(headers.Organization, o.org)
}

// normalizeAPIKey strips whitespace and an optional "Bearer " prefix.
func normalizeAPIKey(raw string) string {
	key := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(key), "bearer ") {
		key = strings.TrimSpace(key[7:])
	}
	return key
}

func buildAuthChain(cfg Config) authChain {
	var chain authChain
	if key := normalizeAPIKey(cfg.APIKey); key != "" {
		chain = append(chain, bearerAuth{token: key})
	}
	if org := strings.TrimSpace(cfg.Organization); org != "" {
		chain = append(chain, organizationScope{org: org})
	}
	return chain
}
