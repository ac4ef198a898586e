package sdk

import (
	"math"
	"math/rand"
	"net/http"
	"time"
)

// RetryConfig controls transport-level retries of failed HTTP exchanges.
//
// The zero value disables retries: run lifecycle operations never retry on
// their own, so a failure reaches the caller exactly as the provider sent it.
// POST requests are only retried when RetryPost is set; every POST carries an
// idempotency key so a retried create cannot duplicate a resource.
type RetryConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	RetryPost   bool
}

// RetryMetadata describes what happened during retries.
type RetryMetadata struct {
	Attempts    int
	MaxAttempts int
	LastBackoff time.Duration
	LastStatus  int
	LastError   string
}

func (r RetryConfig) normalized() RetryConfig {
	cfg := r
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 300 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	return cfg
}

func (r RetryConfig) allows(method string) bool {
	if method == http.MethodPost {
		return r.RetryPost
	}
	return true
}

// retryableStatus reports whether a response status is worth another attempt.
func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func (r RetryConfig) backoffDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	exp := attempt - 2
	base := float64(r.BaseBackoff) * math.Pow(2, float64(exp))
	ceiling := float64(r.MaxBackoff)
	if base > ceiling {
		base = ceiling
	}
	// jitter 0.5x..1.5x
	jitter := 0.5 + rand.Float64()
	d := time.Duration(base * jitter)
	if d > r.MaxBackoff {
		d = r.MaxBackoff
	}
	return d
}
