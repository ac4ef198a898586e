package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
)

const defaultBaseURL = "https://api.openai.com/v1"
const defaultUserAgent = "assistants-sdk-go/" + Version

// Environment variables read by ConfigFromEnv.
const (
	EnvAPIKey       = "ASSISTANTS_API_KEY"
	EnvBaseURL      = "ASSISTANTS_BASE_URL"
	EnvOrganization = "ASSISTANTS_ORG"
)

// Config wires authentication, base URL, transport and telemetry for the API client.
type Config struct {
	BaseURL      string
	APIKey       string
	Organization string
	HTTPClient   *http.Client
	Telemetry    TelemetryHooks
	UserAgent    string
	// Retry enables transport-level retries. Nil means a single attempt.
	Retry *RetryConfig
	// Transport replaces the built-in HTTP transport; BaseURL, APIKey,
	// Organization, HTTPClient, UserAgent and Retry are then ignored.
	Transport Transport
}

// ConfigFromEnv builds a Config from ASSISTANTS_API_KEY, ASSISTANTS_BASE_URL
// and ASSISTANTS_ORG.
func ConfigFromEnv() Config {
	return Config{
		APIKey:       strings.TrimSpace(os.Getenv(EnvAPIKey)),
		BaseURL:      strings.TrimSpace(os.Getenv(EnvBaseURL)),
		Organization: strings.TrimSpace(os.Getenv(EnvOrganization)),
	}
}

// Option customizes a Config built by NewClientWithKey.
type Option func(*Config)

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Config) { c.BaseURL = baseURL }
}

// WithHTTPClient sets the HTTP client used by the built-in transport.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Config) { c.HTTPClient = httpClient }
}

// WithOrganization scopes every request to an organization.
func WithOrganization(org string) Option {
	return func(c *Config) { c.Organization = org }
}

// WithRetry enables transport-level retries.
func WithRetry(cfg RetryConfig) Option {
	return func(c *Config) { c.Retry = &cfg }
}

// WithTelemetry installs observability hooks.
func WithTelemetry(hooks TelemetryHooks) Option {
	return func(c *Config) { c.Telemetry = hooks }
}

// WithTransport replaces the built-in HTTP transport.
func WithTransport(t Transport) Option {
	return func(c *Config) { c.Transport = t }
}

// Client provides high-level helpers for the threads and runs API.
type Client struct {
	transport Transport
	telemetry TelemetryHooks

	// Grouped service clients.
	Threads  *ThreadsClient
	Messages *MessagesClient
	Runs     *RunsClient
}

// NewClientWithKey is a shorthand for NewClient with an API key and options.
func NewClientWithKey(apiKey string, opts ...Option) (*Client, error) {
	cfg := Config{APIKey: apiKey}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return NewClient(cfg)
}

// NewClient validates the configuration and returns a ready-to-use Client.
func NewClient(cfg Config) (*Client, error) {
	transport := cfg.Transport
	if transport == nil {
		built, err := newHTTPTransport(cfg)
		if err != nil {
			return nil, err
		}
		transport = built
	}
	client := &Client{
		transport: transport,
		telemetry: cfg.Telemetry,
	}
	client.Threads = &ThreadsClient{client: client}
	client.Messages = &MessagesClient{client: client}
	client.Runs = &RunsClient{client: client}
	return client, nil
}

func newHTTPTransport(cfg Config) (*httpTransport, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	normalized, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	auth := buildAuthChain(cfg)
	if len(auth) == 0 || normalizeAPIKey(cfg.APIKey) == "" {
		return nil, errors.New("sdk: api key required")
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	var retry RetryConfig
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}
	return &httpTransport{
		baseURL:    normalized,
		httpClient: httpClient,
		auth:       auth,
		telemetry:  cfg.Telemetry,
		userAgent:  ua,
		retry:      retry,
	}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("sdk: base URL required")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("sdk: invalid base URL: %w", err)
	}
	if u.Scheme == "" {
		return "", errors.New("sdk: base URL missing scheme (http/https)")
	}
	if u.Host == "" {
		return "", errors.New("sdk: base URL missing host")
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	return strings.TrimSuffix(u.String(), "/"), nil
}

// sendAndDecode encodes payload (when non-nil), performs the exchange through
// the transport and decodes the response into out (when non-nil).
func (c *Client) sendAndDecode(ctx context.Context, method, path string, query map[string]string, payload, out any) error {
	if c == nil || c.transport == nil {
		return ConfigError{Reason: "client not initialized"}
	}
	var (
		data []byte
		err  error
	)
	switch method {
	case http.MethodGet:
		data, err = c.transport.Get(ctx, path, query)
	case http.MethodDelete:
		data, err = c.transport.Delete(ctx, path, query)
	case http.MethodPost:
		var body []byte
		if payload != nil {
			body, err = json.Marshal(payload)
			if err != nil {
				return fmt.Errorf("sdk: encode %s body: %w", path, err)
			}
		}
		data, err = c.transport.Post(ctx, path, query, body)
	default:
		return ConfigError{Reason: "unsupported method " + method}
	}
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return ProtocolError{Message: fmt.Sprintf("decode %s %s: %v", method, path, err)}
	}
	return nil
}
