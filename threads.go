package sdk

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/modelrelay/assistants/sdk/go/routes"
)

// Thread is a persistent conversation context holding an ordered sequence of messages.
type Thread struct {
	ID        string   `json:"id"`
	Object    string   `json:"object"`
	CreatedAt int64    `json:"created_at"`
	Metadata  Metadata `json:"metadata,omitempty"`
}

// ThreadMessage seeds a new thread with an initial message.
type ThreadMessage struct {
	Role     MessageRole `json:"role"`
	Content  string      `json:"content"`
	FileIDs  []string    `json:"file_ids,omitempty"`
	Metadata Metadata    `json:"metadata,omitempty"`
}

// ThreadCreateRequest creates a thread, optionally seeded with messages.
type ThreadCreateRequest struct {
	Messages []ThreadMessage `json:"messages,omitempty"`
	Metadata Metadata        `json:"metadata,omitempty"`
}

// Validate checks roles, content and metadata limits.
func (r ThreadCreateRequest) Validate() error {
	for i, msg := range r.Messages {
		if msg.Role != MessageRoleUser {
			return ConfigError{Reason: fmt.Sprintf("thread seed message %d: role must be user", i)}
		}
		if strings.TrimSpace(msg.Content) == "" {
			return ConfigError{Reason: fmt.Sprintf("thread seed message %d: content is required", i)}
		}
		if err := msg.Metadata.Validate(); err != nil {
			return err
		}
	}
	return r.Metadata.Validate()
}

// ThreadModifyRequest replaces a thread's metadata.
type ThreadModifyRequest struct {
	Metadata Metadata `json:"metadata"`
}

// ThreadsClient calls the /threads endpoints. Threads carry no status
// semantics; every call is a single request/response.
type ThreadsClient struct {
	client *Client
}

func (c *ThreadsClient) ensureInitialized() error {
	if c == nil || c.client == nil {
		return ConfigError{Reason: "threads client not initialized"}
	}
	return nil
}

// Create creates a thread.
//
// Example:
//
//	thread, err := client.Threads.Create(ctx, sdk.ThreadCreateRequest{
//	    Messages: []sdk.ThreadMessage{{Role: sdk.MessageRoleUser, Content: "Hello!"}},
//	    Metadata: sdk.Metadata{"topic": "weather"},
//	})
func (c *ThreadsClient) Create(ctx context.Context, req ThreadCreateRequest) (*Thread, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out Thread
	if err := c.client.sendAndDecode(ctx, http.MethodPost, routes.Threads, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get retrieves a thread by id.
func (c *ThreadsClient) Get(ctx context.Context, threadID string) (*Thread, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if err := requireID("thread_id", threadID); err != nil {
		return nil, err
	}
	var out Thread
	path := expandRoute(routes.ThreadByID, "thread_id", threadID)
	if err := c.client.sendAndDecode(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Modify replaces the metadata of a thread.
func (c *ThreadsClient) Modify(ctx context.Context, threadID string, req ThreadModifyRequest) (*Thread, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if err := requireID("thread_id", threadID); err != nil {
		return nil, err
	}
	if err := req.Metadata.Validate(); err != nil {
		return nil, err
	}
	var out Thread
	path := expandRoute(routes.ThreadByID, "thread_id", threadID)
	if err := c.client.sendAndDecode(ctx, http.MethodPost, path, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete deletes a thread.
func (c *ThreadsClient) Delete(ctx context.Context, threadID string) (*DeletionStatus, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if err := requireID("thread_id", threadID); err != nil {
		return nil, err
	}
	var out DeletionStatus
	path := expandRoute(routes.ThreadByID, "thread_id", threadID)
	if err := c.client.sendAndDecode(ctx, http.MethodDelete, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func requireID(name, id string) error {
	if strings.TrimSpace(id) == "" {
		return ConfigError{Reason: name + " is required"}
	}
	return nil
}
