package sdk

import (
	"context"
	"net/http"
	"strings"

	"github.com/modelrelay/assistants/sdk/go/routes"
)

// MessageContentType discriminates message content parts.
type MessageContentType string

const (
	MessageContentText      MessageContentType = "text"
	MessageContentImageFile MessageContentType = "image_file"
)

// MessageContent is one part of a message body. Exactly one of Text or
// ImageFile is set, matching Type.
type MessageContent struct {
	Type      MessageContentType `json:"type"`
	Text      *MessageText       `json:"text,omitempty"`
	ImageFile *MessageImageFile  `json:"image_file,omitempty"`
}

// MessageText is a text content part.
type MessageText struct {
	Value       string              `json:"value"`
	Annotations []MessageAnnotation `json:"annotations,omitempty"`
}

// MessageAnnotation marks a span of text that cites or links a file.
type MessageAnnotation struct {
	Type         string                 `json:"type"`
	Text         string                 `json:"text"`
	StartIndex   int                    `json:"start_index"`
	EndIndex     int                    `json:"end_index"`
	FileCitation *MessageFileCitation   `json:"file_citation,omitempty"`
	FilePath     *MessageFilePathTarget `json:"file_path,omitempty"`
}

// MessageFileCitation quotes a retrieved file.
type MessageFileCitation struct {
	FileID string `json:"file_id"`
	Quote  string `json:"quote,omitempty"`
}

// MessageFilePathTarget points at a file generated by a tool.
type MessageFilePathTarget struct {
	FileID string `json:"file_id"`
}

// MessageImageFile references an image produced or attached to the thread.
type MessageImageFile struct {
	FileID string `json:"file_id"`
}

// Message is a single entry in a thread.
type Message struct {
	ID          string           `json:"id"`
	Object      string           `json:"object"`
	CreatedAt   int64            `json:"created_at"`
	ThreadID    string           `json:"thread_id"`
	Role        MessageRole      `json:"role"`
	Content     []MessageContent `json:"content"`
	AssistantID string           `json:"assistant_id,omitempty"`
	RunID       string           `json:"run_id,omitempty"`
	FileIDs     []string         `json:"file_ids,omitempty"`
	Metadata    Metadata         `json:"metadata,omitempty"`
}

// Text joins the text parts of the message with newlines.
func (m Message) Text() string {
	var parts []string
	for _, c := range m.Content {
		if c.Type == MessageContentText && c.Text != nil {
			parts = append(parts, c.Text.Value)
		}
	}
	return strings.Join(parts, "\n")
}

// MessageCreateRequest adds a message to a thread.
type MessageCreateRequest struct {
	Role     MessageRole `json:"role"`
	Content  string      `json:"content"`
	FileIDs  []string    `json:"file_ids,omitempty"`
	Metadata Metadata    `json:"metadata,omitempty"`
}

// Validate checks role, content and metadata limits.
func (r MessageCreateRequest) Validate() error {
	if r.Role != MessageRoleUser {
		return ConfigError{Reason: "message role must be user"}
	}
	if strings.TrimSpace(r.Content) == "" {
		return ConfigError{Reason: "message content is required"}
	}
	return r.Metadata.Validate()
}

// MessageModifyRequest replaces a message's metadata; content is immutable.
type MessageModifyRequest struct {
	Metadata Metadata `json:"metadata"`
}

// MessagesClient calls the /threads/{thread_id}/messages endpoints.
type MessagesClient struct {
	client *Client
}

func (c *MessagesClient) ensureInitialized() error {
	if c == nil || c.client == nil {
		return ConfigError{Reason: "messages client not initialized"}
	}
	return nil
}

// Create appends a user message to a thread.
func (c *MessagesClient) Create(ctx context.Context, threadID string, req MessageCreateRequest) (*Message, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if err := requireID("thread_id", threadID); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out Message
	path := expandRoute(routes.ThreadMessages, "thread_id", threadID)
	if err := c.client.sendAndDecode(ctx, http.MethodPost, path, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get retrieves a single message.
func (c *MessagesClient) Get(ctx context.Context, threadID, messageID string) (*Message, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if err := requireID("thread_id", threadID); err != nil {
		return nil, err
	}
	if err := requireID("message_id", messageID); err != nil {
		return nil, err
	}
	var out Message
	path := expandRoute(routes.ThreadMessageByID, "thread_id", threadID, "message_id", messageID)
	if err := c.client.sendAndDecode(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Modify replaces the metadata of a message.
func (c *MessagesClient) Modify(ctx context.Context, threadID, messageID string, req MessageModifyRequest) (*Message, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if err := requireID("thread_id", threadID); err != nil {
		return nil, err
	}
	if err := requireID("message_id", messageID); err != nil {
		return nil, err
	}
	if err := req.Metadata.Validate(); err != nil {
		return nil, err
	}
	var out Message
	path := expandRoute(routes.ThreadMessageByID, "thread_id", threadID, "message_id", messageID)
	if err := c.client.sendAndDecode(ctx, http.MethodPost, path, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns one page of a thread's messages.
//
// Example:
//
//	opts := sdk.ListOptions{Limit: 20, Order: sdk.ListOrderAsc}
//	for {
//	    page, err := client.Messages.List(ctx, threadID, opts)
//	    if err != nil { /* handle */ }
//	    for _, msg := range page.Data {
//	        fmt.Printf("[%s] %s\n", msg.Role, msg.Text())
//	    }
//	    next, ok := page.NextPage(opts)
//	    if !ok {
//	        break
//	    }
//	    opts = next
//	}
func (c *MessagesClient) List(ctx context.Context, threadID string, opts ListOptions) (*ListResponse[Message], error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if err := requireID("thread_id", threadID); err != nil {
		return nil, err
	}
	query, err := opts.query()
	if err != nil {
		return nil, err
	}
	var out ListResponse[Message]
	path := expandRoute(routes.ThreadMessages, "thread_id", threadID)
	if err := c.client.sendAndDecode(ctx, http.MethodGet, path, query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
