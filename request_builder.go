package sdk

import (
	"fmt"
	"regexp"
)

var functionNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// Validate checks that the tool type is known and that function tools carry a
// well-formed definition whose parameters compile as a JSON Schema.
func (t Tool) Validate() error {
	switch t.Type {
	case ToolTypeCodeInterpreter, ToolTypeRetrieval:
		if t.Function != nil {
			return ConfigError{Reason: fmt.Sprintf("%s tool must not carry a function definition", t.Type)}
		}
		return nil
	case ToolTypeFunction:
		if t.Function == nil {
			return ConfigError{Reason: "function tool requires a function definition"}
		}
		return t.Function.Validate()
	default:
		return ConfigError{Reason: fmt.Sprintf("unknown tool type %q", t.Type)}
	}
}

// Validate checks the function name and parameter schema.
func (d FunctionDefinition) Validate() error {
	if !functionNamePattern.MatchString(d.Name) {
		return ConfigError{Reason: fmt.Sprintf("invalid function name %q (a-z, A-Z, 0-9, _ and -, max 64)", d.Name)}
	}
	if _, err := compileParametersSchema(d.Name, d.Parameters); err != nil {
		return ConfigError{Reason: err.Error()}
	}
	return nil
}

func validateTools(tools []Tool) error {
	seen := make(map[string]struct{}, len(tools))
	for _, tool := range tools {
		if err := tool.Validate(); err != nil {
			return err
		}
		if tool.Function == nil {
			continue
		}
		if _, dup := seen[tool.Function.Name]; dup {
			return ConfigError{Reason: fmt.Sprintf("duplicate function %q", tool.Function.Name)}
		}
		seen[tool.Function.Name] = struct{}{}
	}
	return nil
}

// RunRequestBuilder provides a fluent builder for run creation payloads.
//
// Example:
//
//	req, err := sdk.NewRunRequestBuilder("asst_123").
//	    Instructions("Answer weather questions.").
//	    Function(getWeather).
//	    MetadataEntry("source", "cli").
//	    Build()
type RunRequestBuilder struct {
	req    RunCreateRequest
	thread *ThreadCreateRequest
}

// NewRunRequestBuilder seeds the builder with the assistant to run.
func NewRunRequestBuilder(assistantID string) *RunRequestBuilder {
	return &RunRequestBuilder{req: RunCreateRequest{AssistantID: assistantID}}
}

// Model overrides the assistant's model for this run.
func (b *RunRequestBuilder) Model(model string) *RunRequestBuilder {
	b.req.Model = model
	return b
}

// Instructions overrides the assistant's instructions for this run.
func (b *RunRequestBuilder) Instructions(text string) *RunRequestBuilder {
	b.req.Instructions = text
	return b
}

// AdditionalInstructions appends to the assistant's instructions.
func (b *RunRequestBuilder) AdditionalInstructions(text string) *RunRequestBuilder {
	b.req.AdditionalInstructions = text
	return b
}

// Tool appends a tool, overriding the assistant's tool list for this run.
func (b *RunRequestBuilder) Tool(tool Tool) *RunRequestBuilder {
	b.req.Tools = append(b.req.Tools, tool)
	return b
}

// Function appends a function tool.
func (b *RunRequestBuilder) Function(def FunctionDefinition) *RunRequestBuilder {
	return b.Tool(FunctionTool(def))
}

// Tools replaces the tool list.
func (b *RunRequestBuilder) Tools(tools []Tool) *RunRequestBuilder {
	b.req.Tools = tools
	return b
}

// Metadata replaces the metadata map.
func (b *RunRequestBuilder) Metadata(metadata Metadata) *RunRequestBuilder {
	b.req.Metadata = metadata.Clone()
	return b
}

// MetadataEntry adds a single metadata key/value.
func (b *RunRequestBuilder) MetadataEntry(key, value string) *RunRequestBuilder {
	if b.req.Metadata == nil {
		b.req.Metadata = make(Metadata)
	}
	b.req.Metadata[key] = value
	return b
}

// Thread seeds a new thread; only BuildThreadAndRun uses it.
func (b *RunRequestBuilder) Thread(seed ThreadCreateRequest) *RunRequestBuilder {
	b.thread = &seed
	return b
}

// UserMessage appends a user message to the thread seed.
func (b *RunRequestBuilder) UserMessage(content string) *RunRequestBuilder {
	if b.thread == nil {
		b.thread = &ThreadCreateRequest{}
	}
	b.thread.Messages = append(b.thread.Messages, ThreadMessage{Role: MessageRoleUser, Content: content})
	return b
}

// Build validates and returns a request for an existing thread.
func (b *RunRequestBuilder) Build() (RunCreateRequest, error) {
	if b.thread != nil {
		return RunCreateRequest{}, ConfigError{Reason: "thread seed set; use BuildThreadAndRun"}
	}
	if err := b.req.Validate(); err != nil {
		return RunCreateRequest{}, err
	}
	out := b.req
	out.Tools = cloneTools(b.req.Tools)
	out.Metadata = b.req.Metadata.Clone()
	return out, nil
}

// BuildThreadAndRun validates and returns a thread+run request.
func (b *RunRequestBuilder) BuildThreadAndRun() (ThreadAndRunCreateRequest, error) {
	if b.req.AdditionalInstructions != "" {
		return ThreadAndRunCreateRequest{}, ConfigError{Reason: "additional instructions are not supported when creating a thread and run"}
	}
	req := ThreadAndRunCreateRequest{
		AssistantID:  b.req.AssistantID,
		Thread:       cloneThreadSeed(b.thread),
		Model:        b.req.Model,
		Instructions: b.req.Instructions,
		Tools:        cloneTools(b.req.Tools),
		Metadata:     b.req.Metadata.Clone(),
	}
	if err := req.Validate(); err != nil {
		return ThreadAndRunCreateRequest{}, err
	}
	return req, nil
}

func cloneTools(tools []Tool) []Tool {
	if tools == nil {
		return nil
	}
	out := make([]Tool, len(tools))
	for i, tool := range tools {
		out[i] = tool
		if tool.Function != nil {
			def := *tool.Function
			def.Parameters = append([]byte(nil), tool.Function.Parameters...)
			out[i].Function = &def
		}
	}
	return out
}

func cloneThreadSeed(seed *ThreadCreateRequest) *ThreadCreateRequest {
	if seed == nil {
		return nil
	}
	out := ThreadCreateRequest{Metadata: seed.Metadata.Clone()}
	if seed.Messages != nil {
		out.Messages = make([]ThreadMessage, len(seed.Messages))
		for i, msg := range seed.Messages {
			msg.FileIDs = append([]string(nil), msg.FileIDs...)
			msg.Metadata = msg.Metadata.Clone()
			out.Messages[i] = msg
		}
	}
	return &out
}
