package providers

import (
	"context"
	"encoding/json"
)

// Provider is the interface all LLM providers must implement.
type Provider interface {
	// Converse sends a conversation to the LLM and returns the reply.
	Converse(ctx context.Context, req ConverseRequest) (*Reply, error)

	// ConverseStream sends a conversation and streams text chunks via callback.
	// Returns the final complete reply after streaming ends.
	ConverseStream(ctx context.Context, req ConverseRequest, onChunk func(StreamChunk)) (*Reply, error)

	// DefaultModel returns the provider's default model name.
	DefaultModel() string

	// Name returns the provider identifier (e.g. "anthropic").
	Name() string
}

// ConverseRequest contains the input for a Converse/ConverseStream call.
type ConverseRequest struct {
	System    string           `json:"system,omitempty"`
	Messages  []Message        `json:"messages"`
	Tools     []ToolDefinition `json:"tools,omitempty"`
	Model     string           `json:"model,omitempty"`
	MaxTokens int              `json:"max_tokens,omitempty"`
}

// Reply is the result from an LLM call.
type Reply struct {
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	StopReason string     `json:"stop_reason"` // "end_turn", "tool_use", "max_tokens"
	Usage      *Usage     `json:"usage,omitempty"`

	// Extra holds content blocks of kinds this client does not understand,
	// preserved verbatim so they can be round-tripped back to the API.
	Extra []json.RawMessage `json:"extra,omitempty"`
}

// StreamChunk is a piece of a streaming response.
type StreamChunk struct {
	Content  string `json:"content,omitempty"`
	Thinking string `json:"thinking,omitempty"`
	Done     bool   `json:"done,omitempty"`
}

// Message represents a conversation message.
// Tool results use role "tool" with ToolCallID referencing the call.
type Message struct {
	Role       string     `json:"role"` // "user", "assistant", "tool"
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`

	// Extra carries opaque content blocks from a previous Reply.
	Extra []json.RawMessage `json:"extra,omitempty"`
}

// ToolCall represents a tool invocation requested by the LLM.
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolDefinition describes a tool available to the LLM.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
