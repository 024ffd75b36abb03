// Package llm defines the language model provider interface and its
// Anthropic and OpenAI-compatible implementations.
package llm

import (
	"context"
	"encoding/json"
	"strings"
)

// Role constants for Message.Role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// StopReason describes why the model stopped generating.
const (
	StopReasonEndTurn   = "end_turn"
	StopReasonToolUse   = "tool_use"
	StopReasonMaxTokens = "max_tokens"
)

// ToolUse represents a tool call requested by the model.
type ToolUse struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResult is the result returned to the model after executing a tool.
type ToolResult struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error,omitempty"`
}

// Message is a single turn in the conversation. An assistant turn may carry
// tool calls; a user turn may carry the results of those calls instead of text.
type Message struct {
	Role        string       `json:"role"`
	Content     string       `json:"content,omitempty"`
	ToolUses    []ToolUse    `json:"tool_uses,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// ToolChoiceNone keeps the tools on the request but forbids calling them.
const ToolChoiceNone = "none"

// ToolSchema describes a tool's interface for the model.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"` // JSON Schema object
}

// CompletionRequest is the input to Complete and Stream. System-role
// messages are merged into the system prompt by providers that need it.
type CompletionRequest struct {
	Messages     []Message
	SystemPrompt string
	Tools        []ToolSchema
	ToolChoice   string // "" lets the model decide; ToolChoiceNone forces text
	MaxTokens    int
	Temperature  float64 // sent only when positive
	Model        string  // override provider default if set
}

// Token is a single streaming token.
type Token struct {
	Text  string
	Done  bool
	Error error
}

// CompletionResponse is returned by Complete.
type CompletionResponse struct {
	Text         string    // text content, possibly alongside tool calls
	StopReason   string    // StopReasonEndTurn | StopReasonToolUse | StopReasonMaxTokens
	ToolUses     []ToolUse // populated when StopReason == StopReasonToolUse
	InputTokens  int
	OutputTokens int
}

// LLMProvider is the core abstraction for language model backends.
type LLMProvider interface {
	// Complete sends a completion request and waits for the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Stream sends a completion request and streams tokens to out. The
	// provider closes out after a Done or Error token. A returned error means
	// nothing was sent and out was not closed.
	Stream(ctx context.Context, req CompletionRequest, out chan<- Token) error

	// ModelID returns the current model identifier string.
	ModelID() string

	// MaxTokens returns the provider's default max output token limit.
	MaxTokens() int
}

// ToolResultMessage creates a user message carrying one tool result.
func ToolResultMessage(toolUseID, content string, isError bool) Message {
	return Message{
		Role: RoleUser,
		ToolResults: []ToolResult{{
			ToolUseID: toolUseID,
			Content:   content,
			IsError:   isError,
		}},
	}
}

// AssistantToolMessage records an assistant turn that requested tool calls.
func AssistantToolMessage(text string, uses []ToolUse) Message {
	return Message{Role: RoleAssistant, Content: text, ToolUses: uses}
}

// SplitSystem separates system-role messages from the conversation and joins
// them, after base, into one system prompt.
func SplitSystem(base string, msgs []Message) (string, []Message) {
	parts := make([]string, 0, 2)
	if base != "" {
		parts = append(parts, base)
	}
	rest := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == RoleSystem {
			if m.Content != "" {
				parts = append(parts, m.Content)
			}
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(parts, "\n\n"), rest
}
