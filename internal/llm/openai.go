package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

const (
	openAIAPIBase      = "https://api.openai.com/v1"
	defaultOpenAIModel = "gpt-4o-mini"
)

// OpenAIProvider implements LLMProvider against an OpenAI-compatible
// chat completions endpoint.
type OpenAIProvider struct {
	apiKey    string
	baseURL   string
	model     string
	maxTokens int
	client    *http.Client
	logger    zerolog.Logger
}

// NewOpenAIProvider constructs a provider for any chat/completions endpoint.
func NewOpenAIProvider(apiKey string, opts ...Option) *OpenAIProvider {
	o := buildOptions(openAIAPIBase, defaultOpenAIModel, opts)
	return &OpenAIProvider{
		apiKey:    apiKey,
		baseURL:   o.baseURL,
		model:     o.model,
		maxTokens: o.maxTokens,
		client:    o.client,
		logger:    o.logger.With().Str("component", "llm").Str("provider", "openai").Logger(),
	}
}

func (p *OpenAIProvider) ModelID() string { return p.model }
func (p *OpenAIProvider) MaxTokens() int  { return p.maxTokens }

type openAIFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openAIToolCall struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Function openAIFunction `json:"function"`
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    *string          `json:"content"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openAITool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Parameters  json.RawMessage `json:"parameters"`
	} `json:"function"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Tools       []openAITool    `json:"tools,omitempty"`
	ToolChoice  string          `json:"tool_choice,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type openAIChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func strPtr(s string) *string { return &s }

// openAIStopReason maps finish_reason onto the Anthropic-style stop reasons
// the rest of the code uses.
func openAIStopReason(finish string) string {
	switch finish {
	case "tool_calls", "function_call":
		return StopReasonToolUse
	case "length":
		return StopReasonMaxTokens
	default:
		return StopReasonEndTurn
	}
}

func buildOpenAIMessages(system string, msgs []Message) []openAIMessage {
	out := make([]openAIMessage, 0, len(msgs)+1)
	if system != "" {
		out = append(out, openAIMessage{Role: RoleSystem, Content: strPtr(system)})
	}
	for _, m := range msgs {
		// Each tool result is its own "tool" message.
		for _, tr := range m.ToolResults {
			out = append(out, openAIMessage{Role: "tool", ToolCallID: tr.ToolUseID, Content: strPtr(tr.Content)})
		}
		if len(m.ToolResults) > 0 && m.Content == "" {
			continue
		}
		om := openAIMessage{Role: m.Role}
		if m.Content != "" || len(m.ToolUses) == 0 {
			om.Content = strPtr(m.Content)
		}
		for _, tu := range m.ToolUses {
			args := string(tu.Input)
			if args == "" {
				args = "{}"
			}
			om.ToolCalls = append(om.ToolCalls, openAIToolCall{
				ID:       tu.ID,
				Type:     "function",
				Function: openAIFunction{Name: tu.Name, Arguments: args},
			})
		}
		out = append(out, om)
	}
	return out
}

func (p *OpenAIProvider) buildRequest(req CompletionRequest, stream bool) openAIRequest {
	model := p.model
	if req.Model != "" {
		model = req.Model
	}
	maxTok := p.maxTokens
	if req.MaxTokens > 0 {
		maxTok = req.MaxTokens
	}
	system, msgs := SplitSystem(req.SystemPrompt, req.Messages)
	or := openAIRequest{
		Model:     model,
		Messages:  buildOpenAIMessages(system, msgs),
		MaxTokens: maxTok,
		Stream:    stream,
	}
	if req.Temperature > 0 {
		t := req.Temperature
		or.Temperature = &t
	}
	for _, t := range req.Tools {
		var ot openAITool
		ot.Type = "function"
		ot.Function.Name = t.Name
		ot.Function.Description = t.Description
		ot.Function.Parameters = t.InputSchema
		or.Tools = append(or.Tools, ot)
	}
	if len(or.Tools) > 0 {
		or.ToolChoice = req.ToolChoice
	}
	return or
}

func (p *OpenAIProvider) doRequest(ctx context.Context, or openAIRequest) (*http.Response, error) {
	body, err := json.Marshal(or)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, transportError("openai", err)
	}
	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		return nil, statusError("openai", resp)
	}
	return resp, nil
}

// Complete sends a blocking chat completion request.
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	or := p.buildRequest(req, false)
	resp, err := p.doRequest(ctx, or)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(body.Choices) == 0 {
		return nil, fmt.Errorf("openai: response has no choices")
	}
	choice := body.Choices[0]
	out := &CompletionResponse{
		StopReason:   openAIStopReason(choice.FinishReason),
		InputTokens:  body.Usage.PromptTokens,
		OutputTokens: body.Usage.CompletionTokens,
	}
	if choice.Message.Content != nil {
		out.Text = *choice.Message.Content
	}
	for _, tc := range choice.Message.ToolCalls {
		input := json.RawMessage(tc.Function.Arguments)
		if !json.Valid(input) {
			input = json.RawMessage(`{}`)
		}
		out.ToolUses = append(out.ToolUses, ToolUse{ID: tc.ID, Name: tc.Function.Name, Input: input})
	}
	if len(out.ToolUses) > 0 {
		out.StopReason = StopReasonToolUse
	}

	p.logger.Debug().
		Str("model", or.Model).
		Str("stop_reason", out.StopReason).
		Int("in_tokens", out.InputTokens).
		Int("out_tokens", out.OutputTokens).
		Int("tool_uses", len(out.ToolUses)).
		Msg("openai complete")
	return out, nil
}

// Stream streams content deltas until the [DONE] sentinel.
func (p *OpenAIProvider) Stream(ctx context.Context, req CompletionRequest, out chan<- Token) error {
	or := p.buildRequest(req, true)
	resp, err := p.doRequest(ctx, or)
	if err != nil {
		return err
	}
	pump(ctx, resp.Body, out, func(emit func(string) bool) error {
		return readSSE(ctx, resp.Body, func(data string) (bool, error) {
			if data == "[DONE]" {
				return true, nil
			}
			var chunk openAIChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				return false, nil
			}
			if chunk.Error != nil {
				return true, fmt.Errorf("openai stream error: %s", chunk.Error.Message)
			}
			for _, c := range chunk.Choices {
				if c.Delta.Content != "" && !emit(c.Delta.Content) {
					return true, ctx.Err()
				}
			}
			return false, nil
		})
	})
	return nil
}
