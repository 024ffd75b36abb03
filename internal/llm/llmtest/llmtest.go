// Package llmtest provides a scripted LLMProvider for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/p-blackswan/questplan/internal/llm"
)

// Provider replays scripted responses in order and records every request.
// Stream splits the next response's Text into the configured chunks.
type Provider struct {
	mu        sync.Mutex
	responses []Response
	requests  []llm.CompletionRequest
}

// Response is one scripted reply. Err fails the call; StreamErr is sent as
// an Error token after Chunks.
type Response struct {
	llm.CompletionResponse
	Chunks    []string
	Err       error
	StreamErr error
}

// New returns a provider that replays rs.
func New(rs ...Response) *Provider {
	return &Provider{responses: rs}
}

// Enqueue appends rs to the script.
func (p *Provider) Enqueue(rs ...Response) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = append(p.responses, rs...)
}

// Text is a shorthand for a plain end_turn reply.
func Text(s string) Response {
	return Response{CompletionResponse: llm.CompletionResponse{Text: s, StopReason: llm.StopReasonEndTurn}}
}

// ToolCalls is a shorthand for a tool_use reply.
func ToolCalls(uses ...llm.ToolUse) Response {
	return Response{CompletionResponse: llm.CompletionResponse{StopReason: llm.StopReasonToolUse, ToolUses: uses}}
}

// Requests returns the requests received so far.
func (p *Provider) Requests() []llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]llm.CompletionRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

func (p *Provider) next(req llm.CompletionRequest) (Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if len(p.responses) == 0 {
		return Response{}, fmt.Errorf("llmtest: no scripted response for request %d", len(p.requests))
	}
	r := p.responses[0]
	p.responses = p.responses[1:]
	return r, nil
}

func (p *Provider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	r, err := p.next(req)
	if err != nil {
		return nil, err
	}
	if r.Err != nil {
		return nil, r.Err
	}
	resp := r.CompletionResponse
	return &resp, nil
}

func (p *Provider) Stream(ctx context.Context, req llm.CompletionRequest, out chan<- llm.Token) error {
	r, err := p.next(req)
	if err != nil {
		return err
	}
	if r.Err != nil {
		return r.Err
	}
	chunks := r.Chunks
	if len(chunks) == 0 && r.Text != "" {
		chunks = []string{r.Text}
	}
	go func() {
		defer close(out)
		for _, c := range chunks {
			select {
			case out <- llm.Token{Text: c}:
			case <-ctx.Done():
				return
			}
		}
		final := llm.Token{Done: true}
		if r.StreamErr != nil {
			final = llm.Token{Error: r.StreamErr}
		}
		select {
		case out <- final:
		case <-ctx.Done():
		}
	}()
	return nil
}

func (p *Provider) ModelID() string { return "scripted" }
func (p *Provider) MaxTokens() int  { return 1024 }

var _ llm.LLMProvider = (*Provider)(nil)
