// Package assistant runs the conversational planning flow: the planning
// chat, plan generation, and the tool-augmented project assistant.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/questplan/internal/auth"
	perrors "github.com/p-blackswan/questplan/internal/errors"
	"github.com/p-blackswan/questplan/internal/llm"
	"github.com/p-blackswan/questplan/internal/metrics"
	"github.com/p-blackswan/questplan/internal/retry"
	"github.com/p-blackswan/questplan/internal/roadmap"
	"github.com/p-blackswan/questplan/internal/tool"
)

// Conversation modes, used as metric and log labels.
const (
	ModePlanning  = "planning"
	ModePlan      = "plan"
	ModeAssistant = "assistant"
)

// Settings tune the model calls.
type Settings struct {
	ChatTemperature    float64
	ChatMaxTokens      int
	PlanTemperature    float64
	PlanMaxTokens      int
	AssistantMaxTokens int
	MaxToolRounds      int
	Retry              retry.Config
}

// DefaultSettings mirrors the configuration defaults.
func DefaultSettings() Settings {
	return Settings{
		ChatTemperature:    0.7,
		ChatMaxTokens:      500,
		PlanTemperature:    0.7,
		PlanMaxTokens:      4000,
		AssistantMaxTokens: 1500,
		MaxToolRounds:      5,
		Retry:              retry.DefaultConfig(),
	}
}

// Snapshots loads a fresh project snapshot on behalf of a user.
type Snapshots interface {
	Snapshot(ctx context.Context, userID string, projectID int64) (*roadmap.Snapshot, error)
}

// Tools is the operation menu offered to the model in project mode.
type Tools interface {
	Schemas() []llm.ToolSchema
	Execute(ctx context.Context, name string, input json.RawMessage) tool.Result
}

// Assistant drives conversations with the language model.
type Assistant struct {
	provider  llm.LLMProvider
	catalog   *Catalog
	snapshots Snapshots
	tools     Tools
	settings  Settings
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// New creates an Assistant. snapshots and tools may be nil, in which case
// only planning mode and plan generation are available.
func New(provider llm.LLMProvider, catalog *Catalog, snapshots Snapshots, tools Tools, settings Settings, m *metrics.Metrics, logger zerolog.Logger) *Assistant {
	if settings.MaxToolRounds < 1 {
		settings.MaxToolRounds = 1
	}
	return &Assistant{
		provider:  provider,
		catalog:   catalog,
		snapshots: snapshots,
		tools:     tools,
		settings:  settings,
		metrics:   m,
		logger:    logger.With().Str("component", "assistant").Logger(),
	}
}

// Catalog returns the prompt catalog.
func (a *Assistant) Catalog() *Catalog { return a.catalog }

// ChatRequest is one user turn with its full history.
type ChatRequest struct {
	Messages  []llm.Message `json:"messages"`
	ProjectID int64         `json:"projectId,omitempty"`
	Language  string        `json:"language,omitempty"`
}

// Event types streamed back to the caller.
const (
	EventToken = "token"
	EventTool  = "tool"
	EventDone  = "done"
	EventError = "error"
)

// Event is one item of a chat stream.
type Event struct {
	Type    string `json:"-"`
	Text    string `json:"text,omitempty"`
	Name    string `json:"name,omitempty"`
	Success *bool  `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
}

func tokenEvent(text string) Event { return Event{Type: EventToken, Text: text} }

func toolEvent(name string, res tool.Result) Event {
	ok := res.Success
	return Event{Type: EventTool, Name: name, Success: &ok, Message: res.Text()}
}

// Emit receives stream events. Returning an error stops the conversation.
type Emit func(Event) error

// conversation keeps the user and assistant turns that carry text. Client
// supplied system turns are dropped; the server owns the system prompt.
func conversation(msgs []llm.Message) []llm.Message {
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		if (m.Role == llm.RoleUser || m.Role == llm.RoleAssistant) && strings.TrimSpace(m.Content) != "" {
			out = append(out, llm.Message{Role: m.Role, Content: m.Content})
		}
	}
	return out
}

// ValidateMessages checks a client-supplied history.
func ValidateMessages(msgs []llm.Message) error {
	if len(msgs) == 0 {
		return perrors.Invalid("messages must be a non-empty array")
	}
	for i, m := range msgs {
		switch m.Role {
		case llm.RoleUser, llm.RoleAssistant, llm.RoleSystem:
		default:
			return perrors.Invalid("message %d has unknown role %q", i, m.Role)
		}
	}
	if len(conversation(msgs)) == 0 {
		return perrors.Invalid("messages contain no user or assistant text")
	}
	return nil
}

// Prepare validates req before any output is produced and, in project mode,
// checks that the caller may read the project. It returns the snapshot to
// use for the first turn.
func (a *Assistant) Prepare(ctx context.Context, req ChatRequest) (*roadmap.Snapshot, error) {
	if err := ValidateMessages(req.Messages); err != nil {
		return nil, err
	}
	if req.ProjectID == 0 {
		return nil, nil
	}
	if req.ProjectID < 0 {
		return nil, perrors.Invalid("projectId must be a positive integer")
	}
	if a.snapshots == nil || a.tools == nil {
		return nil, fmt.Errorf("project assistant: %w", perrors.ErrUnavailable)
	}
	p, err := auth.Require(ctx)
	if err != nil {
		return nil, err
	}
	return a.snapshots.Snapshot(ctx, p.UserID, req.ProjectID)
}

// Chat runs one user turn, in planning mode when req has no project and in
// project-assistant mode otherwise. Events end with done or error.
func (a *Assistant) Chat(ctx context.Context, req ChatRequest, emit Emit) error {
	snap, err := a.Prepare(ctx, req)
	if err != nil {
		return err
	}
	if snap == nil {
		return a.plan(ctx, req, emit)
	}
	return a.assist(ctx, req, snap, emit)
}

// ChatPrepared is Chat for a request already checked with Prepare.
func (a *Assistant) ChatPrepared(ctx context.Context, req ChatRequest, snap *roadmap.Snapshot, emit Emit) error {
	if snap == nil {
		return a.plan(ctx, req, emit)
	}
	return a.assist(ctx, req, snap, emit)
}

func (a *Assistant) fail(emit Emit, err error) error {
	_ = emit(Event{Type: EventError, Message: userMessage(err)})
	return err
}

// userMessage hides internal error detail from the chat stream.
func userMessage(err error) string {
	switch perrors.CodeOf(err) {
	case perrors.CodeUpstream:
		return "The assistant is unavailable right now. Please try again."
	case perrors.CodeNotFound:
		return perrors.ErrNotFound.Error()
	case perrors.CodeUnauthenticated:
		return perrors.ErrUnauthenticated.Error()
	case perrors.CodeInvalidInput, perrors.CodeConflict:
		return err.Error()
	default:
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "The request was cancelled."
		}
		return "Something went wrong while generating a reply."
	}
}

// plan streams one planning-mode reply.
func (a *Assistant) plan(ctx context.Context, req ChatRequest, emit Emit) error {
	start := time.Now()
	prompts := a.catalog.For(req.Language)
	ch := make(chan llm.Token, 32)
	err := a.provider.Stream(ctx, llm.CompletionRequest{
		SystemPrompt: prompts.Planning,
		Messages:     conversation(req.Messages),
		Temperature:  a.settings.ChatTemperature,
		MaxTokens:    a.settings.ChatMaxTokens,
	}, ch)
	if err != nil {
		a.metrics.RecordLLM(ModePlanning, false, time.Since(start))
		a.logger.Error().Err(err).Str("mode", ModePlanning).Msg("LLM stream failed")
		return a.fail(emit, err)
	}

	for tok := range ch {
		switch {
		case tok.Error != nil:
			a.metrics.RecordLLM(ModePlanning, false, time.Since(start))
			a.logger.Error().Err(tok.Error).Str("mode", ModePlanning).Msg("LLM stream interrupted")
			drain(ch)
			return a.fail(emit, fmt.Errorf("%w: %v", perrors.ErrUpstream, tok.Error))
		case tok.Done:
			a.metrics.RecordLLM(ModePlanning, true, time.Since(start))
			drain(ch)
			return emit(Event{Type: EventDone})
		case tok.Text != "":
			if err := emit(tokenEvent(tok.Text)); err != nil {
				drain(ch)
				return err
			}
		}
	}
	// Channel closed without a terminal token: the context was cancelled.
	a.metrics.RecordLLM(ModePlanning, false, time.Since(start))
	if err := ctx.Err(); err != nil {
		return a.fail(emit, err)
	}
	return a.fail(emit, fmt.Errorf("%w: stream ended early", perrors.ErrUpstream))
}

// drain discards the rest of a token stream so the producer can exit.
func drain(ch <-chan llm.Token) {
	go func() {
		for range ch {
		}
	}()
}

// GeneratePlan turns a planning conversation into a structured plan. Retryable
// upstream failures are retried; a malformed plan is never retried or
// partially returned.
func (a *Assistant) GeneratePlan(ctx context.Context, msgs []llm.Message, lang string) (*roadmap.Plan, error) {
	if err := ValidateMessages(msgs); err != nil {
		return nil, err
	}
	prompts := a.catalog.For(lang)
	req := llm.CompletionRequest{
		SystemPrompt: prompts.Generation,
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: prompts.RenderGenerationRequest(FormatConversation(msgs)),
		}},
		Temperature: a.settings.PlanTemperature,
		MaxTokens:   a.settings.PlanMaxTokens,
	}

	rc := a.settings.Retry
	rc.OnRetry = func(attempt int, err error, delay time.Duration) {
		a.logger.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("Retrying plan generation")
	}
	start := time.Now()
	resp, err := retry.DoValue(ctx, rc, func(ctx context.Context) (*llm.CompletionResponse, error) {
		return a.provider.Complete(ctx, req)
	})
	a.metrics.RecordLLM(ModePlan, err == nil, time.Since(start))
	if err != nil {
		a.metrics.RecordPlanGeneration(false)
		a.logger.Error().Err(err).Msg("Plan generation call failed")
		return nil, err
	}

	plan, err := ParsePlan(resp.Text)
	a.metrics.RecordPlanGeneration(err == nil)
	if err != nil {
		a.logger.Warn().Err(err).Int("response_len", len(resp.Text)).Msg("Generated plan rejected")
		return nil, err
	}
	a.logger.Info().
		Str("project", plan.ProjectName).
		Int("tasks", len(plan.Tasks)).
		Int("total_xp", plan.TotalXP).
		Msg("Plan generated")
	return plan, nil
}

// assist runs the project-assistant tool loop for one user turn. The
// snapshot is reloaded for every model call so the context never lags
// behind the tool calls made earlier in the turn.
func (a *Assistant) assist(ctx context.Context, req ChatRequest, snap *roadmap.Snapshot, emit Emit) error {
	p, err := auth.Require(ctx)
	if err != nil {
		return a.fail(emit, err)
	}
	prompts := a.catalog.For(req.Language)
	history := conversation(req.Messages)
	schemas := a.tools.Schemas()

	for round := 0; ; round++ {
		if round > 0 {
			if snap, err = a.snapshots.Snapshot(ctx, p.UserID, req.ProjectID); err != nil {
				return a.fail(emit, err)
			}
		}
		msgs := make([]llm.Message, 0, len(history)+1)
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: BuildContext(snap)})
		msgs = append(msgs, history...)

		creq := llm.CompletionRequest{
			SystemPrompt: prompts.Assistant,
			Messages:     msgs,
			Temperature:  a.settings.ChatTemperature,
			MaxTokens:    a.settings.AssistantMaxTokens,
			Tools:        schemas,
		}
		// Earlier tool blocks need the schemas present, so the last round
		// keeps them and forbids calls instead.
		final := round >= a.settings.MaxToolRounds
		if final {
			creq.ToolChoice = llm.ToolChoiceNone
		}

		start := time.Now()
		resp, err := a.provider.Complete(ctx, creq)
		a.metrics.RecordLLM(ModeAssistant, err == nil, time.Since(start))
		if err != nil {
			a.logger.Error().Err(err).Int("round", round).Int64("project_id", req.ProjectID).Msg("LLM call failed")
			return a.fail(emit, fmt.Errorf("%w: %v", perrors.ErrUpstream, err))
		}

		if resp.Text != "" {
			if err := emit(tokenEvent(resp.Text)); err != nil {
				return err
			}
		}
		if final || resp.StopReason != llm.StopReasonToolUse || len(resp.ToolUses) == 0 {
			a.logger.Debug().Int("rounds", round).Int64("project_id", req.ProjectID).Msg("Assistant turn finished")
			return emit(Event{Type: EventDone})
		}

		history = append(history, llm.AssistantToolMessage(resp.Text, resp.ToolUses))
		results := llm.Message{Role: llm.RoleUser}
		for _, use := range resp.ToolUses {
			res := a.tools.Execute(ctx, use.Name, use.Input)
			if err := emit(toolEvent(use.Name, res)); err != nil {
				return err
			}
			results.ToolResults = append(results.ToolResults, llm.ToolResult{
				ToolUseID: use.ID,
				Content:   res.JSON(),
				IsError:   !res.Success,
			})
		}
		history = append(history, results)
	}
}
