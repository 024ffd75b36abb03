package api

import (
	"bufio"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/p-blackswan/questplan/internal/assistant"
	perrors "github.com/p-blackswan/questplan/internal/errors"
	"github.com/p-blackswan/questplan/internal/llm"
	"github.com/p-blackswan/questplan/internal/requestid"
)

func (h *handlers) requireAssistant() error {
	if h.assistant == nil {
		return fmt.Errorf("assistant: %w", perrors.ErrUnavailable)
	}
	return nil
}

// writeEvent writes one server-sent event.
func writeEvent(w *bufio.Writer, e assistant.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data); err != nil {
		return err
	}
	return w.Flush()
}

// Chat handles POST /api/v1/chat. Validation and access failures are
// returned as problems; once the stream starts, failures arrive as an error
// event.
func (h *handlers) Chat(c *fiber.Ctx) error {
	if err := h.requireAssistant(); err != nil {
		return err
	}
	if _, err := caller(c); err != nil {
		return err
	}
	var req assistant.ChatRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()
	snap, err := h.assistant.Prepare(ctx, req)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	logger := requestid.Logger(ctx, h.logger)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		err := h.assistant.ChatPrepared(ctx, req, snap, func(e assistant.Event) error {
			return writeEvent(w, e)
		})
		if err != nil {
			logger.Warn().Err(err).Int64("project_id", req.ProjectID).Msg("chat stream ended with error")
		}
	})
	return nil
}

type generatePlanRequest struct {
	Messages []llm.Message `json:"messages"`
	Language string        `json:"language"`
}

// GeneratePlan handles POST /api/v1/plans/generate.
func (h *handlers) GeneratePlan(c *fiber.Ctx) error {
	if err := h.requireAssistant(); err != nil {
		return err
	}
	if _, err := caller(c); err != nil {
		return err
	}
	var req generatePlanRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	plan, err := h.assistant.GeneratePlan(c.UserContext(), req.Messages, req.Language)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"plan": plan})
}

// Hints handles GET /api/v1/hints?count=N.
func (h *handlers) Hints(c *fiber.Ctx) error {
	count := c.QueryInt("count", assistant.DefaultHintCount)
	if count < 1 || count > assistant.MaxHintCount {
		return perrors.Invalid("count must be between 1 and %d", assistant.MaxHintCount)
	}
	return c.JSON(fiber.Map{"hints": assistant.DailyHints(h.catalog.Hints, h.now(), count)})
}

// Languages handles GET /api/v1/languages.
func (h *handlers) Languages(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"languages": h.catalog.LanguageTags(),
		"default":   assistant.DefaultLanguage,
	})
}
