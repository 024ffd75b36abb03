package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/questplan/internal/assistant"
	"github.com/p-blackswan/questplan/internal/auth"
	"github.com/p-blackswan/questplan/internal/notify"
)

type handlers struct {
	store     Store
	assistant *assistant.Assistant
	catalog   *assistant.Catalog
	exporter  Exporter
	notifier  notify.Notifier
	logger    zerolog.Logger
	now       func() time.Time
}

// caller returns the authenticated user id.
func caller(c *fiber.Ctx) (string, error) {
	p, err := auth.Require(c.UserContext())
	if err != nil {
		return "", err
	}
	return p.UserID, nil
}

// projectScope resolves the caller and the :id path parameter.
func projectScope(c *fiber.Ctx) (string, int64, error) {
	userID, err := caller(c)
	if err != nil {
		return "", 0, err
	}
	projectID, err := idParam(c, "id")
	if err != nil {
		return "", 0, err
	}
	return userID, projectID, nil
}

func created(c *fiber.Ctx, v any) error {
	return c.Status(fiber.StatusCreated).JSON(v)
}

func noContent(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}
