package api

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/p-blackswan/questplan/internal/roadmap"
	"github.com/p-blackswan/questplan/internal/store"
)

type memoryRequest struct {
	Type        *roadmap.MemoryType `json:"type"`
	Label       *string             `json:"label"`
	Content     *string             `json:"content"`
	Description *string             `json:"description"`
	Metadata    json.RawMessage     `json:"metadata"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ListMemory handles GET /api/v1/projects/:id/memory?type=.
func (h *handlers) ListMemory(c *fiber.Ctx) error {
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	var typ roadmap.MemoryType
	if raw := c.Query("type"); raw != "" {
		if typ, err = roadmap.ParseMemoryType(raw); err != nil {
			return err
		}
	}
	items, err := h.store.ListMemoryItems(c.UserContext(), userID, projectID, typ)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": items})
}

// CreateMemory handles POST /api/v1/projects/:id/memory.
func (h *handlers) CreateMemory(c *fiber.Ctx) error {
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	var req memoryRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	in := store.CreateMemoryInput{
		ProjectID:   projectID,
		Label:       deref(req.Label),
		Content:     deref(req.Content),
		Description: deref(req.Description),
		Metadata:    req.Metadata,
	}
	if req.Type != nil {
		in.Type = *req.Type
	}
	item, err := h.store.CreateMemoryItem(c.UserContext(), userID, in)
	if err != nil {
		return err
	}
	return created(c, item)
}

// UpdateMemory handles PATCH /api/v1/projects/:id/memory/:itemId.
func (h *handlers) UpdateMemory(c *fiber.Ctx) error {
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	itemID, err := idParam(c, "itemId")
	if err != nil {
		return err
	}
	var req memoryRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	item, err := h.store.UpdateMemoryItem(c.UserContext(), userID, store.UpdateMemoryInput{
		ProjectID:   projectID,
		ItemID:      itemID,
		Type:        req.Type,
		Label:       req.Label,
		Content:     req.Content,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return err
	}
	return c.JSON(item)
}

// DeleteMemory handles DELETE /api/v1/projects/:id/memory/:itemId.
func (h *handlers) DeleteMemory(c *fiber.Ctx) error {
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	itemID, err := idParam(c, "itemId")
	if err != nil {
		return err
	}
	if err := h.store.DeleteMemoryItem(c.UserContext(), userID, projectID, itemID); err != nil {
		return err
	}
	return noContent(c)
}
