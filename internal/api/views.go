package api

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	perrors "github.com/p-blackswan/questplan/internal/errors"
	"github.com/p-blackswan/questplan/internal/export"
	"github.com/p-blackswan/questplan/internal/roadmap"
)

// Roadmap handles GET /api/v1/projects/:id/roadmap.
func (h *handlers) Roadmap(c *fiber.Ctx) error {
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	snap, err := h.store.Snapshot(c.UserContext(), userID, projectID)
	if err != nil {
		return err
	}
	view := roadmap.BuildView(snap.Phases, snap.Tasks, snap.Dependencies)
	return c.JSON(fiber.Map{
		"project": snap.Project,
		"role":    snap.Role,
		"roadmap": view,
	})
}

// Stats handles GET /api/v1/projects/:id/stats.
func (h *handlers) Stats(c *fiber.Ctx) error {
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	snap, err := h.store.Snapshot(c.UserContext(), userID, projectID)
	if err != nil {
		return err
	}
	stats := roadmap.ComputeStats(snap.Tasks)
	return c.JSON(fiber.Map{
		"stats":             stats,
		"summary":           stats.Summary(),
		"totalPhases":       len(snap.Phases),
		"totalDependencies": len(snap.Dependencies),
	})
}

// BlockedTasks handles GET /api/v1/projects/:id/blocked.
func (h *handlers) BlockedTasks(c *fiber.Ctx) error {
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	snap, err := h.store.Snapshot(c.UserContext(), userID, projectID)
	if err != nil {
		return err
	}
	blocked := roadmap.NewGraph(snap.Tasks, snap.Dependencies).BlockedTasks()
	if blocked == nil {
		blocked = []roadmap.BlockedTask{}
	}
	return c.JSON(fiber.Map{"blockedTasks": blocked, "count": len(blocked)})
}

// ExportGitHub handles POST /api/v1/projects/:id/export/github. Exporting
// requires edit rights on the project.
func (h *handlers) ExportGitHub(c *fiber.Ctx) error {
	if h.exporter == nil {
		return fmt.Errorf("github export: %w", perrors.ErrUnavailable)
	}
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	var target export.Target
	if err := decode(c, &target); err != nil {
		return err
	}
	if err := target.Validate(); err != nil {
		return err
	}
	ctx := c.UserContext()
	snap, err := h.store.Snapshot(ctx, userID, projectID)
	if err != nil {
		return err
	}
	if !snap.Role.CanEdit() {
		return fmt.Errorf("export project %d: %w", projectID, perrors.ErrDenied)
	}
	sum, err := h.exporter.Export(ctx, snap, target)
	if err != nil {
		return err
	}
	return created(c, sum)
}
