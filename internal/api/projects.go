package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	perrors "github.com/p-blackswan/questplan/internal/errors"
	"github.com/p-blackswan/questplan/internal/roadmap"
	"github.com/p-blackswan/questplan/internal/store"
)

type createProjectRequest struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Brief       string        `json:"brief"`
	Prompt      string        `json:"prompt"`
	Plan        *roadmap.Plan `json:"plan,omitempty"`
}

type projectResponse struct {
	store.ProjectEntry
	Stats roadmap.Stats `json:"stats"`
}

// ListProjects handles GET /api/v1/projects.
func (h *handlers) ListProjects(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	projects, err := h.store.ListProjects(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"projects": projects, "count": len(projects)})
}

// CreateProject handles POST /api/v1/projects. With a plan, the project and
// all of its tasks are created together or not at all.
func (h *handlers) CreateProject(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return err
	}
	var req createProjectRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	ctx := c.UserContext()

	var p *roadmap.Project
	if req.Plan != nil {
		plan := *req.Plan
		if strings.TrimSpace(req.Name) != "" {
			plan.ProjectName = req.Name
		}
		if req.Description != "" {
			plan.ProjectDescription = req.Description
		}
		if p, err = h.store.ImportPlan(ctx, userID, plan); err != nil {
			return err
		}
		if req.Brief != "" || req.Prompt != "" {
			in := store.UpdateProjectInput{}
			if req.Brief != "" {
				in.Brief = &req.Brief
			}
			if req.Prompt != "" {
				in.Prompt = &req.Prompt
			}
			if p, err = h.store.UpdateProject(ctx, userID, p.ID, in); err != nil {
				return err
			}
		}
	} else {
		p, err = h.store.CreateProject(ctx, userID, store.CreateProjectInput{
			Name:        req.Name,
			Description: req.Description,
			Brief:       req.Brief,
			Prompt:      req.Prompt,
		})
		if err != nil {
			return err
		}
	}
	return created(c, p)
}

// GetProject handles GET /api/v1/projects/:id.
func (h *handlers) GetProject(c *fiber.Ctx) error {
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	snap, err := h.store.Snapshot(c.UserContext(), userID, projectID)
	if err != nil {
		return err
	}
	return c.JSON(projectResponse{
		ProjectEntry: store.ProjectEntry{Project: snap.Project, Role: snap.Role},
		Stats:        roadmap.ComputeStats(snap.Tasks),
	})
}

type updateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// UpdateProject handles PATCH /api/v1/projects/:id.
func (h *handlers) UpdateProject(c *fiber.Ctx) error {
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	var req updateProjectRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	p, err := h.store.UpdateProject(c.UserContext(), userID, projectID, store.UpdateProjectInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.JSON(p)
}

// DeleteProject handles DELETE /api/v1/projects/:id.
func (h *handlers) DeleteProject(c *fiber.Ctx) error {
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	if err := h.store.DeleteProject(c.UserContext(), userID, projectID); err != nil {
		return err
	}
	return noContent(c)
}

type briefResponse struct {
	Brief  string       `json:"brief"`
	Prompt string       `json:"prompt"`
	Role   roadmap.Role `json:"role"`
}

// GetBrief handles GET /api/v1/projects/:id/brief.
func (h *handlers) GetBrief(c *fiber.Ctx) error {
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	entry, err := h.store.GetProject(c.UserContext(), userID, projectID)
	if err != nil {
		return err
	}
	return c.JSON(briefResponse{Brief: entry.Brief, Prompt: entry.Prompt, Role: entry.Role})
}

// UpdateBrief handles PUT /api/v1/projects/:id/brief.
func (h *handlers) UpdateBrief(c *fiber.Ctx) error {
	return h.updateText(c, "brief", func(v *string) store.UpdateProjectInput {
		return store.UpdateProjectInput{Brief: v}
	})
}

// UpdatePrompt handles PUT /api/v1/projects/:id/prompt.
func (h *handlers) UpdatePrompt(c *fiber.Ctx) error {
	return h.updateText(c, "prompt", func(v *string) store.UpdateProjectInput {
		return store.UpdateProjectInput{Prompt: v}
	})
}

func (h *handlers) updateText(c *fiber.Ctx, field string, input func(*string) store.UpdateProjectInput) error {
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	var req map[string]*string
	if err := decode(c, &req); err != nil {
		return err
	}
	v, ok := req[field]
	if !ok || v == nil {
		return perrors.Invalid("%s is required", field)
	}
	p, err := h.store.UpdateProject(c.UserContext(), userID, projectID, input(v))
	if err != nil {
		return err
	}
	entry, err := h.store.GetProject(c.UserContext(), userID, p.ID)
	if err != nil {
		return err
	}
	return c.JSON(briefResponse{Brief: p.Brief, Prompt: p.Prompt, Role: entry.Role})
}

// ListMembers handles GET /api/v1/projects/:id/members.
func (h *handlers) ListMembers(c *fiber.Ctx) error {
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	members, err := h.store.ListMembers(c.UserContext(), userID, projectID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"members": members})
}

type setMemberRequest struct {
	Role *roadmap.Role `json:"role"`
}

// SetMember handles PUT /api/v1/projects/:id/members/:userId.
func (h *handlers) SetMember(c *fiber.Ctx) error {
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	var req setMemberRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	role := roadmap.RoleCollaborator
	if req.Role != nil {
		role = *req.Role
	}
	m, err := h.store.SetMember(c.UserContext(), userID, projectID, c.Params("userId"), role)
	if err != nil {
		return err
	}
	return c.JSON(m)
}

// RemoveMember handles DELETE /api/v1/projects/:id/members/:userId.
func (h *handlers) RemoveMember(c *fiber.Ctx) error {
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	if err := h.store.RemoveMember(c.UserContext(), userID, projectID, c.Params("userId")); err != nil {
		return err
	}
	return noContent(c)
}
