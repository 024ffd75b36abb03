package api

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	perrors "github.com/p-blackswan/questplan/internal/errors"
	"github.com/p-blackswan/questplan/internal/notify"
	"github.com/p-blackswan/questplan/internal/roadmap"
	"github.com/p-blackswan/questplan/internal/tool"
)

// ListTasks handles GET /api/v1/projects/:id/tasks?status=&difficulty=&phaseId=&q=.
func (h *handlers) ListTasks(c *fiber.Ctx) error {
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	args := tool.SearchTasksArgs{
		ProjectID:  projectID,
		Query:      c.Query("q"),
		Status:     c.Query("status"),
		Difficulty: c.Query("difficulty"),
	}
	if raw := c.Query("phaseId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return perrors.Invalid("phaseId must be a positive integer")
		}
		args.PhaseID = &id
	}
	if err := args.Validate(); err != nil {
		return err
	}
	tasks, err := h.store.ListTasks(c.UserContext(), userID, projectID, args.Filter())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"tasks": tasks, "count": len(tasks)})
}

// CreateTask handles POST /api/v1/projects/:id/tasks.
func (h *handlers) CreateTask(c *fiber.Ctx) error {
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	var args tool.CreateTaskArgs
	if err := decode(c, &args); err != nil {
		return err
	}
	args.ProjectID = projectID
	if err := args.Validate(); err != nil {
		return err
	}
	task, err := h.store.CreateTask(c.UserContext(), userID, args.Input())
	if err != nil {
		return err
	}
	return created(c, task)
}

type taskResponse struct {
	roadmap.Task
	State        roadmap.State  `json:"state"`
	Blocked      bool           `json:"blocked"`
	Predecessors []roadmap.Task `json:"predecessors"`
	Dependents   []roadmap.Task `json:"dependents"`
}

// GetTask handles GET /api/v1/projects/:id/tasks/:taskId.
func (h *handlers) GetTask(c *fiber.Ctx) error {
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	taskID, err := idParam(c, "taskId")
	if err != nil {
		return err
	}
	snap, err := h.store.Snapshot(c.UserContext(), userID, projectID)
	if err != nil {
		return err
	}
	g := roadmap.NewGraph(snap.Tasks, snap.Dependencies)
	task, ok := g.Task(taskID)
	if !ok {
		return perrors.ErrNotFound
	}
	return c.JSON(taskResponse{
		Task:         task,
		State:        g.State(taskID),
		Blocked:      g.IsBlocked(taskID),
		Predecessors: nonNilTasks(g.Predecessors(taskID)),
		Dependents:   nonNilTasks(g.Dependents(taskID)),
	})
}

func nonNilTasks(ts []roadmap.Task) []roadmap.Task {
	if ts == nil {
		return []roadmap.Task{}
	}
	return ts
}

// UpdateTask handles PATCH /api/v1/projects/:id/tasks/:taskId. A transition
// into completed sends achievement notifications.
func (h *handlers) UpdateTask(c *fiber.Ctx) error {
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	taskID, err := idParam(c, "taskId")
	if err != nil {
		return err
	}
	var args tool.UpdateTaskArgs
	if err := decode(c, &args); err != nil {
		return err
	}
	args.ProjectID, args.TaskID = projectID, taskID
	if err := args.Validate(); err != nil {
		return err
	}
	ctx := c.UserContext()
	upd, err := h.store.UpdateTask(ctx, userID, args.Input())
	if err != nil {
		return err
	}
	if upd.Completed() {
		h.announce(ctx, userID, upd.Task)
	}
	return c.JSON(upd.Task)
}

func (h *handlers) announce(ctx context.Context, userID string, task roadmap.Task) {
	snap, err := h.store.Snapshot(ctx, userID, task.ProjectID)
	if err != nil {
		h.logger.Warn().Err(err).Int64("project_id", task.ProjectID).Msg("Skipping completion notification")
		return
	}
	for _, e := range notify.Completion(userID, snap, task) {
		if err := h.notifier.Notify(ctx, e); err != nil {
			h.logger.Warn().Err(err).Str("kind", string(e.Kind)).Msg("Notification failed")
		}
	}
}

// DeleteTask handles DELETE /api/v1/projects/:id/tasks/:taskId.
func (h *handlers) DeleteTask(c *fiber.Ctx) error {
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	taskID, err := idParam(c, "taskId")
	if err != nil {
		return err
	}
	if err := h.store.DeleteTask(c.UserContext(), userID, projectID, taskID); err != nil {
		return err
	}
	return noContent(c)
}

// ListPhases handles GET /api/v1/projects/:id/phases.
func (h *handlers) ListPhases(c *fiber.Ctx) error {
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	phases, err := h.store.ListPhases(c.UserContext(), userID, projectID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"phases": roadmap.SortPhases(phases)})
}

// CreatePhase handles POST /api/v1/projects/:id/phases.
func (h *handlers) CreatePhase(c *fiber.Ctx) error {
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	var args tool.CreatePhaseArgs
	if err := decode(c, &args); err != nil {
		return err
	}
	args.ProjectID = projectID
	if args.Description == nil {
		empty := ""
		args.Description = &empty
	}
	if args.OrderIndex == nil {
		zero := 0
		args.OrderIndex = &zero
	}
	if err := args.Validate(); err != nil {
		return err
	}
	phase, err := h.store.CreatePhase(c.UserContext(), userID, args.Input())
	if err != nil {
		return err
	}
	return created(c, phase)
}

// UpdatePhase handles PATCH /api/v1/projects/:id/phases/:phaseId.
func (h *handlers) UpdatePhase(c *fiber.Ctx) error {
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	phaseID, err := idParam(c, "phaseId")
	if err != nil {
		return err
	}
	var args tool.UpdatePhaseArgs
	if err := decode(c, &args); err != nil {
		return err
	}
	args.ProjectID, args.PhaseID = projectID, phaseID
	if err := args.Validate(); err != nil {
		return err
	}
	phase, err := h.store.UpdatePhase(c.UserContext(), userID, args.Input())
	if err != nil {
		return err
	}
	return c.JSON(phase)
}

// DeletePhase handles DELETE /api/v1/projects/:id/phases/:phaseId. The
// phase's tasks are kept and become unassigned.
func (h *handlers) DeletePhase(c *fiber.Ctx) error {
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	phaseID, err := idParam(c, "phaseId")
	if err != nil {
		return err
	}
	n, err := h.store.DeletePhase(c.UserContext(), userID, projectID, phaseID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"deleted": phaseID, "unassignedTasks": n})
}

// ListDependencies handles GET /api/v1/projects/:id/dependencies.
func (h *handlers) ListDependencies(c *fiber.Ctx) error {
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	deps, err := h.store.ListDependencies(c.UserContext(), userID, projectID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"dependencies": deps})
}

// AddDependency handles POST /api/v1/projects/:id/dependencies.
func (h *handlers) AddDependency(c *fiber.Ctx) error {
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	var args tool.AddDependencyArgs
	if err := decode(c, &args); err != nil {
		return err
	}
	args.ProjectID = projectID
	if err := args.Validate(); err != nil {
		return err
	}
	dep, err := h.store.AddDependency(c.UserContext(), userID, projectID, args.TaskID, args.PredecessorTaskID)
	if err != nil {
		return err
	}
	return created(c, dep)
}

// RemoveDependency handles DELETE /api/v1/projects/:id/dependencies/:depId.
func (h *handlers) RemoveDependency(c *fiber.Ctx) error {
	userID, projectID, err := projectScope(c)
	if err != nil {
		return err
	}
	depID, err := idParam(c, "depId")
	if err != nil {
		return err
	}
	if err := h.store.RemoveDependency(c.UserContext(), userID, projectID, depID); err != nil {
		return err
	}
	return noContent(c)
}
