package tool

import (
	"context"
	"fmt"

	perrors "github.com/p-blackswan/questplan/internal/errors"
	"github.com/p-blackswan/questplan/internal/roadmap"
	"github.com/p-blackswan/questplan/internal/store"
)

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func (b *Bridge) operations() []Operation {
	return []Operation{
		// Read operations
		newOp("getTasks",
			"Get all tasks in the project with their details. Use this to see task names, statuses, XP, and other information.",
			object(props{"projectId": projectIDProp}, "projectId"),
			b.getTasks),
		newOp("getPhases",
			"Get all phases in the project in order, with their task counts and derived state.",
			object(props{"projectId": projectIDProp}, "projectId"),
			b.getPhases),
		newOp("getTaskDetails",
			"Get detailed information about a specific task including its phase, dependencies, dependents and derived state.",
			object(props{"projectId": projectIDProp, "taskId": taskIDProp}, "projectId", "taskId"),
			b.getTaskDetails),
		newOp("getProjectStats",
			"Get project statistics: total and earned XP, completed tasks, progress percentage, and breakdowns by status and difficulty.",
			object(props{"projectId": projectIDProp}, "projectId"),
			b.getProjectStats),
		newOp("searchTasks",
			"Search for tasks by name or description, status, difficulty, or phase.",
			object(props{
				"projectId":  projectIDProp,
				"query":      str("Text to match against task name and description"),
				"status":     statusProp,
				"difficulty": difficultyProp,
				"phaseId":    integer("Only tasks in this phase"),
			}, "projectId"),
			b.searchTasks),
		newOp("getBlockedTasks",
			"Get all blocked tasks and what each one is waiting for.",
			object(props{"projectId": projectIDProp}, "projectId"),
			b.getBlockedTasks),

		// Write operations
		newOp("createTask",
			"Create a new task in the project. Use this when the user asks to add, create, or insert a new task.",
			object(props{
				"projectId":    projectIDProp,
				"name":         str("Task name (3-7 words, action-oriented)"),
				"description":  str("Task description (1-2 sentences)"),
				"xp":           boundedInteger("Experience points (10-50 easy, 50-150 medium, 150-300 hard, 300-500 expert)", roadmap.MinXP, roadmap.MaxXP),
				"difficulty":   difficultyProp,
				"timeEstimate": number("Estimated time in hours", roadmap.MinTimeEstimate, roadmap.MaxTimeEstimate),
				"tools":        stringArray("Tools or technologies needed"),
				"hints":        stringArray("Helpful hints"),
				"status":       statusProp,
				"phaseId":      integer("Phase this task belongs to"),
			}, "projectId", "name", "description", "xp", "difficulty", "timeEstimate"),
			b.createTask),
		newOp("updateTask",
			"Update an existing task: name, description, status, difficulty, XP, time estimate, tools, hints or phase. Set phaseId to null to unassign.",
			object(props{
				"taskId":       taskIDProp,
				"projectId":    projectIDProp,
				"name":         str("New task name"),
				"description":  str("New task description"),
				"xp":           boundedInteger("New XP value", roadmap.MinXP, roadmap.MaxXP),
				"difficulty":   difficultyProp,
				"timeEstimate": number("New time estimate in hours", roadmap.MinTimeEstimate, roadmap.MaxTimeEstimate),
				"tools":        stringArray("New tools list"),
				"hints":        stringArray("New hints list"),
				"status":       statusProp,
				"phaseId":      nullableInteger("New phase ID, or null to unassign"),
			}, "taskId", "projectId"),
			b.updateTask),
		newOp("deleteTask",
			"Delete a task from the project. Its dependency links are removed with it.",
			object(props{"taskId": taskIDProp, "projectId": projectIDProp}, "taskId", "projectId"),
			b.deleteTask),
		newOp("createPhase",
			"Create a new phase in the project. Phases are ordered groupings of tasks (e.g., Planning, Development, Testing).",
			object(props{
				"projectId":   projectIDProp,
				"name":        str("Phase name"),
				"description": str("What this phase accomplishes"),
				"orderIndex":  integer("Position of this phase in the project sequence, starting from 1"),
			}, "projectId", "name", "description", "orderIndex"),
			b.createPhase),
		newOp("updatePhase",
			"Update an existing phase's name, description, or order.",
			object(props{
				"phaseId":     phaseIDProp,
				"projectId":   projectIDProp,
				"name":        str("New phase name"),
				"description": str("New phase description"),
				"orderIndex":  integer("New order index"),
			}, "phaseId", "projectId"),
			b.updatePhase),
		newOp("deletePhase",
			"Delete a phase from the project. Tasks in this phase become unassigned, not deleted.",
			object(props{"phaseId": phaseIDProp, "projectId": projectIDProp}, "phaseId", "projectId"),
			b.deletePhase),
		newOp("addDependency",
			"Add a dependency between tasks: the predecessor must be completed before the dependent task can start.",
			object(props{
				"taskId":            integer("The dependent task"),
				"predecessorTaskId": integer("The task that must be completed first"),
				"projectId":         projectIDProp,
			}, "taskId", "predecessorTaskId", "projectId"),
			b.addDependency),
		newOp("removeDependency",
			"Remove a dependency between tasks.",
			object(props{"dependencyId": integer("The dependency ID"), "projectId": projectIDProp}, "dependencyId", "projectId"),
			b.removeDependency),
	}
}

// ---- reads ----

type taskList struct {
	Tasks []roadmap.Task `json:"tasks"`
	Count int            `json:"count"`
}

func (b *Bridge) getTasks(ctx context.Context, userID string, a ProjectArgs) (Result, error) {
	tasks, err := b.store.ListTasks(ctx, userID, a.ProjectID, store.TaskFilter{})
	if err != nil {
		return Result{}, err
	}
	return ok(fmt.Sprintf("Found %s", plural(len(tasks), "task")), taskList{Tasks: tasks, Count: len(tasks)}), nil
}

type phaseSummary struct {
	roadmap.Phase
	State     roadmap.State `json:"state"`
	Progress  int           `json:"progress"`
	TaskCount int           `json:"taskCount"`
}

func (b *Bridge) getPhases(ctx context.Context, userID string, a ProjectArgs) (Result, error) {
	snap, err := b.store.Snapshot(ctx, userID, a.ProjectID)
	if err != nil {
		return Result{}, err
	}
	view := roadmap.BuildView(snap.Phases, snap.Tasks, snap.Dependencies)
	phases := make([]phaseSummary, 0, len(view.Phases))
	for _, pv := range view.Phases {
		phases = append(phases, phaseSummary{Phase: pv.Phase, State: pv.State, Progress: pv.Progress, TaskCount: len(pv.Tasks)})
	}
	return ok(fmt.Sprintf("Found %s", plural(len(phases), "phase")), map[string]any{
		"phases":          phases,
		"unassignedTasks": len(view.Unassigned),
	}), nil
}

type taskDetails struct {
	Task         roadmap.Task   `json:"task"`
	State        roadmap.State  `json:"state"`
	Blocked      bool           `json:"blocked"`
	Phase        *roadmap.Phase `json:"phase"`
	Predecessors []roadmap.Task `json:"predecessors"`
	Dependents   []roadmap.Task `json:"dependents"`
}

func (b *Bridge) getTaskDetails(ctx context.Context, userID string, a TaskRef) (Result, error) {
	snap, err := b.store.Snapshot(ctx, userID, a.ProjectID)
	if err != nil {
		return Result{}, err
	}
	g := roadmap.NewGraph(snap.Tasks, snap.Dependencies)
	task, found := g.Task(a.TaskID)
	if !found {
		return Result{}, fmt.Errorf("task %d: %w", a.TaskID, perrors.ErrNotFound)
	}
	d := taskDetails{
		Task:         task,
		State:        g.State(task.ID),
		Blocked:      g.IsBlocked(task.ID),
		Predecessors: g.Predecessors(task.ID),
		Dependents:   g.Dependents(task.ID),
	}
	if task.PhaseID != nil {
		for i := range snap.Phases {
			if snap.Phases[i].ID == *task.PhaseID {
				d.Phase = &snap.Phases[i]
				break
			}
		}
	}
	return ok(fmt.Sprintf("Task details: %s", task.Name), d), nil
}

type projectStats struct {
	roadmap.Stats
	TotalPhases       int `json:"totalPhases"`
	TotalDependencies int `json:"totalDependencies"`
}

func (b *Bridge) getProjectStats(ctx context.Context, userID string, a ProjectArgs) (Result, error) {
	snap, err := b.store.Snapshot(ctx, userID, a.ProjectID)
	if err != nil {
		return Result{}, err
	}
	stats := projectStats{
		Stats:             roadmap.ComputeStats(snap.Tasks),
		TotalPhases:       len(snap.Phases),
		TotalDependencies: len(snap.Dependencies),
	}
	return ok("Project stats: "+stats.Summary(), stats), nil
}

func (b *Bridge) searchTasks(ctx context.Context, userID string, a SearchTasksArgs) (Result, error) {
	tasks, err := b.store.ListTasks(ctx, userID, a.ProjectID, a.Filter())
	if err != nil {
		return Result{}, err
	}
	msg := fmt.Sprintf("Found %s", plural(len(tasks), "task"))
	if a.Query != "" {
		msg += fmt.Sprintf(" matching %q", a.Query)
	}
	return ok(msg, taskList{Tasks: tasks, Count: len(tasks)}), nil
}

func (b *Bridge) getBlockedTasks(ctx context.Context, userID string, a ProjectArgs) (Result, error) {
	snap, err := b.store.Snapshot(ctx, userID, a.ProjectID)
	if err != nil {
		return Result{}, err
	}
	blocked := roadmap.NewGraph(snap.Tasks, snap.Dependencies).BlockedTasks()
	if blocked == nil {
		blocked = []roadmap.BlockedTask{}
	}
	return ok(fmt.Sprintf("Found %s", plural(len(blocked), "blocked task")), map[string]any{
		"blockedTasks": blocked,
		"count":        len(blocked),
	}), nil
}

// ---- writes ----

func (b *Bridge) createTask(ctx context.Context, userID string, a CreateTaskArgs) (Result, error) {
	task, err := b.store.CreateTask(ctx, userID, a.Input())
	if err != nil {
		return Result{}, err
	}
	return ok(fmt.Sprintf("Created task %q (%d XP)", task.Name, task.XP), task), nil
}

func (b *Bridge) updateTask(ctx context.Context, userID string, a UpdateTaskArgs) (Result, error) {
	upd, err := b.store.UpdateTask(ctx, userID, a.Input())
	if err != nil {
		return Result{}, err
	}
	if upd.Completed() {
		b.announce(ctx, userID, upd.Task)
		return ok(fmt.Sprintf("Completed task %q (+%d XP)", upd.Task.Name, upd.Task.XP), upd.Task), nil
	}
	return ok(fmt.Sprintf("Updated task %q", upd.Task.Name), upd.Task), nil
}

func (b *Bridge) deleteTask(ctx context.Context, userID string, a TaskRef) (Result, error) {
	if err := b.store.DeleteTask(ctx, userID, a.ProjectID, a.TaskID); err != nil {
		return Result{}, err
	}
	return ok(fmt.Sprintf("Deleted task %d", a.TaskID), nil), nil
}

func (b *Bridge) createPhase(ctx context.Context, userID string, a CreatePhaseArgs) (Result, error) {
	phase, err := b.store.CreatePhase(ctx, userID, a.Input())
	if err != nil {
		return Result{}, err
	}
	return ok(fmt.Sprintf("Created phase %q", phase.Name), phase), nil
}

func (b *Bridge) updatePhase(ctx context.Context, userID string, a UpdatePhaseArgs) (Result, error) {
	phase, err := b.store.UpdatePhase(ctx, userID, a.Input())
	if err != nil {
		return Result{}, err
	}
	return ok(fmt.Sprintf("Updated phase %q", phase.Name), phase), nil
}

func (b *Bridge) deletePhase(ctx context.Context, userID string, a PhaseRef) (Result, error) {
	n, err := b.store.DeletePhase(ctx, userID, a.ProjectID, a.PhaseID)
	if err != nil {
		return Result{}, err
	}
	return ok(fmt.Sprintf("Deleted phase %d; %s now unassigned", a.PhaseID, plural(int(n), "task")),
		map[string]any{"unassignedTasks": n}), nil
}

func (b *Bridge) addDependency(ctx context.Context, userID string, a AddDependencyArgs) (Result, error) {
	dep, err := b.store.AddDependency(ctx, userID, a.ProjectID, a.TaskID, a.PredecessorTaskID)
	if err != nil {
		return Result{}, err
	}
	return ok(fmt.Sprintf("Task %d now depends on task %d", dep.TaskID, dep.PredecessorTaskID), dep), nil
}

func (b *Bridge) removeDependency(ctx context.Context, userID string, a RemoveDependencyArgs) (Result, error) {
	if err := b.store.RemoveDependency(ctx, userID, a.ProjectID, a.DependencyID); err != nil {
		return Result{}, err
	}
	return ok(fmt.Sprintf("Removed dependency %d", a.DependencyID), nil), nil
}
