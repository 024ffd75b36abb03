package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	perrors "github.com/p-blackswan/questplan/internal/errors"
	"github.com/p-blackswan/questplan/internal/roadmap"
)

const taskColumns = `id, project_id, phase_id, name, description, xp, difficulty,
	time_estimate, status, tools, hints, created_at`

func scanTask(row scanner) (roadmap.Task, error) {
	var t roadmap.Task
	var phaseID sql.NullInt64
	var difficulty, status, tools, hints string
	var createdAt int64
	err := row.Scan(&t.ID, &t.ProjectID, &phaseID, &t.Name, &t.Description, &t.XP,
		&difficulty, &t.TimeEstimate, &status, &tools, &hints, &createdAt)
	if err != nil {
		return t, err
	}
	if phaseID.Valid {
		id := phaseID.Int64
		t.PhaseID = &id
	}
	t.Difficulty = roadmap.Difficulty(difficulty)
	t.Status = roadmap.TaskStatus(status)
	t.Tools = decodeList(tools)
	t.Hints = decodeList(hints)
	t.CreatedAt = fromMillis(createdAt)
	return t, nil
}

func encodeList(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	return string(b)
}

func decodeList(raw string) []string {
	out := []string{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []string{}
	}
	return out
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// CreateTask adds a task to a project. Requires edit rights; a phase, if
// given, must belong to the same project.
func (s *Store) CreateTask(ctx context.Context, userID string, in CreateTaskInput) (*roadmap.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var t *roadmap.Task
	err := s.withTx(ctx, func(c conn) error {
		if _, err := s.authorize(ctx, c, userID, in.ProjectID, canEdit); err != nil {
			return err
		}
		var err error
		t, err = s.insertTask(ctx, c, in)
		if err != nil {
			return err
		}
		return s.touchProject(ctx, c, in.ProjectID)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) insertTask(ctx context.Context, c conn, in CreateTaskInput) (*roadmap.Task, error) {
	if in.PhaseID != nil {
		if err := s.checkPhase(ctx, c, in.ProjectID, *in.PhaseID); err != nil {
			return nil, err
		}
	}
	status := in.Status
	if status == "" {
		status = roadmap.StatusNotStarted
	}
	now := s.nowMillis()
	id, err := c.insert(ctx, `
		INSERT INTO tasks (project_id, phase_id, name, description, xp, difficulty,
			time_estimate, status, tools, hints, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ProjectID, nullID(in.PhaseID), strings.TrimSpace(in.Name), in.Description, in.XP,
		string(in.Difficulty), in.TimeEstimate, string(status),
		encodeList(in.Tools), encodeList(in.Hints), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return s.getTask(ctx, c, in.ProjectID, id)
}

// GetTask returns one task of a project.
func (s *Store) GetTask(ctx context.Context, userID string, projectID, taskID int64) (*roadmap.Task, error) {
	c := s.conn()
	if _, err := s.authorize(ctx, c, userID, projectID, canRead); err != nil {
		return nil, err
	}
	return s.getTask(ctx, c, projectID, taskID)
}

func (s *Store) getTask(ctx context.Context, c conn, projectID, taskID int64) (*roadmap.Task, error) {
	t, err := scanTask(c.queryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ? AND project_id = ?`, taskID, projectID))
	if isNoRows(err) {
		s.logger.Debug().Int64("project_id", projectID).Int64("task_id", taskID).Msg("Task not found in project")
		return nil, fmt.Errorf("task %d: %w", taskID, perrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &t, nil
}

// ListTasks returns a project's tasks in creation order, narrowed by filter.
func (s *Store) ListTasks(ctx context.Context, userID string, projectID int64, filter TaskFilter) ([]roadmap.Task, error) {
	c := s.conn()
	if _, err := s.authorize(ctx, c, userID, projectID, canRead); err != nil {
		return nil, err
	}
	return s.listTasks(ctx, c, projectID, filter)
}

func (s *Store) listTasks(ctx context.Context, c conn, projectID int64, filter TaskFilter) ([]roadmap.Task, error) {
	where := []string{"project_id = ?"}
	args := []any{projectID}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Difficulty != "" {
		where = append(where, "difficulty = ?")
		args = append(args, string(filter.Difficulty))
	}
	if filter.PhaseID != nil {
		where = append(where, "phase_id = ?")
		args = append(args, *filter.PhaseID)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		where = append(where, "(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)")
		pattern := "%" + strings.ToLower(q) + "%"
		args = append(args, pattern, pattern)
	}

	rows, err := c.query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE `+strings.Join(where, " AND ")+
		` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	out := []roadmap.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTask changes the given fields of a task. Requires edit rights.
func (s *Store) UpdateTask(ctx context.Context, userID string, in UpdateTaskInput) (*TaskUpdate, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var out *TaskUpdate
	err := s.withTx(ctx, func(c conn) error {
		if _, err := s.authorize(ctx, c, userID, in.ProjectID, canEdit); err != nil {
			return err
		}
		before, err := s.getTask(ctx, c, in.ProjectID, in.TaskID)
		if err != nil {
			return err
		}

		set := newSetBuilder()
		if in.Name != nil {
			set.add("name", strings.TrimSpace(*in.Name))
		}
		set.addPtr("description", in.Description)
		if in.XP != nil {
			set.add("xp", *in.XP)
		}
		if in.Difficulty != nil {
			set.add("difficulty", string(*in.Difficulty))
		}
		if in.TimeEstimate != nil {
			set.add("time_estimate", *in.TimeEstimate)
		}
		if in.Status != nil {
			set.add("status", string(*in.Status))
		}
		if in.Tools != nil {
			set.add("tools", encodeList(*in.Tools))
		}
		if in.Hints != nil {
			set.add("hints", encodeList(*in.Hints))
		}
		switch {
		case in.ClearPhase:
			set.add("phase_id", sql.NullInt64{})
		case in.PhaseID != nil:
			if err := s.checkPhase(ctx, c, in.ProjectID, *in.PhaseID); err != nil {
				return err
			}
			set.add("phase_id", *in.PhaseID)
		}
		set.add("updated_at", s.nowMillis())

		query, args := set.build("tasks", "id = ? AND project_id = ?", in.TaskID, in.ProjectID)
		if _, err := c.exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		after, err := s.getTask(ctx, c, in.ProjectID, in.TaskID)
		if err != nil {
			return err
		}
		out = &TaskUpdate{Task: *after, PreviousStatus: before.Status}
		return s.touchProject(ctx, c, in.ProjectID)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteTask removes a task together with every dependency edge that
// references it on either side.
func (s *Store) DeleteTask(ctx context.Context, userID string, projectID, taskID int64) error {
	return s.withTx(ctx, func(c conn) error {
		if _, err := s.authorize(ctx, c, userID, projectID, canEdit); err != nil {
			return err
		}
		if _, err := s.getTask(ctx, c, projectID, taskID); err != nil {
			return err
		}
		if _, err := c.exec(ctx, `DELETE FROM task_dependencies
			WHERE project_id = ? AND (task_id = ? OR predecessor_task_id = ?)`,
			projectID, taskID, taskID); err != nil {
			return fmt.Errorf("failed to delete task dependencies: %w", err)
		}
		if _, err := c.exec(ctx, `DELETE FROM tasks WHERE id = ? AND project_id = ?`, taskID, projectID); err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		return s.touchProject(ctx, c, projectID)
	})
}
