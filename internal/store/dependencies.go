package store

import (
	"context"
	"fmt"

	perrors "github.com/p-blackswan/questplan/internal/errors"
	"github.com/p-blackswan/questplan/internal/roadmap"
)

// AddDependency records that taskID cannot proceed until predecessorID is
// completed. Both tasks must belong to the project. Self edges are rejected
// and duplicate edges yield ErrConflict; longer cycles are not detected.
func (s *Store) AddDependency(ctx context.Context, userID string, projectID, taskID, predecessorID int64) (*roadmap.Dependency, error) {
	if taskID <= 0 || predecessorID <= 0 {
		return nil, perrors.Invalid("taskId and predecessorTaskId must be positive integers")
	}
	if taskID == predecessorID {
		return nil, perrors.Invalid("a task cannot depend on itself")
	}
	var d *roadmap.Dependency
	err := s.withTx(ctx, func(c conn) error {
		if _, err := s.authorize(ctx, c, userID, projectID, canEdit); err != nil {
			return err
		}
		if _, err := s.getTask(ctx, c, projectID, taskID); err != nil {
			return err
		}
		if _, err := s.getTask(ctx, c, projectID, predecessorID); err != nil {
			return err
		}
		id, err := c.insert(ctx, `
			INSERT INTO task_dependencies (project_id, task_id, predecessor_task_id, created_at)
			VALUES (?, ?, ?, ?)`, projectID, taskID, predecessorID, s.nowMillis())
		if isUniqueViolation(err) {
			return fmt.Errorf("dependency %d -> %d: %w", predecessorID, taskID, perrors.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("failed to add dependency: %w", err)
		}
		d = &roadmap.Dependency{ID: id, ProjectID: projectID, TaskID: taskID, PredecessorTaskID: predecessorID}
		return s.touchProject(ctx, c, projectID)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// RemoveDependency deletes one dependency edge of a project.
func (s *Store) RemoveDependency(ctx context.Context, userID string, projectID, dependencyID int64) error {
	return s.withTx(ctx, func(c conn) error {
		if _, err := s.authorize(ctx, c, userID, projectID, canEdit); err != nil {
			return err
		}
		res, err := c.exec(ctx, `DELETE FROM task_dependencies WHERE id = ? AND project_id = ?`, dependencyID, projectID)
		if err != nil {
			return fmt.Errorf("failed to remove dependency: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("dependency %d: %w", dependencyID, perrors.ErrNotFound)
		}
		return s.touchProject(ctx, c, projectID)
	})
}

// ListDependencies returns every dependency edge of a project.
func (s *Store) ListDependencies(ctx context.Context, userID string, projectID int64) ([]roadmap.Dependency, error) {
	c := s.conn()
	if _, err := s.authorize(ctx, c, userID, projectID, canRead); err != nil {
		return nil, err
	}
	return s.listDependencies(ctx, c, projectID)
}

func (s *Store) listDependencies(ctx context.Context, c conn, projectID int64) ([]roadmap.Dependency, error) {
	rows, err := c.query(ctx, `SELECT id, project_id, task_id, predecessor_task_id
		FROM task_dependencies WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dependencies: %w", err)
	}
	defer rows.Close()

	out := []roadmap.Dependency{}
	for rows.Next() {
		var d roadmap.Dependency
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.TaskID, &d.PredecessorTaskID); err != nil {
			return nil, fmt.Errorf("failed to scan dependency: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
