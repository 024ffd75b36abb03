package store

import (
	"context"
	"fmt"
	"strings"

	perrors "github.com/p-blackswan/questplan/internal/errors"
	"github.com/p-blackswan/questplan/internal/roadmap"
)

const phaseColumns = `id, project_id, name, description, order_index, created_at`

func scanPhase(row scanner) (roadmap.Phase, error) {
	var p roadmap.Phase
	var createdAt int64
	if err := row.Scan(&p.ID, &p.ProjectID, &p.Name, &p.Description, &p.OrderIndex, &createdAt); err != nil {
		return p, err
	}
	p.CreatedAt = fromMillis(createdAt)
	return p, nil
}

// checkPhase verifies that a phase exists within the project.
func (s *Store) checkPhase(ctx context.Context, c conn, projectID, phaseID int64) error {
	_, err := s.getPhase(ctx, c, projectID, phaseID)
	return err
}

func (s *Store) getPhase(ctx context.Context, c conn, projectID, phaseID int64) (*roadmap.Phase, error) {
	p, err := scanPhase(c.queryRow(ctx, `SELECT `+phaseColumns+` FROM phases WHERE id = ? AND project_id = ?`, phaseID, projectID))
	if isNoRows(err) {
		s.logger.Debug().Int64("project_id", projectID).Int64("phase_id", phaseID).Msg("Phase not found in project")
		return nil, fmt.Errorf("phase %d: %w", phaseID, perrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get phase: %w", err)
	}
	return &p, nil
}

// CreatePhase adds a phase to a project.
func (s *Store) CreatePhase(ctx context.Context, userID string, in CreatePhaseInput) (*roadmap.Phase, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var p *roadmap.Phase
	err := s.withTx(ctx, func(c conn) error {
		if _, err := s.authorize(ctx, c, userID, in.ProjectID, canEdit); err != nil {
			return err
		}
		id, err := c.insert(ctx, `
			INSERT INTO phases (project_id, name, description, order_index, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			in.ProjectID, strings.TrimSpace(in.Name), in.Description, in.OrderIndex, s.nowMillis())
		if err != nil {
			return fmt.Errorf("failed to create phase: %w", err)
		}
		if p, err = s.getPhase(ctx, c, in.ProjectID, id); err != nil {
			return err
		}
		return s.touchProject(ctx, c, in.ProjectID)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetPhase returns one phase of a project.
func (s *Store) GetPhase(ctx context.Context, userID string, projectID, phaseID int64) (*roadmap.Phase, error) {
	c := s.conn()
	if _, err := s.authorize(ctx, c, userID, projectID, canRead); err != nil {
		return nil, err
	}
	return s.getPhase(ctx, c, projectID, phaseID)
}

// ListPhases returns a project's phases ordered by order index, then id.
func (s *Store) ListPhases(ctx context.Context, userID string, projectID int64) ([]roadmap.Phase, error) {
	c := s.conn()
	if _, err := s.authorize(ctx, c, userID, projectID, canRead); err != nil {
		return nil, err
	}
	return s.listPhases(ctx, c, projectID)
}

func (s *Store) listPhases(ctx context.Context, c conn, projectID int64) ([]roadmap.Phase, error) {
	rows, err := c.query(ctx, `SELECT `+phaseColumns+` FROM phases WHERE project_id = ? ORDER BY order_index, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list phases: %w", err)
	}
	defer rows.Close()

	out := []roadmap.Phase{}
	for rows.Next() {
		p, err := scanPhase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan phase: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdatePhase changes the given fields of a phase.
func (s *Store) UpdatePhase(ctx context.Context, userID string, in UpdatePhaseInput) (*roadmap.Phase, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var p *roadmap.Phase
	err := s.withTx(ctx, func(c conn) error {
		if _, err := s.authorize(ctx, c, userID, in.ProjectID, canEdit); err != nil {
			return err
		}
		if err := s.checkPhase(ctx, c, in.ProjectID, in.PhaseID); err != nil {
			return err
		}
		set := newSetBuilder()
		if in.Name != nil {
			set.add("name", strings.TrimSpace(*in.Name))
		}
		set.addPtr("description", in.Description)
		if in.OrderIndex != nil {
			set.add("order_index", *in.OrderIndex)
		}
		if len(set.cols) > 0 {
			query, args := set.build("phases", "id = ? AND project_id = ?", in.PhaseID, in.ProjectID)
			if _, err := c.exec(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to update phase: %w", err)
			}
		}
		var err error
		if p, err = s.getPhase(ctx, c, in.ProjectID, in.PhaseID); err != nil {
			return err
		}
		return s.touchProject(ctx, c, in.ProjectID)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePhase removes a phase. Its tasks are kept and become unassigned.
// It returns the number of tasks that were unassigned.
func (s *Store) DeletePhase(ctx context.Context, userID string, projectID, phaseID int64) (int64, error) {
	var unassigned int64
	err := s.withTx(ctx, func(c conn) error {
		if _, err := s.authorize(ctx, c, userID, projectID, canEdit); err != nil {
			return err
		}
		if err := s.checkPhase(ctx, c, projectID, phaseID); err != nil {
			return err
		}
		res, err := c.exec(ctx, `UPDATE tasks SET phase_id = NULL, updated_at = ? WHERE phase_id = ? AND project_id = ?`,
			s.nowMillis(), phaseID, projectID)
		if err != nil {
			return fmt.Errorf("failed to unassign phase tasks: %w", err)
		}
		unassigned, _ = res.RowsAffected()
		if _, err := c.exec(ctx, `DELETE FROM phases WHERE id = ? AND project_id = ?`, phaseID, projectID); err != nil {
			return fmt.Errorf("failed to delete phase: %w", err)
		}
		return s.touchProject(ctx, c, projectID)
	})
	if err != nil {
		return 0, err
	}
	return unassigned, nil
}
