package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	perrors "github.com/p-blackswan/questplan/internal/errors"
	"github.com/p-blackswan/questplan/internal/roadmap"
)

// accessibleProjects selects the ids of projects a user owns or is a member
// of. It takes the user id twice.
const accessibleProjects = `SELECT id FROM projects WHERE owner_id = ?
	UNION SELECT project_id FROM project_members WHERE user_id = ?`

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// ProjectRole returns the caller's role on a project. A missing project and a
// project the caller cannot see both yield ErrNotFound; only the log tells
// them apart.
func (s *Store) ProjectRole(ctx context.Context, userID string, projectID int64) (roadmap.Role, error) {
	return s.projectRole(ctx, s.conn(), userID, projectID)
}

func (s *Store) projectRole(ctx context.Context, c conn, userID string, projectID int64) (roadmap.Role, error) {
	if userID == "" {
		return 0, perrors.ErrUnauthenticated
	}
	if projectID <= 0 {
		return 0, perrors.Invalid("projectId must be a positive integer")
	}

	var ownerID string
	var memberRole sql.NullInt64
	err := c.queryRow(ctx, `
		SELECT p.owner_id, m.role
		FROM projects p
		LEFT JOIN project_members m ON m.project_id = p.id AND m.user_id = ?
		WHERE p.id = ?`, userID, projectID).Scan(&ownerID, &memberRole)
	if isNoRows(err) {
		s.logger.Debug().Int64("project_id", projectID).Str("user_id", userID).Msg("Project does not exist")
		return 0, fmt.Errorf("project %d: %w", projectID, perrors.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve project role: %w", err)
	}

	switch {
	case ownerID == userID:
		return roadmap.RoleOwner, nil
	case memberRole.Valid && roadmap.Role(memberRole.Int64).Valid():
		return roadmap.Role(memberRole.Int64), nil
	default:
		s.logger.Warn().Int64("project_id", projectID).Str("user_id", userID).Msg("Access denied: not a project member")
		return 0, fmt.Errorf("project %d: %w", projectID, perrors.ErrNotFound)
	}
}

// authorize resolves the caller's role and checks it with allowed. A role
// that fails the check is reported as ErrDenied.
func (s *Store) authorize(ctx context.Context, c conn, userID string, projectID int64, allowed func(roadmap.Role) bool) (roadmap.Role, error) {
	role, err := s.projectRole(ctx, c, userID, projectID)
	if err != nil {
		return 0, err
	}
	if !allowed(role) {
		s.logger.Warn().
			Int64("project_id", projectID).
			Str("user_id", userID).
			Str("role", role.String()).
			Msg("Access denied: insufficient role")
		return role, fmt.Errorf("project %d: %w", projectID, perrors.ErrDenied)
	}
	return role, nil
}

func canRead(r roadmap.Role) bool   { return r.CanRead() }
func canEdit(r roadmap.Role) bool   { return r.CanEdit() }
func canManage(r roadmap.Role) bool { return r.CanManage() }
