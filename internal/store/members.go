package store

import (
	"context"
	"fmt"
	"strings"

	perrors "github.com/p-blackswan/questplan/internal/errors"
	"github.com/p-blackswan/questplan/internal/roadmap"
)

// ListMembers returns the owner followed by every member of a project.
func (s *Store) ListMembers(ctx context.Context, userID string, projectID int64) ([]roadmap.Member, error) {
	c := s.conn()
	if _, err := s.authorize(ctx, c, userID, projectID, canRead); err != nil {
		return nil, err
	}
	p, err := s.getProject(ctx, c, projectID)
	if err != nil {
		return nil, err
	}

	out := []roadmap.Member{{ProjectID: projectID, UserID: p.OwnerID, Role: roadmap.RoleOwner, CreatedAt: p.CreatedAt}}
	rows, err := c.query(ctx, `SELECT user_id, role, created_at FROM project_members
		WHERE project_id = ? ORDER BY role, created_at, user_id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		m := roadmap.Member{ProjectID: projectID}
		var role int
		var createdAt int64
		if err := rows.Scan(&m.UserID, &role, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.Role = roadmap.Role(role)
		m.CreatedAt = fromMillis(createdAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

// SetMember grants or changes a user's role on a project. Only the owner may
// do this, and ownership itself cannot be granted.
func (s *Store) SetMember(ctx context.Context, userID string, projectID int64, memberID string, role roadmap.Role) (*roadmap.Member, error) {
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return nil, perrors.Invalid("userId is required")
	}
	if role != roadmap.RoleCollaborator && role != roadmap.RoleViewer {
		return nil, perrors.Invalid("role must be collaborator or viewer")
	}
	var m *roadmap.Member
	err := s.withTx(ctx, func(c conn) error {
		if _, err := s.authorize(ctx, c, userID, projectID, canManage); err != nil {
			return err
		}
		if memberID == userID {
			return perrors.Invalid("the owner cannot be added as a member")
		}
		now := s.nowMillis()
		_, err := c.exec(ctx, `INSERT INTO project_members (project_id, user_id, role, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (project_id, user_id) DO UPDATE SET role = excluded.role`,
			projectID, memberID, int(role), now)
		if err != nil {
			return fmt.Errorf("failed to set member: %w", err)
		}
		m = &roadmap.Member{ProjectID: projectID, UserID: memberID, Role: role, CreatedAt: fromMillis(now)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("project_id", projectID).Str("member_id", memberID).Str("role", role.String()).Msg("Member role set")
	return m, nil
}

// RemoveMember revokes a user's membership. Only the owner may do this.
func (s *Store) RemoveMember(ctx context.Context, userID string, projectID int64, memberID string) error {
	return s.withTx(ctx, func(c conn) error {
		if _, err := s.authorize(ctx, c, userID, projectID, canManage); err != nil {
			return err
		}
		res, err := c.exec(ctx, `DELETE FROM project_members WHERE project_id = ? AND user_id = ?`, projectID, memberID)
		if err != nil {
			return fmt.Errorf("failed to remove member: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("member %q: %w", memberID, perrors.ErrNotFound)
		}
		return nil
	})
}
