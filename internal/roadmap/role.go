package roadmap

import (
	"encoding/json"
	"fmt"
	"strings"

	perrors "github.com/p-blackswan/questplan/internal/errors"
)

// Role is a user's standing on a project. Lower values carry more authority.
type Role int

const (
	RoleOwner        Role = 1
	RoleCollaborator Role = 2
	RoleViewer       Role = 3
)

var roleNames = map[Role]string{
	RoleOwner:        "owner",
	RoleCollaborator: "collaborator",
	RoleViewer:       "viewer",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// AtLeast reports whether r carries at least the authority of other.
func (r Role) AtLeast(other Role) bool {
	return r.Valid() && r <= other
}

// CanRead reports whether the role may view the project.
func (r Role) CanRead() bool { return r.AtLeast(RoleViewer) }

// CanEdit reports whether the role may change tasks, phases, dependencies,
// memory items and the project brief.
func (r Role) CanEdit() bool { return r.AtLeast(RoleCollaborator) }

// CanManage reports whether the role may delete the project or change membership.
func (r Role) CanManage() bool { return r == RoleOwner }

// MarshalJSON encodes the role by name.
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON accepts either the role name or its numeric level.
func (r *Role) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		if !Role(n).Valid() {
			return perrors.Invalid("unknown role %d", n)
		}
		*r = Role(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return perrors.Invalid("role must be a name or a number")
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseRole resolves a role name.
func ParseRole(raw string) (Role, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for r, n := range roleNames {
		if n == name {
			return r, nil
		}
	}
	return 0, perrors.Invalid("unknown role %q", raw)
}
