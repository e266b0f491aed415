package domain

import "fmt"

// Role is the closed set of access roles a user may hold.
type Role string

const (
	RoleLearner    Role = "LEARNER"
	RoleTeacher    Role = "TEACHER"
	RolePrepAdmin  Role = "PREP_ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// DefaultRole is assigned to self-registered accounts.
const DefaultRole = RoleLearner

// Roles lists every valid role.
func Roles() []Role {
	return []Role{RoleLearner, RoleTeacher, RolePrepAdmin, RoleSuperAdmin}
}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	switch r {
	case RoleLearner, RoleTeacher, RolePrepAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// ParseRole converts a wire value into a Role. Matching is exact.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// MarshalText rejects roles outside the enumeration.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("unknown role %q", string(r))
	}
	return []byte(r), nil
}

// UnmarshalText rejects roles outside the enumeration.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
