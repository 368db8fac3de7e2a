package auth

import "strings"

// Role is a flat capability label. Roles are not ordered: ADMIN does not imply STAFF.
type Role string

// Roles
const (
	RoleAdmin       Role = "ADMIN"
	RoleTenantAdmin Role = "TENANT_ADMIN" // college admin
	RoleStaff       Role = "STAFF"        // teacher
	RoleMember      Role = "MEMBER"       // student
	RoleGuest       Role = "GUEST"
)

var (
	AllRoles = []Role{RoleAdmin, RoleTenantAdmin, RoleStaff, RoleMember, RoleGuest}

	// upper-cased spellings used by the other layers
	roleAliases = map[string]Role{
		"ADMIN":         RoleAdmin,
		"COLLEGEADMIN":  RoleTenantAdmin,
		"COLLEGE_ADMIN": RoleTenantAdmin,
		"TEACHER":       RoleStaff,
		"STUDENT":       RoleMember,
	}
)

// MapRole normalizes a raw role string into a canonical Role.
// Matching is case-insensitive and exact; ok is false when raw is unmappable.
func MapRole(raw string) (role Role, ok bool) {
	upper := strings.ToUpper(raw)
	if role, ok = roleAliases[upper]; ok {
		return role, true
	}
	for _, r := range AllRoles {
		if upper == string(r) {
			return r, true
		}
	}
	return "", false
}

// IsValid reports whether r is one of the canonical roles.
func (r Role) IsValid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// In reports whether r is part of the given allow-list.
func (r Role) In(roles ...Role) bool {
	for _, role := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }
