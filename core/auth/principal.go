package auth

import "github.com/golang-jwt/jwt/v5"

// Principal is the verified identity of the caller for a single request.
type Principal struct {
	ID       string  `json:"id"`
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Role     Role    `json:"role"`
	TenantID *int64  `json:"tenant_id,omitempty"` // college
}

// HasAnyRole reports whether the Principal's role is in roles.
func (p *Principal) HasAnyRole(roles ...Role) bool {
	return p != nil && p.Role.In(roles...)
}

// TokenClaims is the untrusted content of a session token.
type TokenClaims struct {
	UserID    *int64  `json:"user_id"`
	Role      string  `json:"role"`
	Name      *string `json:"name,omitempty"`
	Email     *string `json:"email,omitempty"`
	CollegeID *int64  `json:"college_id,omitempty"`
	jwt.RegisteredClaims
}
