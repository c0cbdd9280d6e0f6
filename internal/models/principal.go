package models

// Role values carried in JWT claims
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Principal is the authenticated caller as seen by this service: an
// opaque id plus a role. A nil *Principal means an anonymous request.
type Principal struct {
	ID   string
	Role string
}

// IsAdmin reports whether the principal carries the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
