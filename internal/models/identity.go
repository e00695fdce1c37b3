package models

// Identity is what a verified session token proves about its bearer.
type Identity struct {
	UserID string
	Role   Role
}

// HasRole reports whether the identity holds one of roles.
func (id Identity) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if id.Role == r {
			return true
		}
	}
	return false
}
