package entities

// Principal is the authenticated caller of an operation.
type Principal struct {
	UserID uint
	Role   UserRole
}

// IsAdmin reports whether the caller may manage the catalog.
func (p Principal) IsAdmin() bool {
	return p.Role == UserRoleAdmin
}
