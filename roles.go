package rbac

// UserRole is the user's role
type UserRole = string

const (
	// RoleUser is the default role assigned at signup
	RoleUser UserRole = "user"
	// RoleAdmin can manage every user and every report
	RoleAdmin UserRole = "admin"
)

// IsValidRole checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsAtLeast checks if role meets the minimum required level
func IsAtLeast(r, minRole UserRole) bool {
	roleHierarchy := map[UserRole]int{
		RoleUser:  0,
		RoleAdmin: 1,
	}

	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, IsValidRole(role)
}

// CanManageUser implements the ownership rule used by protected handlers:
// callers may act on their own record, admins on anyone's.
func CanManageUser(identity Identity, ownerID string) bool {
	if identity == nil {
		return false
	}
	if identity.Role() == RoleAdmin {
		return true
	}
	return identity.ID() == ownerID
}
