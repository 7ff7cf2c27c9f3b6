package models

// Role represents a user's role in the system
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleEmployee   Role = "employee"
)

// roleLevel orders roles so that every capability check is a single
// comparison instead of a per-endpoint allow-list.
var roleLevel = map[Role]int{
	RoleEmployee:   1,
	RoleAdmin:      2,
	RoleSuperAdmin: 3,
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	_, ok := roleLevel[r]
	return ok
}

// AtLeast reports whether r grants every capability of min
func (r Role) AtLeast(min Role) bool {
	return roleLevel[r] >= roleLevel[min]
}
