package domain

// Role names carried in the bearer token. Every role other than RoleClient is staff.
const (
	RoleClient   = "client"
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
	RoleCourier  = "courier"
)

// IsStaff reports whether role receives staff broadcasts rather than only targeted pushes.
func IsStaff(role string) bool { return role != RoleClient }

// Caller is the authenticated identity behind a consumer request.
type Caller struct {
	UserID string
	Role   string
}

func (c Caller) IsStaff() bool { return IsStaff(c.Role) }
