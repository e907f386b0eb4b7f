package domain

// Role is an access level attached to a user account.
type Role string

const (
	// RoleAdministrator may create, edit and delete on every screen.
	RoleAdministrator Role = "administrateur"

	// RoleConsultant has read-only access.
	RoleConsultant Role = "consultant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdministrator || r == RoleConsultant
}
