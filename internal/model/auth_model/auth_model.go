package auth_model

import "time"

type Role string

const (
	RoleSuperuser  Role = "superuser"
	RoleForeman    Role = "foreman"
	RoleContractor Role = "contractor"
)

// IsPrivileged reports whether the role bypasses per-project membership
// checks.
func (r Role) IsPrivileged() bool {
	return r == RoleSuperuser
}

type User struct {
	ID        int       `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Password  string    `db:"password" json:"-"`
	FullName  string    `db:"full_name" json:"full_name"`
	Role      Role      `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Actor is the authenticated identity every workflow operation runs as.
// It is decoded from the access token, not loaded per request.
type Actor struct {
	ID   int  `json:"id"`
	Role Role `json:"role"`
}
