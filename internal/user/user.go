package user

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"password,omitempty"`
	GoogleID  *string   `json:"googleId,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Requester is the authenticated caller as resolved from the JWT claims.
type Requester struct {
	ID    int
	Email string
	Role  Role
}

func (r Requester) IsAdmin() bool {
	return r.Role == RoleAdmin
}
