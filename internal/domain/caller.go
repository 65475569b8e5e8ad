package domain

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Caller is the authenticated identity behind a request. Only the id and
// role are used for scheduling decisions.
type Caller struct {
	ID    string
	Email string
	Role  Role
}

func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}
