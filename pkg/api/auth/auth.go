package auth

import "errors"

// Role is carried verbatim into the policy evaluation input.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleProvider Role = "provider"
)

var ErrPermissionDenied = errors.New("permission denied")

type Principal interface {
	Name() string
}

type Authentication interface {
	Principal() Principal
	Roles() []Role
}
