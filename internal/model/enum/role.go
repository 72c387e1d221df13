package enum

import "strings"

// Role employee, customer
type Role uint8

const (
	_role_beg Role = iota
	RoleEmployee
	RoleCustomer
	_role_end
)

func (r Role) IsAvailable() bool {
	return r > _role_beg && r < _role_end
}

// ParseRole returns an unavailable role for unknown names.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "employee":
		return RoleEmployee
	case "customer":
		return RoleCustomer
	default:
		return _role_beg
	}
}
