package server

import (
	"net/http"
	"strings"

	"bank/internal/model/enum"
	"bank/pkg/exception"

	"github.com/yanun0323/errors"
)

const (
	HeaderRole     = "X-Bank-Role"
	HeaderCustomer = "X-Bank-Customer"
)

// Principal is the authenticated caller.
type Principal struct {
	Role           enum.Role
	CustomerNumber string
}

// CanActOn reports whether the principal may act on the customer with the given number.
func (p Principal) CanActOn(customerNumber string) bool {
	switch p.Role {
	case enum.RoleEmployee:
		return true
	case enum.RoleCustomer:
		return p.CustomerNumber != "" && p.CustomerNumber == strings.TrimSpace(customerNumber)
	default:
		return false
	}
}

// Authenticator resolves the principal of a request.
type Authenticator interface {
	Authenticate(r *http.Request) (Principal, error)
}

// HeaderAuthenticator trusts identity headers set by an upstream gateway.
type HeaderAuthenticator struct{}

func (HeaderAuthenticator) Authenticate(r *http.Request) (Principal, error) {
	role := enum.ParseRole(r.Header.Get(HeaderRole))
	if !role.IsAvailable() {
		return Principal{}, errors.Wrapf(exception.ErrForbidden, "unknown role %q", r.Header.Get(HeaderRole))
	}

	p := Principal{Role: role, CustomerNumber: strings.TrimSpace(r.Header.Get(HeaderCustomer))}
	if role == enum.RoleCustomer && p.CustomerNumber == "" {
		return Principal{}, errors.Wrap(exception.ErrForbidden, "customer principal without customer number")
	}
	return p, nil
}
