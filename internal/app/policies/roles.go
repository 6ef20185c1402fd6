package policies

import (
	"context"
	"errors"
	"slices"
)

const (
	RoleGuest = "guest"
	RoleHost  = "host"
)

var (
	ErrUnauthenticated = errors.New("policies: authentication required")
	ErrForbidden       = errors.New("policies: forbidden")
)

// Principal is the verified caller of a request.
type Principal struct {
	ID    string
	Roles []string
}

func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

type principalKey struct{}

func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || p.ID == "" {
		return Principal{}, false
	}
	return p, true
}

// RoleRestricted is implemented by messages that only callers with a role may send.
type RoleRestricted interface {
	RequiredRole() string
}

// RoleAuthorizer rejects role-restricted messages from callers lacking the role.
// Messages without a restriction pass through; system jobs carry no principal and
// therefore must not be role restricted.
type RoleAuthorizer struct{}

func (RoleAuthorizer) Authorize(ctx context.Context, message any) error {
	restricted, ok := message.(RoleRestricted)
	if !ok {
		return nil
	}
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	if !principal.HasRole(restricted.RequiredRole()) {
		return ErrForbidden
	}
	return nil
}
