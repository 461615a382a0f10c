package identity

import (
	"context"
	"fmt"
	"strings"
)

// Role distinguishes the three account kinds.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// ParseRole normalizes a role name from a URL or request body.
func ParseRole(raw string) (Role, error) {
	switch role := Role(strings.ToLower(strings.TrimSpace(raw))); role {
	case RolePatient, RoleDoctor, RoleAdmin:
		return role, nil
	default:
		return "", fmt.Errorf("identity: unknown role %q", raw)
	}
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID string
	Role   Role
}

type ctxKey string

const principalKey ctxKey = "medcare.principal"

// WithPrincipal stores the authenticated caller in context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext extracts the caller if present.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok && p.UserID != ""
}
