package auth

import (
	"context"
	"strings"

	"Mansoor88-6/pulse-tracker/internal/apperrors"
)

// Role is the caller's role as asserted by the upstream authentication layer.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
)

// ParseRole maps a header value onto a Role. An empty value is a plain user.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return RoleUser, nil
	case RoleAdmin, RoleModerator, RoleUser:
		return r, nil
	}
	return "", apperrors.Validation("unknown role %q", s)
}

type Capability string

const (
	// CapRecomputeTotals allows rebuilding project totals from completed pulses.
	CapRecomputeTotals Capability = "recompute_totals"
	// CapEditProjectTotals allows overwriting a project's accumulated minutes.
	CapEditProjectTotals Capability = "edit_project_totals"
	// CapRecomputeAllUsers widens a recompute beyond the caller's own projects.
	CapRecomputeAllUsers Capability = "recompute_all_users"
)

var grants = map[Role]map[Capability]bool{
	RoleAdmin: {
		CapRecomputeTotals:   true,
		CapEditProjectTotals: true,
		CapRecomputeAllUsers: true,
	},
	RoleModerator: {
		CapRecomputeTotals: true,
	},
	RoleUser: {},
}

func Can(role Role, capability Capability) bool {
	return grants[role][capability]
}

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Role   Role
}

// Require returns Forbidden unless the identity holds capability.
func (id Identity) Require(capability Capability) error {
	if !Can(id.Role, capability) {
		return apperrors.Forbidden("role %s is not allowed to %s", id.Role, capability)
	}
	return nil
}

type contextKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
