package auth

import (
	"context"
	"testing"

	"Mansoor88-6/pulse-tracker/internal/apperrors"
)

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"":           RoleUser,
		"admin":      RoleAdmin,
		" Moderator": RoleModerator,
		"USER":       RoleUser,
	}
	for in, want := range cases {
		got, err := ParseRole(in)
		if err != nil || got != want {
			t.Errorf("ParseRole(%q) = %q, %v; want %q", in, got, err, want)
		}
	}

	if _, err := ParseRole("root"); !apperrors.Is(err, apperrors.KindValidation) {
		t.Fatalf("expected validation error for unknown role, got %v", err)
	}
}

func TestCan(t *testing.T) {
	if !Can(RoleAdmin, CapRecomputeAllUsers) {
		t.Error("admin should recompute for all users")
	}
	if !Can(RoleModerator, CapRecomputeTotals) {
		t.Error("moderator should recompute own totals")
	}
	if Can(RoleModerator, CapEditProjectTotals) {
		t.Error("moderator must not edit totals")
	}
	if Can(RoleUser, CapRecomputeTotals) {
		t.Error("user must not recompute")
	}
	if Can(Role("ghost"), CapRecomputeTotals) {
		t.Error("unknown role must hold nothing")
	}
}

func TestRequireAndContext(t *testing.T) {
	id := Identity{UserID: "u1", Role: RoleUser}
	if err := id.Require(CapRecomputeTotals); !apperrors.Is(err, apperrors.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	ctx := WithIdentity(context.Background(), id)
	got, ok := FromContext(ctx)
	if !ok || got != id {
		t.Fatalf("identity not carried by context: %+v %v", got, ok)
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("empty context should carry no identity")
	}
}
