package authorization

import (
	"context"
	"errors"
	"testing"

	"github.com/smallbiznis/menusready/internal/testutil"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	db := testutil.OpenDB(t)
	enforcer, err := NewEnforcer(db)
	if err != nil {
		t.Fatalf("enforcer: %v", err)
	}
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestOperatorRoleGrants(t *testing.T) {
	svc := newTestService(t)
	actor := Actor{OperatorID: "1", Role: RoleOperator}
	for _, perm := range []string{
		PermMenusRegenerate,
		PermMenusUpdateContent,
		PermMenusCreate,
		PermDeliveriesRetry,
		PermDeliveriesRead,
	} {
		if err := svc.Authorize(context.Background(), actor, perm); err != nil {
			t.Fatalf("expected %s allowed, got %v", perm, err)
		}
	}
}

func TestSupportRoleIsReadOnly(t *testing.T) {
	svc := newTestService(t)
	actor := Actor{OperatorID: "2", Role: RoleSupport}
	if err := svc.Authorize(context.Background(), actor, PermDeliveriesRead); err != nil {
		t.Fatalf("expected read allowed, got %v", err)
	}
	for _, perm := range []string{PermMenusRegenerate, PermDeliveriesRetry, PermMenusCreate} {
		if err := svc.Authorize(context.Background(), actor, perm); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected %s forbidden, got %v", perm, err)
		}
	}
}

func TestRoleChangeReplacesGrouping(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if err := svc.Authorize(ctx, Actor{OperatorID: "3", Role: RoleOperator}, PermDeliveriesRetry); err != nil {
		t.Fatalf("operator retry: %v", err)
	}
	err := svc.Authorize(ctx, Actor{OperatorID: "3", Role: RoleSupport}, PermDeliveriesRetry)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected demoted actor forbidden, got %v", err)
	}
}

func TestAuthorizeRejectsBadInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if err := svc.Authorize(ctx, Actor{Role: RoleOperator}, PermMenusCreate); !errors.Is(err, ErrInvalidActor) {
		t.Fatalf("expected ErrInvalidActor, got %v", err)
	}
	if err := svc.Authorize(ctx, Actor{OperatorID: "4", Role: "owner"}, PermMenusCreate); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if err := svc.Authorize(ctx, Actor{OperatorID: "4", Role: RoleOperator}, "menus"); !errors.Is(err, ErrInvalidPermission) {
		t.Fatalf("expected ErrInvalidPermission, got %v", err)
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	db := testutil.OpenDB(t)
	if _, err := NewEnforcer(db); err != nil {
		t.Fatalf("first enforcer: %v", err)
	}
	enforcer, err := NewEnforcer(db)
	if err != nil {
		t.Fatalf("second enforcer: %v", err)
	}
	policies, err := enforcer.GetPolicy()
	if err != nil {
		t.Fatalf("policies: %v", err)
	}
	if len(policies) != 7 {
		t.Fatalf("expected 7 policies, got %d", len(policies))
	}
}
