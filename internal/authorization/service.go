package authorization

import (
	"context"
	"errors"
)

var (
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidActor      = errors.New("invalid_actor")
	ErrInvalidRole       = errors.New("invalid_role")
	ErrInvalidPermission = errors.New("invalid_permission")
)

const (
	RoleOperator = "operator"
	RoleSupport  = "support"
)

const (
	ObjectMenus      = "menus"
	ObjectDeliveries = "deliveries"
	ObjectAudit      = "audit"
)

// Permissions are written object:action.
const (
	PermMenusRegenerate    = "menus:regenerate"
	PermMenusUpdateContent = "menus:update_content"
	PermMenusCreate        = "menus:create"
	PermDeliveriesRetry    = "deliveries:retry"
	PermDeliveriesRead     = "deliveries:read"
	PermAuditRead          = "audit:read"
)

// Actor is an authenticated operator as carried by a token.
type Actor struct {
	OperatorID string
	Role       string
}

// Subject is the casbin subject for the actor.
func (a Actor) Subject() string {
	return "operator:" + a.OperatorID
}

type Service interface {
	Authorize(ctx context.Context, actor Actor, permission string) error
}

// ValidRole reports whether role is one the policy knows.
func ValidRole(role string) bool {
	switch role {
	case RoleOperator, RoleSupport:
		return true
	default:
		return false
	}
}
