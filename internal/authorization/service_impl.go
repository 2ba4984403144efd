package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor Actor, permission string) error {
	if strings.TrimSpace(actor.OperatorID) == "" {
		return ErrInvalidActor
	}
	role := strings.ToLower(strings.TrimSpace(actor.Role))
	if !ValidRole(role) {
		return ErrInvalidRole
	}
	object, action, ok := splitPermission(permission)
	if !ok {
		return ErrInvalidPermission
	}

	subject := actor.Subject()
	if err := s.ensureGrouping(subject, roleName(role)); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("subject", subject),
			zap.String("role", role),
			zap.String("permission", permission),
		)
		return ErrForbidden
	}
	return nil
}

// ensureGrouping keeps exactly one role link per subject so a role change in
// the token takes effect on the next request.
func (s *ServiceImpl) ensureGrouping(subject string, role string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == role {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		_, _ = s.enforcer.RemoveGroupingPolicy(params...)
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, role)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, role)
	return err
}

func roleName(role string) string {
	return "role:" + role
}

func splitPermission(permission string) (string, string, bool) {
	object, action, ok := strings.Cut(strings.TrimSpace(permission), ":")
	if !ok || object == "" || action == "" {
		return "", "", false
	}
	return object, action, true
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	permissions := map[string][]string{
		RoleOperator: {
			PermMenusRegenerate,
			PermMenusUpdateContent,
			PermMenusCreate,
			PermDeliveriesRetry,
			PermDeliveriesRead,
			PermAuditRead,
		},
		RoleSupport: {
			PermDeliveriesRead,
		},
	}

	for _, role := range []string{RoleOperator, RoleSupport} {
		for _, permission := range permissions[role] {
			object, action, _ := splitPermission(permission)
			has, err := enforcer.HasPolicy(roleName(role), object, action)
			if err != nil {
				return err
			}
			if has {
				continue
			}
			if _, err := enforcer.AddPolicy(roleName(role), object, action); err != nil {
				return err
			}
		}
	}
	return nil
}
