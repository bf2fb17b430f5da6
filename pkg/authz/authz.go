package authz

import (
	"fmt"

	"campaign-rewards/pkg/config"
	"campaign-rewards/pkg/errutil"
	"campaign-rewards/pkg/middleware"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("authz", fx.Provide(NewEnforcer))

const defaultModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && keyMatch2(r.obj, p.obj) && r.act == p.act
`

// DefaultPolicy guards the operator routes. Everything else only needs a
// caller id.
var DefaultPolicy = [][]string{
	{middleware.RoleAdmin, "/v1/campaigns", "POST"},
	{middleware.RoleAdmin, "/v1/campaigns/:campaign_id/close", "POST"},
	{middleware.RoleAdmin, "/v1/campaigns/:campaign_id/archive", "POST"},
	{middleware.RoleAdmin, "/v1/campaigns/:campaign_id/reconcile", "GET"},
	{middleware.RoleAdmin, "/v1/periods/:period_type/close", "POST"},
	{middleware.RoleScheduler, "/v1/periods/:period_type/close", "POST"},
}

// NewEnforcer loads the model and policy files named in ACCESS_CONTROL, or
// the built-in ones when they are not set.
func NewEnforcer(cfg *config.Config) (*casbin.Enforcer, error) {
	ac := cfg.AccessControl
	if ac.Model != "" && ac.Policy != "" {
		zap.L().Info("loading access control policy", zap.String("model", ac.Model), zap.String("policy", ac.Policy))
		return casbin.NewEnforcer(ac.Model, ac.Policy)
	}
	return NewDefaultEnforcer()
}

func NewDefaultEnforcer() (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(defaultModel)
	if err != nil {
		return nil, fmt.Errorf("parse access model: %w", err)
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	if _, err := e.AddPolicies(DefaultPolicy); err != nil {
		return nil, fmt.Errorf("load default policy: %w", err)
	}
	return e, nil
}

// Authorize allows the request when any role of the caller is granted the
// request path and method.
func Authorize(e *casbin.Enforcer) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := middleware.IdentityFrom(c.Request.Context())
		obj, act := c.Request.URL.Path, c.Request.Method

		for _, sub := range id.Subjects() {
			ok, err := e.Enforce(sub, obj, act)
			if err != nil {
				_ = c.Error(errutil.Internal("access check failed", err))
				c.Abort()
				return
			}
			if ok {
				c.Next()
				return
			}
		}

		_ = c.Error(errutil.Forbidden("caller is not allowed to "+act+" "+obj, nil, errutil.WithReason(errutil.ReasonForbidden)))
		c.Abort()
	}
}
