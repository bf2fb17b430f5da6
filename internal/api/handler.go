package api

import (
	"time"

	"campaign-rewards/pkg/authz"
	"campaign-rewards/pkg/config"
	"campaign-rewards/pkg/errutil"
	"campaign-rewards/pkg/middleware"
	"campaign-rewards/services/activity"
	"campaign-rewards/services/campaign"
	"campaign-rewards/services/contribution"
	"campaign-rewards/services/grant"
	"campaign-rewards/services/leaderboard"

	"github.com/casbin/casbin/v2"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("api",
	fx.Provide(NewHandler),
	fx.Invoke(Register),
)

// Handler exposes the engine services over HTTP. Money crosses the wire as
// {amount, currency_code} in minor units.
type Handler struct {
	campaign     *campaign.Service
	contribution *contribution.Service
	activity     *activity.Service
	leaderboard  *leaderboard.Service
	grant        *grant.Service
	now          func() time.Time
}

type Params struct {
	fx.In
	Campaign     *campaign.Service
	Contribution *contribution.Service
	Activity     *activity.Service
	Leaderboard  *leaderboard.Service
	Grant        *grant.Service
}

func NewHandler(p Params) *Handler {
	return &Handler{
		campaign:     p.Campaign,
		contribution: p.Contribution,
		activity:     p.Activity,
		leaderboard:  p.Leaderboard,
		grant:        p.Grant,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

type RegisterParams struct {
	fx.In
	Engine   *gin.Engine
	Handler  *Handler
	Enforcer *casbin.Enforcer
	Config   *config.Config
}

func Register(p RegisterParams) {
	Routes(p.Engine, p.Handler, p.Enforcer, middleware.IdentityConfig{
		JWTSecret: p.Config.Auth.JWTSecret,
		Issuer:    p.Config.Auth.Issuer,
	})
}

// Routes mounts the v1 API. Operator routes additionally go through the
// access policy.
func Routes(engine *gin.Engine, h *Handler, enforcer *casbin.Enforcer, idc middleware.IdentityConfig) {
	v1 := engine.Group("/v1", middleware.Identify(idc), middleware.RequireUser())
	admin := authz.Authorize(enforcer)

	campaigns := v1.Group("/campaigns")
	campaigns.POST("", admin, h.OpenCampaign)
	campaigns.GET("", h.ListCampaigns)
	campaigns.GET("/:campaign_id", h.GetCampaign)
	campaigns.GET("/:campaign_id/contributions", h.ListContributions)
	campaigns.POST("/:campaign_id/close", admin, h.CloseCampaign)
	campaigns.POST("/:campaign_id/archive", admin, h.ArchiveCampaign)
	campaigns.GET("/:campaign_id/reconcile", admin, h.Reconcile)

	v1.POST("/contributions", h.Contribute)
	v1.POST("/contributions/preview", h.PreviewContribution)

	v1.POST("/activities", h.RecordActivity)

	v1.GET("/leaderboards/:period_type", h.GetLeaderboard)
	v1.POST("/periods/:period_type/close", admin, h.ClosePeriod)

	v1.GET("/grants", h.ListGrants)
	v1.GET("/grants/:grant_id", h.GetGrant)
	v1.POST("/grants/:grant_id/claim", h.ClaimGrant)
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(errutil.BadRequest("malformed request body", err))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		_ = c.Error(errutil.BadRequest("malformed query", err))
		return false
	}
	return true
}

// parseTime accepts RFC 3339 with an offset. Empty means zero.
func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errutil.InvalidPeriod("period_start must be RFC 3339 with offset")
	}
	return t, nil
}

func caller(c *gin.Context) middleware.Identity {
	return middleware.IdentityFrom(c.Request.Context())
}
