package api

import (
	"net/http"

	"campaign-rewards/pkg/period"
	"campaign-rewards/services/grant"

	"github.com/gin-gonic/gin"
)

type leaderboardQuery struct {
	PeriodStart string `form:"period_start"`
	Limit       int    `form:"limit"`
}

func (h *Handler) GetLeaderboard(c *gin.Context) {
	var q leaderboardQuery
	if !bindQuery(c, &q) {
		return
	}
	start, err := parseTime(q.PeriodStart)
	if err != nil {
		_ = c.Error(err)
		return
	}

	board, err := h.leaderboard.GetLeaderboard(c.Request.Context(), c.Param("period_type"), start)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if q.Limit > 0 && q.Limit < len(board.Entries) {
		trimmed := *board
		trimmed.Entries = board.Entries[:q.Limit]
		board = &trimmed
	}
	c.JSON(http.StatusOK, board)
}

type closePeriodRequest struct {
	PeriodStart string `json:"period_start" form:"period_start"`
}

type closePeriodResponse struct {
	period.Window
	Grants []grant.View `json:"grants"`
}

// ClosePeriod settles the period containing period_start, or the previous
// period when none is given.
func (h *Handler) ClosePeriod(c *gin.Context) {
	var req closePeriodRequest
	if !bindQuery(c, &req) {
		return
	}
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	start, err := parseTime(req.PeriodStart)
	if err != nil {
		_ = c.Error(err)
		return
	}

	periodType := c.Param("period_type")
	w, err := h.leaderboard.Window(periodType, start)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if start.IsZero() {
		w = w.Previous(h.leaderboard.Location())
	}

	grants, err := h.grant.ClosePeriod(c.Request.Context(), periodType, w.Start)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, closePeriodResponse{Window: w, Grants: grantViews(grants)})
}

type listGrantsQuery struct {
	Status string `form:"status"`
}

func (h *Handler) ListGrants(c *gin.Context) {
	var q listGrantsQuery
	if !bindQuery(c, &q) {
		return
	}

	grants, err := h.grant.ListForUser(c.Request.Context(), caller(c).UserID, q.Status)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, listResponse[grant.View]{Data: grantViews(grants)})
}

func (h *Handler) GetGrant(c *gin.Context) {
	g, err := h.grant.Get(c.Request.Context(), c.Param("grant_id"), caller(c).UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, g.ToView())
}

func (h *Handler) ClaimGrant(c *gin.Context) {
	g, err := h.grant.Claim(c.Request.Context(), c.Param("grant_id"), caller(c).UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, g.ToView())
}

func grantViews(grants []*grant.Grant) []grant.View {
	views := make([]grant.View, 0, len(grants))
	for _, g := range grants {
		views = append(views, g.ToView())
	}
	return views
}
