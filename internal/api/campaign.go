package api

import (
	"net/http"
	"strings"

	"campaign-rewards/pkg/db/pagination"
	"campaign-rewards/pkg/errutil"
	"campaign-rewards/services/campaign"
	"campaign-rewards/services/contribution"

	"github.com/gin-gonic/gin"
)

type listCampaignsQuery struct {
	Status string `form:"status"`
	pagination.Pagination
}

type listResponse[T any] struct {
	Data     []T                  `json:"data"`
	PageInfo *pagination.PageInfo `json:"page_info,omitempty"`
}

func (h *Handler) OpenCampaign(c *gin.Context) {
	var req campaign.OpenRequest
	if !bindJSON(c, &req) {
		return
	}

	fund, err := h.campaign.Open(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, fund.ToView(h.now()))
}

func (h *Handler) GetCampaign(c *gin.Context) {
	fund, err := h.campaign.Get(c.Request.Context(), c.Param("campaign_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, fund.ToView(h.now()))
}

func (h *Handler) ListCampaigns(c *gin.Context) {
	var q listCampaignsQuery
	if !bindQuery(c, &q) {
		return
	}

	status := campaign.Status(strings.ToUpper(q.Status))
	switch status {
	case "", campaign.StatusActive, campaign.StatusClosed, campaign.StatusArchived:
	default:
		_ = c.Error(errutil.BadRequest("unknown campaign status "+q.Status, nil))
		return
	}

	funds, page, err := h.campaign.List(c.Request.Context(), campaign.ListRequest{
		Status:     status,
		Pagination: q.Pagination,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	now := h.now()
	views := make([]campaign.View, 0, len(funds))
	for _, f := range funds {
		views = append(views, f.ToView(now))
	}
	c.JSON(http.StatusOK, listResponse[campaign.View]{Data: views, PageInfo: page})
}

func (h *Handler) CloseCampaign(c *gin.Context) {
	fund, err := h.campaign.Close(c.Request.Context(), c.Param("campaign_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, fund.ToView(h.now()))
}

func (h *Handler) ArchiveCampaign(c *gin.Context) {
	fund, err := h.campaign.Archive(c.Request.Context(), c.Param("campaign_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, fund.ToView(h.now()))
}

func (h *Handler) Reconcile(c *gin.Context) {
	rec, err := h.contribution.Reconcile(c.Request.Context(), c.Param("campaign_id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) ListContributions(c *gin.Context) {
	var q pagination.Pagination
	if !bindQuery(c, &q) {
		return
	}

	items, page, err := h.contribution.List(c.Request.Context(), contribution.ListRequest{
		CampaignID: c.Param("campaign_id"),
		Pagination: q,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	views := make([]contribution.View, 0, len(items))
	for _, it := range items {
		views = append(views, it.ToView())
	}
	c.JSON(http.StatusOK, listResponse[contribution.View]{Data: views, PageInfo: page})
}
