package api

import (
	"net/http"

	"campaign-rewards/services/campaign"
	"campaign-rewards/services/contribution"

	"github.com/gin-gonic/gin"
)

type contributeResponse struct {
	Contribution contribution.View `json:"contribution"`
	Campaign     campaign.View     `json:"campaign"`
}

func (h *Handler) Contribute(c *gin.Context) {
	var req contribution.ContributeRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ContributorID = caller(c).UserID

	res, err := h.contribution.Contribute(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, contributeResponse{
		Contribution: res.Contribution.ToView(),
		Campaign:     res.Fund.ToView(h.now()),
	})
}

func (h *Handler) PreviewContribution(c *gin.Context) {
	var req contribution.ContributeRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ContributorID = caller(c).UserID

	preview, err := h.contribution.Preview(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, preview.ToView())
}
