package api

import (
	"net/http"

	"campaign-rewards/services/activity"

	"github.com/gin-gonic/gin"
)

func (h *Handler) RecordActivity(c *gin.Context) {
	var req activity.RecordRequest
	if !bindJSON(c, &req) {
		return
	}
	req.UserID = caller(c).UserID

	act, err := h.activity.RecordActivity(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, act)
}
