package middleware

import (
	"net/http"

	"campaign-rewards/pkg/errutil"
	"campaign-rewards/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error renders the last error attached with c.Error as the standard error
// envelope. Handlers only need to call c.Error and return.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		err := c.Errors.Last()
		if err == nil {
			return
		}

		be := errutil.From(err.Err)
		status := be.Code.HTTPStatus()
		if status >= http.StatusInternalServerError {
			logger.FromContext(c.Request.Context()).Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Error(err.Err),
			)
		}

		if c.Writer.Written() {
			return
		}
		c.JSON(status, be.JSON())
	}
}
