package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/cupping-console/pkg/httputil"
	"github.com/jwalitptl/cupping-console/pkg/logger"
)

// ErrorHandler logs errors attached with c.Error and, when the handler wrote
// nothing, renders the last one.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		for _, e := range c.Errors {
			log.Error(e.Err, "Request error",
				"request_id", c.GetString(ContextRequestID),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"client_ip", c.ClientIP())
		}

		if c.Writer.Written() {
			return
		}
		httputil.RespondWithError(c, c.Errors.Last().Err)
	}
}
