package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/romana/rlog"
)

// Recovery turns a panic into a JSON 500 and logs it through rlog
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		rlog.Criticalf("panic serving %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}
