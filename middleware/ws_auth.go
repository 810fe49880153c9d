package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// WSAuth accepts the token from ?token= as well as the Authorization header, since
// browsers cannot set headers on a websocket handshake.
func WSAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := c.Query("token")
		if tokenStr == "" {
			tokenStr = bearerToken(c)
		}
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		claims, err := ParseToken(tokenStr, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		setClaims(c, claims)
		c.Next()
	}
}
