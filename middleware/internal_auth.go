package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// InternalAuth guards service-to-service endpoints with a shared credential.
// When no token is configured the endpoints stay open, which matches
// deployments that rely on network-level isolation instead.
func InternalAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		provided := c.GetHeader("X-Internal-Token")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Access denied"})
			c.Abort()
			return
		}

		c.Next()
	}
}
