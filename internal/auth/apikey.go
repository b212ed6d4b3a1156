package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Header carrying the admin key. Every other route on this service is
// public; the key only guards the manual cache refresh.
const KeyHeader = "X-API-Key"

// RequireKey admits a request only when its key header matches key in
// constant time. An empty key disables the guard entirely, which is how
// local and staging setups run.
func RequireKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}

		provided := c.GetHeader(KeyHeader)
		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "refresh requires an API key",
			})
			return
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "API key rejected",
			})
			return
		}

		c.Next()
	}
}
