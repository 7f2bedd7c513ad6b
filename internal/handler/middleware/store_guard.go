package middleware

import (
	"github.com/gin-gonic/gin"

	"sunrun/credithub/pkg/response"
)

// RequireStore rejects every request with 503 when no credit store backend is
// configured.
func RequireStore(configured bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !configured {
			response.ServiceUnavailable(c, response.CodeStoreNotConfigured, "credit store not configured")
			c.Abort()
			return
		}
		c.Next()
	}
}
