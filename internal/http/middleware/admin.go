package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminKey gates operational endpoints (webhook subscription, forced syncs)
// behind a shared key. An empty configured key disables the check for local
// development.
func AdminKey(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if required == "" {
			c.Next()
			return
		}
		if c.GetHeader("X-Admin-Key") != required {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Invalid admin key",
				},
			})
			return
		}
		c.Next()
	}
}
