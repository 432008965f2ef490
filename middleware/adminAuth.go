package middleware

import (
	"net/http"
	"strings"

	"verial/config"

	"github.com/gin-gonic/gin"
)

// AdminAuthMiddleware guards the staff surfaces (refunds, earnings queries).
// Identity and role resolution happen at the platform edge; this service only
// checks the shared service token and picks up the resolved admin id from the
// forwarded header.
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		if tokenString != config.AppConfig.AdminAPIToken || config.AppConfig.AdminAPIToken == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized admin access"})
			return
		}

		adminID := c.GetHeader("X-Admin-ID")
		if adminID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing X-Admin-ID header"})
			return
		}

		c.Set("adminID", adminID)
		c.Set("isAdmin", true)
		c.Next()
	}
}
