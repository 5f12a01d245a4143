package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joy095/booking/logger"
	"github.com/joy095/booking/models/user_models"
	"github.com/joy095/booking/utils"
	"github.com/joy095/booking/utils/jwt_parse"
)

// AuthMiddleware authenticates the request with its JWT and rejects tokens
// whose subject is not a user id.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !jwt_parse.Authenticate(c, secret) {
			return
		}
		if _, err := utils.GetPrincipal(c); err != nil {
			logger.ErrorLogger.Errorf("Authenticated request without a usable principal: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}
		c.Next()
	}
}

// RequireRole lets through only callers holding one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := utils.GetPrincipal(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if !principal.HasRole(roles...) {
			logger.WarnLogger.Warnf("User %s with role %q denied access to %s", principal.Username, principal.Role, c.FullPath())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}
		c.Next()
	}
}

// RejectReadOnly blocks read-only roles from write endpoints.
func RejectReadOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := utils.GetPrincipal(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if principal.HasRole(user_models.RoleAuditorReadonly) {
			logger.WarnLogger.Warnf("Read-only user %s attempted %s %s", principal.Username, c.Request.Method, c.FullPath())
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Read-only users cannot modify bookings"})
			return
		}
		c.Next()
	}
}
