package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/study-vault-api/internal/models"
	appErrors "github.com/noah-isme/study-vault-api/pkg/errors"
	"github.com/noah-isme/study-vault-api/pkg/response"
)

// RequireRoles lets the request through only when the verified claims carry one of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "Not authenticated"))
			c.Abort()
			return
		}
		claims, ok := value.(*models.JWTClaims)
		if !ok || claims == nil {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin restricts a route to the admin role.
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin)
}
