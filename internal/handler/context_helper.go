package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/study-vault-api/internal/middleware"
	"github.com/noah-isme/study-vault-api/internal/models"
)

// claimsFromContext returns the verified principal, or nil on public routes.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*models.JWTClaims)
	return claims
}
