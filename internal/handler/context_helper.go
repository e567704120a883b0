package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fitness-admin-api/internal/middleware"
	"github.com/noah-isme/fitness-admin-api/internal/models"
)

// claimsFromContext pulls the authenticated caller's claims out of the gin
// context. It returns nil on unauthenticated routes.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		return nil
	}
	claims, _ := value.(*models.JWTClaims)
	return claims
}
