package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/transitops/feedback-api/internal/middleware"
	"github.com/transitops/feedback-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextStaffKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
