package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gymslot-api/internal/middleware"
	"github.com/noah-isme/gymslot-api/internal/models"
	appErrors "github.com/noah-isme/gymslot-api/pkg/errors"
	"github.com/noah-isme/gymslot-api/pkg/response"
)

// requireClaims returns the session claims or writes 401 and returns nil.
func requireClaims(c *gin.Context) *models.JWTClaims {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil
	}
	return claims
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message))
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func respondWithMeta(c *gin.Context, status int, data interface{}) {
	response.JSON(c, status, data, nil, middleware.ExtractMeta(c))
}
