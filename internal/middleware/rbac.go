package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/gymslot-api/pkg/errors"
	"github.com/noah-isme/gymslot-api/pkg/response"
)

// RequireAdmin allows the request through only when the verified token carries the admin claim.
// It must run after JWT.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !claims.IsAdmin {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "admin access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}
