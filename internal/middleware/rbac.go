package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/homereel/media-library/internal/models"
	appErrors "github.com/homereel/media-library/pkg/errors"
	"github.com/homereel/media-library/pkg/response"
)

// RequireRoles lets the request through only when the caller holds one of
// roles. It must run after JWT; anonymous callers get 401, others 403.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		identity := Identity(c)
		switch {
		case identity == nil:
			response.Error(c, appErrors.ErrUnauthorized)
		case !identity.Role.Valid():
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "unknown role"))
		default:
			if _, ok := allowed[identity.Role]; ok {
				c.Next()
				return
			}
			response.Error(c, appErrors.ErrForbidden)
		}
		c.Abort()
	}
}
