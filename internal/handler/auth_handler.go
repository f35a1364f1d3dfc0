package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/homereel/media-library/internal/middleware"
	"github.com/homereel/media-library/internal/models"
	appErrors "github.com/homereel/media-library/pkg/errors"
	"github.com/homereel/media-library/pkg/response"
)

// AuthHandler exposes the caller's own identity. Tokens are minted by the
// identity provider or by mediactl.
type AuthHandler struct{}

// NewAuthHandler creates a new handler.
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// MeResponse describes the authenticated caller.
type MeResponse struct {
	UserID    string          `json:"user_id"`
	Role      models.UserRole `json:"role"`
	Email     string          `json:"email,omitempty"`
	FullName  string          `json:"full_name,omitempty"`
	ExpiresAt int64           `json:"expires_at,omitempty"`
}

// Me godoc
// @Summary Current identity
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	value, ok := c.Get(middleware.ContextUserKey)
	claims, _ := value.(*models.JWTClaims)
	if !ok || claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	me := MeResponse{UserID: claims.UserID, Role: claims.Role, Email: claims.Email, FullName: claims.FullName}
	if claims.ExpiresAt != nil {
		me.ExpiresAt = claims.ExpiresAt.Unix()
	}
	response.JSON(c, http.StatusOK, me, nil)
}
