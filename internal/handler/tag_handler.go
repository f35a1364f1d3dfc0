package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/homereel/media-library/internal/models"
	"github.com/homereel/media-library/internal/service"
	appErrors "github.com/homereel/media-library/pkg/errors"
	"github.com/homereel/media-library/pkg/response"
)

type mediaTagger interface {
	AddTag(ctx context.Context, mediaID, name string, actor *models.Identity) (*models.MediaTagView, error)
	RemoveTag(ctx context.Context, mediaID, tagID string, actor *models.Identity) error
	ListTags(ctx context.Context, mediaID string, actor *models.Identity) ([]models.MediaTagView, error)
}

// TagHandler manages tags on media.
type TagHandler struct {
	tags mediaTagger
}

// NewTagHandler constructs the handler.
func NewTagHandler(tags mediaTagger) *TagHandler {
	return &TagHandler{tags: tags}
}

// List godoc
// @Summary List tags on media
// @Tags Tags
// @Produce json
// @Param id path string true "Media ID"
// @Success 200 {object} response.Envelope
// @Router /media/{id}/tags [get]
func (h *TagHandler) List(c *gin.Context) {
	tags, err := h.tags.ListTags(c.Request.Context(), c.Param("id"), identityFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tags, nil)
}

// Add godoc
// @Summary Tag media
// @Tags Tags
// @Accept json
// @Produce json
// @Param id path string true "Media ID"
// @Param payload body service.AddTagRequest true "Tag"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /media/{id}/tags [post]
func (h *TagHandler) Add(c *gin.Context) {
	var req service.AddTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "tag name is required"))
		return
	}
	tag, err := h.tags.AddTag(c.Request.Context(), c.Param("id"), req.Name, identityFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tag)
}

// Remove godoc
// @Summary Remove a tag from media
// @Tags Tags
// @Param id path string true "Media ID"
// @Param tagId path string true "Tag ID"
// @Success 204
// @Router /media/{id}/tags/{tagId} [delete]
func (h *TagHandler) Remove(c *gin.Context) {
	if err := h.tags.RemoveTag(c.Request.Context(), c.Param("id"), c.Param("tagId"), identityFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
