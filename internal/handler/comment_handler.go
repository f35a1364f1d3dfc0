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

type mediaCommenter interface {
	AddComment(ctx context.Context, mediaID string, req service.AddCommentRequest, actor *models.Identity) (*models.Comment, error)
	ListComments(ctx context.Context, mediaID string, actor *models.Identity) ([]models.Comment, error)
	DeleteComment(ctx context.Context, mediaID, commentID string, actor *models.Identity) error
}

// CommentHandler manages comments on media.
type CommentHandler struct {
	comments mediaCommenter
}

// NewCommentHandler constructs the handler.
func NewCommentHandler(comments mediaCommenter) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// List godoc
// @Summary List comments, newest first
// @Tags Comments
// @Produce json
// @Param id path string true "Media ID"
// @Success 200 {object} response.Envelope
// @Router /media/{id}/comments [get]
func (h *CommentHandler) List(c *gin.Context) {
	comments, err := h.comments.ListComments(c.Request.Context(), c.Param("id"), identityFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, comments, nil)
}

// Add godoc
// @Summary Comment on media
// @Tags Comments
// @Accept json
// @Produce json
// @Param id path string true "Media ID"
// @Param payload body service.AddCommentRequest true "Comment"
// @Success 201 {object} response.Envelope
// @Router /media/{id}/comments [post]
func (h *CommentHandler) Add(c *gin.Context) {
	var req service.AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "comment body is required"))
		return
	}
	comment, err := h.comments.AddComment(c.Request.Context(), c.Param("id"), req, identityFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comment)
}

// Delete godoc
// @Summary Delete a comment
// @Tags Comments
// @Param id path string true "Media ID"
// @Param commentId path string true "Comment ID"
// @Success 204
// @Router /media/{id}/comments/{commentId} [delete]
func (h *CommentHandler) Delete(c *gin.Context) {
	if err := h.comments.DeleteComment(c.Request.Context(), c.Param("id"), c.Param("commentId"), identityFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
