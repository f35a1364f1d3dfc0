package handler

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/homereel/media-library/internal/service"
	appErrors "github.com/homereel/media-library/pkg/errors"
	"github.com/homereel/media-library/pkg/response"
)

type mediaStreamer interface {
	Open(ctx context.Context, req service.StreamRequest) (*service.Stream, error)
	Send(ctx context.Context, w io.Writer, stream *service.Stream) (int64, error)
}

// StreamHandler serves media bodies with byte range support.
type StreamHandler struct {
	streams mediaStreamer
	logger  *zap.Logger
}

// NewStreamHandler constructs the handler.
func NewStreamHandler(streams mediaStreamer, logger *zap.Logger) *StreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamHandler{streams: streams, logger: logger}
}

// Stream godoc
// @Summary Stream media
// @Description Honours a single "Range: bytes=..." header with 206 Partial Content.
// @Tags Streaming
// @Produce octet-stream
// @Param id path string true "Media ID"
// @Param Range header string false "Byte range, e.g. bytes=0-1023"
// @Success 200 {file} file
// @Success 206 {file} file
// @Failure 416 {object} response.Envelope
// @Router /media/{id}/stream [get]
func (h *StreamHandler) Stream(c *gin.Context) {
	h.serve(c, service.StreamRequest{Actor: identityFromContext(c)}, "inline")
}

// Download godoc
// @Summary Download media
// @Tags Streaming
// @Produce octet-stream
// @Param id path string true "Media ID"
// @Success 200 {file} file
// @Router /media/{id}/download [get]
func (h *StreamHandler) Download(c *gin.Context) {
	h.serve(c, service.StreamRequest{Actor: identityFromContext(c)}, "attachment")
}

// PublicStream godoc
// @Summary Stream media through a share link
// @Tags Streaming
// @Produce octet-stream
// @Param id path string true "Media ID"
// @Param token query string true "Share link token"
// @Param Range header string false "Byte range"
// @Success 200 {file} file
// @Success 206 {file} file
// @Failure 403 {object} response.Envelope
// @Router /public/media/{id}/stream [get]
func (h *StreamHandler) PublicStream(c *gin.Context) {
	h.serve(c, service.StreamRequest{Actor: identityFromContext(c), LinkToken: c.Query("token")}, "inline")
}

func (h *StreamHandler) serve(c *gin.Context, req service.StreamRequest, disposition string) {
	req.MediaID = c.Param("id")
	req.Range = c.GetHeader("Range")

	stream, err := h.streams.Open(c.Request.Context(), req)
	if err != nil {
		var rangeErr *service.RangeNotSatisfiableError
		if errors.As(err, &rangeErr) {
			response.RangeNotSatisfiable(c, rangeErr.Size, err)
			return
		}
		response.Error(c, err)
		return
	}

	for key, value := range stream.Headers() {
		c.Header(key, value)
	}
	c.Header("Content-Disposition", response.ContentDisposition(disposition, stream.Filename))
	c.Header("Cache-Control", "private, max-age=0")
	c.Status(stream.Status)

	sent, err := h.streams.Send(c.Request.Context(), c.Writer, stream)
	if err != nil && !errors.Is(err, context.Canceled) {
		h.logger.Warn("stream interrupted",
			zap.String("media_id", req.MediaID),
			zap.Int64("sent", sent),
			zap.Int64("expected", stream.ContentLength),
			zap.Error(err))
		_ = c.Error(appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stream interrupted"))
	}
}
