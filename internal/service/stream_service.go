package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/homereel/media-library/internal/models"
	appErrors "github.com/homereel/media-library/pkg/errors"
	"github.com/homereel/media-library/pkg/httprange"
	"github.com/homereel/media-library/pkg/storage"
)

const defaultStreamChunk = 8 * 1024

type streamMediaReader interface {
	GetByID(ctx context.Context, id string) (*models.Media, error)
}

type linkVerifier interface {
	Verify(token, mediaID string) error
}

// StreamRequest identifies what to stream and for whom. Actor is nil for
// anonymous requests, which must carry a LinkToken.
type StreamRequest struct {
	MediaID   string
	Range     string
	Actor     *models.Identity
	LinkToken string
}

// Stream is an opened media body plus the response metadata for it.
type Stream struct {
	Status        int
	ContentType   string
	ContentLength int64
	ContentRange  string
	Filename      string
	Body          io.ReadCloser
}

// Headers returns the response headers for s.
func (s *Stream) Headers() map[string]string {
	h := map[string]string{
		"Accept-Ranges":  "bytes",
		"Content-Type":   s.ContentType,
		"Content-Length": strconv.FormatInt(s.ContentLength, 10),
	}
	if s.ContentRange != "" {
		h["Content-Range"] = s.ContentRange
	}
	return h
}

// RangeNotSatisfiableError carries the resource size for a 416 response.
type RangeNotSatisfiableError struct {
	Size int64
	Err  error
}

func (e *RangeNotSatisfiableError) Error() string {
	return fmt.Sprintf("range not satisfiable for %d bytes: %v", e.Size, e.Err)
}

func (e *RangeNotSatisfiableError) Unwrap() error {
	return e.Err
}

// StreamServiceConfig tunes streaming.
type StreamServiceConfig struct {
	ChunkSize int
	GuestView bool
}

// StreamService authorizes and opens media bodies, honouring single byte
// ranges.
type StreamService struct {
	media   streamMediaReader
	blobs   blobRangeReader
	links   linkVerifier
	access  AccessPolicy
	metrics *MetricsService
	logger  *zap.Logger
	chunk   int
}

// NewStreamService constructs StreamService.
func NewStreamService(media streamMediaReader, blobs blobRangeReader, links linkVerifier, metrics *MetricsService, logger *zap.Logger, cfg StreamServiceConfig) *StreamService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultStreamChunk
	}
	return &StreamService{
		media:   media,
		blobs:   blobs,
		links:   links,
		access:  AccessPolicy{GuestView: cfg.GuestView},
		metrics: metrics,
		logger:  logger,
		chunk:   cfg.ChunkSize,
	}
}

// Open resolves req into a readable stream. The caller must close Body.
func (s *StreamService) Open(ctx context.Context, req StreamRequest) (*Stream, error) {
	if req.Actor == nil {
		if err := s.verifyLink(req); err != nil {
			return nil, err
		}
	}

	media, err := s.media.GetByID(ctx, req.MediaID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrMediaNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load media")
	}

	if req.Actor == nil {
		if media.Visibility != models.VisibilityLink {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "media is not shared by link")
		}
	} else if err := s.access.AuthorizeView(media, req.Actor); err != nil {
		return nil, err
	}

	if !media.HasFile() {
		return nil, appErrors.ErrFileMissing
	}
	key := *media.StoragePath
	size, err := s.blobs.Size(ctx, key)
	if err != nil {
		return nil, s.blobError(media.ID, err)
	}

	rng, err := httprange.Parse(req.Range, size)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrInvalidRange, &RangeNotSatisfiableError{Size: size, Err: err})
	}

	stream := &Stream{
		Status:        http.StatusOK,
		ContentType:   "application/octet-stream",
		ContentLength: size,
	}
	if media.MimeType != nil && *media.MimeType != "" {
		stream.ContentType = *media.MimeType
	}
	if media.Filename != nil {
		stream.Filename = *media.Filename
	}

	start, end := int64(0), size-1
	if rng != nil {
		start, end = rng.Start, rng.End
		stream.Status = http.StatusPartialContent
		stream.ContentLength = rng.Length()
		stream.ContentRange = rng.ContentRange()
	}

	if size == 0 {
		stream.Body = io.NopCloser(strings.NewReader(""))
		return stream, nil
	}
	body, err := s.blobs.ReadRange(ctx, key, start, end)
	if err != nil {
		return nil, s.blobError(media.ID, err)
	}
	stream.Body = body
	return stream, nil
}

// Send copies stream to w in fixed-size chunks, stopping when ctx is done.
// The body is closed on every path.
func (s *StreamService) Send(ctx context.Context, w io.Writer, stream *Stream) (int64, error) {
	defer stream.Body.Close()
	done := s.metrics.StreamStarted(stream.Status == http.StatusPartialContent)

	buf := make([]byte, s.chunk)
	var sent int64
	for {
		if err := ctx.Err(); err != nil {
			done(sent)
			return sent, err
		}
		n, readErr := stream.Body.Read(buf)
		if n > 0 {
			written, writeErr := w.Write(buf[:n])
			sent += int64(written)
			if writeErr != nil {
				done(sent)
				return sent, writeErr
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
		if readErr == io.EOF {
			done(sent)
			return sent, nil
		}
		if readErr != nil {
			done(sent)
			return sent, readErr
		}
	}
}

func (s *StreamService) verifyLink(req StreamRequest) error {
	if req.LinkToken == "" {
		return appErrors.ErrUnauthorized
	}
	if s.links == nil {
		return appErrors.ErrForbidden
	}
	if err := s.links.Verify(req.LinkToken, req.MediaID); err != nil {
		if errors.Is(err, storage.ErrLinkTokenExpired) {
			return appErrors.Clone(appErrors.ErrForbidden, "share link has expired")
		}
		return appErrors.Clone(appErrors.ErrForbidden, "invalid share link")
	}
	return nil
}

func (s *StreamService) blobError(mediaID string, err error) error {
	if errors.Is(err, storage.ErrBlobNotFound) {
		s.logger.Warn("media file missing from storage", zap.String("media_id", mediaID))
		return appErrors.ErrFileMissing
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open media file")
}
