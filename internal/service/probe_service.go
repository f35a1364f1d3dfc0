package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/homereel/media-library/internal/models"
	"github.com/homereel/media-library/pkg/jobs"
)

// ProbeJobType identifies post-ingest probe jobs.
const ProbeJobType = "media.probe"

// probeHeaderBytes bounds how much of a photo is read to find its dimensions.
const probeHeaderBytes = 1 << 20

type probeMediaStore interface {
	GetByID(ctx context.Context, id string) (*models.Media, error)
	UpdateProbe(ctx context.Context, id string, width, height *int, status models.MediaStatus) error
}

type blobRangeReader interface {
	ReadRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error)
	Size(ctx context.Context, key string) (int64, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// ProbeService resolves PROCESSING uploads. Photos get their dimensions read
// from the image header; videos are marked READY as is.
type ProbeService struct {
	media   probeMediaStore
	blobs   blobRangeReader
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	queue   jobEnqueuer
}

// NewProbeService constructs the probe. Attach a queue with UseQueue before
// scheduling work.
func NewProbeService(media probeMediaStore, blobs blobRangeReader, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *ProbeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProbeService{media: media, blobs: blobs, cache: cache, metrics: metrics, logger: logger}
}

// UseQueue sets the queue Schedule pushes to.
func (s *ProbeService) UseQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Schedule queues a probe for mediaID.
func (s *ProbeService) Schedule(mediaID string) error {
	if s.queue == nil {
		return errors.New("probe queue not configured")
	}
	return s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: ProbeJobType, Payload: mediaID})
}

// Handle is the queue handler.
func (s *ProbeService) Handle(ctx context.Context, job jobs.Job) error {
	mediaID, ok := job.Payload.(string)
	if !ok || mediaID == "" {
		s.logger.Warn("dropping probe job with invalid payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.Probe(ctx, mediaID)
}

// Probe inspects one media item and records the outcome.
func (s *ProbeService) Probe(ctx context.Context, mediaID string) error {
	media, err := s.media.GetByID(ctx, mediaID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Deleted before the probe ran.
			return nil
		}
		return fmt.Errorf("load media %s: %w", mediaID, err)
	}
	if media.Status != models.MediaStatusProcessing {
		return nil
	}

	var width, height *int
	if media.Kind == models.MediaKindPhoto && media.HasFile() {
		w, h, err := s.dimensions(ctx, *media.StoragePath)
		switch {
		case errors.Is(err, image.ErrFormat):
			s.logger.Info("no decoder for photo format", zap.String("media_id", mediaID), zap.Stringp("mime_type", media.MimeType))
		case err != nil:
			return err
		default:
			width, height = &w, &h
		}
	}

	if err := s.media.UpdateProbe(ctx, mediaID, width, height, models.MediaStatusReady); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("store probe result for %s: %w", mediaID, err)
	}
	_ = s.cache.InvalidateMedia(ctx, mediaID)
	s.metrics.RecordProbe("ready")
	s.logger.Debug("media probed", zap.String("media_id", mediaID), zap.Intp("width", width), zap.Intp("height", height))
	return nil
}

// Exhausted marks the media FAILED after the queue gave up on it.
func (s *ProbeService) Exhausted(ctx context.Context, job jobs.Job, cause error) {
	mediaID, _ := job.Payload.(string)
	if mediaID == "" {
		return
	}
	// The queue context may be cancelled during shutdown.
	ctx = context.WithoutCancel(ctx)
	if err := s.media.UpdateProbe(ctx, mediaID, nil, nil, models.MediaStatusFailed); err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.logger.Error("failed to mark media as failed", zap.String("media_id", mediaID), zap.Error(err))
		return
	}
	_ = s.cache.InvalidateMedia(ctx, mediaID)
	s.metrics.RecordProbe("failed")
	s.logger.Warn("media probe failed", zap.String("media_id", mediaID), zap.Error(cause))
}

func (s *ProbeService) dimensions(ctx context.Context, key string) (int, int, error) {
	size, err := s.blobs.Size(ctx, key)
	if err != nil {
		return 0, 0, fmt.Errorf("stat blob %s: %w", key, err)
	}
	if size == 0 {
		return 0, 0, image.ErrFormat
	}
	end := size - 1
	if end >= probeHeaderBytes {
		end = probeHeaderBytes - 1
	}
	rc, err := s.blobs.ReadRange(ctx, key, 0, end)
	if err != nil {
		return 0, 0, fmt.Errorf("open blob %s: %w", key, err)
	}
	defer rc.Close()

	cfg, _, err := image.DecodeConfig(rc)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return 0, 0, image.ErrFormat
		}
		return 0, 0, fmt.Errorf("decode image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
