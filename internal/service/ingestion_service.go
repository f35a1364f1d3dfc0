package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/homereel/media-library/internal/models"
	"github.com/homereel/media-library/internal/repository"
	"github.com/homereel/media-library/internal/source"
	"github.com/homereel/media-library/pkg/config"
	appErrors "github.com/homereel/media-library/pkg/errors"
	"github.com/homereel/media-library/pkg/storage"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type mediaWriter interface {
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, media *models.Media) error
	ExistsActiveContentHash(ctx context.Context, hash string) (bool, error)
	ExistsActiveTapeNumber(ctx context.Context, tape string) (bool, error)
}

type tagWriter interface {
	GetOrCreateWithTx(ctx context.Context, tx *sqlx.Tx, name string) (*models.Tag, error)
	AttachWithTx(ctx context.Context, tx *sqlx.Tx, mediaID, tagID, createdBy string) (bool, error)
}

type sourceResolver interface {
	Resolve(ctx context.Context, kind models.SourceKind) (*models.MediaSource, error)
}

type blobWriter interface {
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) (int64, error)
	Delete(ctx context.Context, key string) error
}

type probeScheduler interface {
	Schedule(mediaID string) error
}

// CreateMediaRequest registers a media record without bytes, for example a
// tape that has not been digitised yet or an item imported by reference.
type CreateMediaRequest struct {
	Kind        models.MediaKind  `json:"kind" validate:"required"`
	SourceKind  models.SourceKind `json:"source_kind" validate:"required"`
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	TapeNumber  *string           `json:"tape_number"`
	SourceRef   *string           `json:"source_ref"`
	Tags        []string          `json:"tags" validate:"max=50"`
	CapturedAt  *time.Time        `json:"captured_at"`
	DurationSec *int              `json:"duration_sec" validate:"omitempty,min=0"`
	Visibility  models.Visibility `json:"visibility"`
}

// UploadMediaRequest carries the form fields sent alongside an upload.
// Kind may be empty, in which case it is inferred from the file content.
type UploadMediaRequest struct {
	Kind        models.MediaKind
	SourceKind  models.SourceKind
	Title       *string
	Description *string
	TapeNumber  *string
	Tags        []string `validate:"max=50"`
	CapturedAt  *time.Time
	Visibility  models.Visibility
}

// UploadFile is the uploaded payload. Reader must be seekable so the
// fingerprint can be computed before anything is written.
type UploadFile struct {
	Filename string
	Size     int64
	Reader   io.ReadSeeker
}

// IngestionConfig holds the upload limits.
type IngestionConfig struct {
	Media config.MediaConfig
}

// IngestionService is the only path that creates media records.
type IngestionService struct {
	media     mediaWriter
	tags      tagWriter
	sources   sourceResolver
	blobs     blobWriter
	tx        txProvider
	probe     probeScheduler
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       IngestionConfig
	now       func() time.Time
}

// NewIngestionService wires the pipeline. probe may be nil, in which case
// uploads are READY as soon as they are stored.
func NewIngestionService(
	media mediaWriter,
	tags tagWriter,
	sources sourceResolver,
	blobs blobWriter,
	tx txProvider,
	probe probeScheduler,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg IngestionConfig,
) *IngestionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Media.MaxUploadBytes <= 0 {
		cfg.Media.MaxUploadBytes = 2048 * 1024 * 1024
	}
	return &IngestionService{
		media:     media,
		tags:      tags,
		sources:   sources,
		blobs:     blobs,
		tx:        tx,
		probe:     probe,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateMedia persists a metadata-only record. Admin only.
func (s *IngestionService) CreateMedia(ctx context.Context, req CreateMediaRequest, actor *models.Identity) (*models.MediaDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can register media without a file")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid media payload")
	}

	policy, err := source.Lookup(req.SourceKind)
	if err != nil {
		return nil, err
	}
	draft := policy.Normalize(source.Draft{
		Kind:        req.Kind,
		Title:       req.Title,
		Description: req.Description,
		TapeNumber:  req.TapeNumber,
		SourceRef:   req.SourceRef,
		Tags:        req.Tags,
		CapturedAt:  req.CapturedAt,
		Visibility:  req.Visibility,
	})
	draft = policy.Hydrate(draft, "")
	if err := policy.Validate(draft); err != nil {
		s.metrics.RecordIngest(string(policy.Kind), IngestOutcomeRejected, 0)
		return nil, err
	}

	src, err := s.sources.Resolve(ctx, policy.Kind)
	if err != nil {
		return nil, err
	}

	media := newMediaFromDraft(draft, src, actor.UserID)
	media.ID = uuid.NewString()
	media.ContentHash = metadataFingerprint(draft)
	media.DurationSec = req.DurationSec
	media.Status = models.MediaStatusReady

	if err := s.precheck(ctx, media); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, media, draft.Tags, actor.UserID); err != nil {
		s.recordFailure(policy.Kind, err)
		return nil, err
	}

	s.metrics.RecordIngest(string(policy.Kind), IngestOutcomeCreated, 0)
	s.logger.Info("media created",
		zap.String("media_id", media.ID),
		zap.String("source", string(policy.Kind)),
		zap.String("user_id", actor.UserID),
	)
	return &models.MediaDetail{Media: *media, Tags: nonNilTags(draft.Tags)}, nil
}

// UploadMedia validates, fingerprints and stores an uploaded file, then
// persists its record and tags in one transaction.
func (s *IngestionService) UploadMedia(ctx context.Context, req UploadMediaRequest, file UploadFile, actor *models.Identity) (*models.MediaDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if file.Reader == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid upload payload")
	}

	kind, err := s.uploadSourceFor(req.SourceKind, actor)
	if err != nil {
		return nil, err
	}
	policy, err := source.Lookup(kind)
	if err != nil {
		return nil, err
	}

	if file.Size > s.cfg.Media.MaxUploadBytes {
		return nil, s.tooLarge()
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext == "" || !s.cfg.Media.ExtensionAllowed(ext) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file extension %q is not allowed", ext))
	}

	mime, err := sniff(file.Reader)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read upload")
	}
	detectedKind := kindForMIME(mime)
	if detectedKind == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported file type %s", mime))
	}

	draft := policy.Normalize(source.Draft{
		Kind:        req.Kind,
		Title:       req.Title,
		Description: req.Description,
		TapeNumber:  req.TapeNumber,
		Tags:        req.Tags,
		CapturedAt:  req.CapturedAt,
		Visibility:  req.Visibility,
	})
	if draft.Kind == "" {
		draft.Kind = detectedKind
	}
	draft = policy.Hydrate(draft, file.Filename)
	if err := policy.Validate(draft); err != nil {
		s.metrics.RecordIngest(string(policy.Kind), IngestOutcomeRejected, 0)
		return nil, err
	}
	if draft.Kind != detectedKind {
		s.metrics.RecordIngest(string(policy.Kind), IngestOutcomeRejected, 0)
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file content %s does not match kind %s", mime, draft.Kind))
	}

	src, err := s.sources.Resolve(ctx, policy.Kind)
	if err != nil {
		return nil, err
	}

	hash, size, err := fingerprint(file.Reader, s.cfg.Media.MaxUploadBytes)
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			return nil, s.tooLarge()
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fingerprint upload")
	}

	media := newMediaFromDraft(draft, src, actor.UserID)
	media.ID = uuid.NewString()
	media.ContentHash = hash
	media.ByteSize = size
	media.Status = models.MediaStatusReady
	if s.probe != nil {
		media.Status = models.MediaStatusProcessing
	}
	filename := filepath.Base(file.Filename)
	media.Filename = &filename
	media.Ext = &ext
	media.MimeType = &mime

	if err := s.precheck(ctx, media); err != nil {
		return nil, err
	}

	key := storage.ObjectKey(s.now(), media.ID, ext)
	written, err := s.blobs.Write(ctx, key, file.Reader, size, mime)
	if err != nil {
		s.metrics.RecordIngest(string(policy.Kind), IngestOutcomeFailed, 0)
		s.logger.Error("media blob write failed", zap.String("media_id", media.ID), zap.Error(err))
		s.discardBlob(key)
		return nil, appErrors.WrapAs(appErrors.ErrStorageWriteFailed, err)
	}
	if written != size {
		s.metrics.RecordIngest(string(policy.Kind), IngestOutcomeFailed, 0)
		s.discardBlob(key)
		return nil, appErrors.WrapAs(appErrors.ErrStorageWriteFailed, fmt.Errorf("wrote %d of %d bytes", written, size))
	}
	media.StoragePath = &key

	if err := s.persist(ctx, media, draft.Tags, actor.UserID); err != nil {
		s.discardBlob(key)
		s.recordFailure(policy.Kind, err)
		return nil, err
	}

	s.metrics.RecordIngest(string(policy.Kind), IngestOutcomeCreated, size)
	s.logger.Info("media uploaded",
		zap.String("media_id", media.ID),
		zap.String("source", string(policy.Kind)),
		zap.String("user_id", actor.UserID),
		zap.Int64("bytes", size),
	)

	if s.probe != nil {
		if err := s.probe.Schedule(media.ID); err != nil {
			s.logger.Warn("failed to schedule media probe", zap.String("media_id", media.ID), zap.Error(err))
		}
	}
	return &models.MediaDetail{Media: *media, Tags: nonNilTags(draft.Tags)}, nil
}

// uploadSourceFor applies the upload permission table. Administrators may use
// any source; other roles upload into their own source when user uploads are
// enabled.
func (s *IngestionService) uploadSourceFor(requested models.SourceKind, actor *models.Identity) (models.SourceKind, error) {
	requested = models.SourceKind(strings.ToUpper(strings.TrimSpace(string(requested))))
	if actor.IsAdmin() {
		if requested == "" {
			return models.SourceUserUpload, nil
		}
		return requested, nil
	}
	if !s.cfg.Media.EnableUserUploads {
		return "", appErrors.Clone(appErrors.ErrForbidden, "uploads are restricted to administrators")
	}
	var own models.SourceKind
	switch actor.Role {
	case models.RoleUser:
		own = models.SourceUserUpload
	case models.RoleGuest:
		own = models.SourceGuestUpload
	default:
		return "", appErrors.ErrForbidden
	}
	if requested != "" && requested != own {
		return "", appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s may only upload to %s", actor.Role, own))
	}
	return own, nil
}

func (s *IngestionService) precheck(ctx context.Context, media *models.Media) error {
	kind := string(media.SourceKind)
	exists, err := s.media.ExistsActiveContentHash(ctx, media.ContentHash)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check for duplicate content")
	}
	if exists {
		s.metrics.RecordIngest(kind, IngestOutcomeDuplicate, 0)
		return appErrors.ErrDuplicateContent
	}
	if media.SourceKind == models.SourceVideotape && media.TapeNumber != nil {
		exists, err := s.media.ExistsActiveTapeNumber(ctx, *media.TapeNumber)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check tape number")
		}
		if exists {
			s.metrics.RecordIngest(kind, IngestOutcomeTape, 0)
			return appErrors.Clone(appErrors.ErrDuplicateTapeNumber, fmt.Sprintf("tape number %s already exists", *media.TapeNumber))
		}
	}
	return nil
}

// persist inserts the record and its tags atomically. Unique index races are
// reported as the matching duplicate error.
func (s *IngestionService) persist(ctx context.Context, media *models.Media, tags []string, actorID string) (err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	media.CreatedAt = s.now()
	if err = s.media.CreateWithTx(ctx, tx, media); err != nil {
		switch {
		case errors.Is(err, repository.ErrContentHashTaken):
			return appErrors.WrapAs(appErrors.ErrDuplicateContent, err)
		case errors.Is(err, repository.ErrTapeNumberTaken):
			return appErrors.WrapAs(appErrors.ErrDuplicateTapeNumber, err)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create media")
	}

	for _, name := range tags {
		tag, tagErr := s.tags.GetOrCreateWithTx(ctx, tx, name)
		if tagErr != nil {
			err = tagErr
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create tag")
		}
		if _, err = s.tags.AttachWithTx(ctx, tx, media.ID, tag.ID, actorID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to tag media")
		}
	}

	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit media")
	}
	return nil
}

func (s *IngestionService) discardBlob(key string) {
	// Runs even when the request context is already cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to remove orphaned blob", zap.String("key", key), zap.Error(err))
	}
}

func (s *IngestionService) recordFailure(kind models.SourceKind, err error) {
	switch {
	case errors.Is(err, appErrors.ErrDuplicateContent):
		s.metrics.RecordIngest(string(kind), IngestOutcomeDuplicate, 0)
	case errors.Is(err, appErrors.ErrDuplicateTapeNumber):
		s.metrics.RecordIngest(string(kind), IngestOutcomeTape, 0)
	default:
		s.metrics.RecordIngest(string(kind), IngestOutcomeFailed, 0)
	}
}

func (s *IngestionService) tooLarge() error {
	return appErrors.Clone(appErrors.ErrFileTooLarge, fmt.Sprintf("file exceeds the %d MB upload limit", s.cfg.Media.MaxUploadBytes/(1024*1024)))
}

func newMediaFromDraft(d source.Draft, src *models.MediaSource, owner string) *models.Media {
	return &models.Media{
		Kind:        d.Kind,
		Title:       d.Title,
		Description: d.Description,
		CapturedAt:  d.CapturedAt,
		UploadedBy:  owner,
		SourceID:    src.ID,
		SourceKind:  src.Kind,
		TapeNumber:  d.TapeNumber,
		SourceRef:   d.SourceRef,
		Visibility:  d.Visibility,
	}
}

var errUploadTooLarge = errors.New("upload exceeds size limit")

// fingerprint hashes r from the start and rewinds it. It stops reading once
// more than limit bytes have been seen.
func fingerprint(r io.ReadSeeker, limit int64) (string, int64, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", 0, fmt.Errorf("rewind upload: %w", err)
	}
	h := sha256.New()
	n, err := io.Copy(h, io.LimitReader(r, limit+1))
	if err != nil {
		return "", 0, fmt.Errorf("hash upload: %w", err)
	}
	if n > limit {
		return "", n, errUploadTooLarge
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", 0, fmt.Errorf("rewind upload: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// metadataFingerprint derives the content hash of a record without bytes.
// Records with a source reference hash to a stable value so re-importing the
// same external item is caught as a duplicate.
func metadataFingerprint(d source.Draft) string {
	if d.SourceRef != nil {
		sum := sha256.Sum256([]byte(string(d.SourceKind) + "\x00" + *d.SourceRef))
		return "ref:" + hex.EncodeToString(sum[:])
	}
	return "meta:" + uuid.NewString()
}

func sniff(r io.ReadSeeker) (string, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	mt, err := mimetype.DetectReader(r)
	if err != nil {
		return "", err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	mime, _, _ := strings.Cut(mt.String(), ";")
	return mime, nil
}

func kindForMIME(mime string) models.MediaKind {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return models.MediaKindPhoto
	case strings.HasPrefix(mime, "video/"):
		return models.MediaKindVideo
	}
	return ""
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
