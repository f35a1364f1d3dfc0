package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/homereel/media-library/internal/middleware"
	"github.com/homereel/media-library/internal/models"
	"github.com/homereel/media-library/internal/service"
	appErrors "github.com/homereel/media-library/pkg/errors"
	"github.com/homereel/media-library/pkg/export"
	"github.com/homereel/media-library/pkg/response"
)

// multipartOverhead is allowed on top of the file size limit for the other
// form fields and boundaries.
const multipartOverhead = 1 << 20

type mediaCatalog interface {
	Get(ctx context.Context, id string, actor *models.Identity) (*models.MediaDetail, error)
	List(ctx context.Context, filter models.MediaFilter, actor *models.Identity) ([]models.Media, *models.Pagination, error)
	UpdateMetadata(ctx context.Context, id string, req service.UpdateMediaRequest, actor *models.Identity) (*models.MediaDetail, error)
	Delete(ctx context.Context, id string, actor *models.Identity) error
	ShareLink(ctx context.Context, id string, actor *models.Identity) (*service.ShareLink, error)
}

type mediaIngestor interface {
	CreateMedia(ctx context.Context, req service.CreateMediaRequest, actor *models.Identity) (*models.MediaDetail, error)
	UploadMedia(ctx context.Context, req service.UploadMediaRequest, file service.UploadFile, actor *models.Identity) (*models.MediaDetail, error)
}

type catalogExporter interface {
	ExportCatalog(ctx context.Context, filter models.MediaFilter, format export.Format, actor *models.Identity) (*service.ExportFile, error)
}

type sourceLister interface {
	List(ctx context.Context) ([]models.MediaSource, error)
}

// MediaHandler exposes the catalog and ingestion endpoints.
type MediaHandler struct {
	catalog   mediaCatalog
	ingestor  mediaIngestor
	exporter  catalogExporter
	sources   sourceLister
	maxUpload int64
}

// NewMediaHandler constructs the handler. maxUpload bounds the request body
// of uploads; zero disables the transport level check.
func NewMediaHandler(catalog mediaCatalog, ingestor mediaIngestor, exporter catalogExporter, sources sourceLister, maxUpload int64) *MediaHandler {
	return &MediaHandler{catalog: catalog, ingestor: ingestor, exporter: exporter, sources: sources, maxUpload: maxUpload}
}

// List godoc
// @Summary List media
// @Tags Media
// @Produce json
// @Param captured_from query string false "Captured on or after (RFC 3339 or YYYY-MM-DD)"
// @Param captured_to query string false "Captured on or before (RFC 3339 or YYYY-MM-DD)"
// @Param tag_ids query []string false "Tag IDs, media carrying any of them match"
// @Param source_kind query string false "Source kind"
// @Param tape_number query string false "Tape number"
// @Param status query string false "Processing status"
// @Param limit query int false "Page size (max 1000)"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /media [get]
func (h *MediaHandler) List(c *gin.Context) {
	filter, err := parseMediaFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, page, err := h.catalog.List(c.Request.Context(), filter, identityFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, page, middleware.ExtractMeta(c))
}

// Create godoc
// @Summary Register a metadata-only media record
// @Description Admin only. Used for digitization backlogs such as video tapes.
// @Tags Media
// @Accept json
// @Produce json
// @Param payload body service.CreateMediaRequest true "Media metadata"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /media [post]
func (h *MediaHandler) Create(c *gin.Context) {
	var req service.CreateMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid media payload"))
		return
	}
	media, err := h.ingestor.CreateMedia(c.Request.Context(), req, identityFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, media)
}

// Upload godoc
// @Summary Upload a photo or video
// @Tags Media
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Media file"
// @Param kind formData string false "PHOTO or VIDEO, inferred when omitted"
// @Param source_kind formData string false "Source kind (admins only)"
// @Param title formData string false "Title"
// @Param description formData string false "Description"
// @Param tape_number formData string false "Tape number"
// @Param tags formData string false "Comma separated tags"
// @Param captured_at formData string false "Capture time (RFC 3339 or YYYY-MM-DD)"
// @Param visibility formData string false "PRIVATE, AUTHED or LINK"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /media/upload [post]
func (h *MediaHandler) Upload(c *gin.Context) {
	identity := identityFromContext(c)
	if identity == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+multipartOverhead)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			response.Error(c, appErrors.ErrFileTooLarge)
			return
		}
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}

	req, err := uploadRequestFromForm(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close() //nolint:errcheck

	media, err := h.ingestor.UploadMedia(c.Request.Context(), req, service.UploadFile{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		Reader:   src,
	}, identity)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "status", media.Status)
	response.JSON(c, http.StatusCreated, media, nil, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get media detail
// @Tags Media
// @Produce json
// @Param id path string true "Media ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /media/{id} [get]
func (h *MediaHandler) Get(c *gin.Context) {
	media, err := h.catalog.Get(c.Request.Context(), c.Param("id"), identityFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, media, nil)
}

// Update godoc
// @Summary Edit media metadata
// @Tags Media
// @Accept json
// @Produce json
// @Param id path string true "Media ID"
// @Param payload body service.UpdateMediaRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /media/{id} [patch]
func (h *MediaHandler) Update(c *gin.Context) {
	var req service.UpdateMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid media payload"))
		return
	}
	media, err := h.catalog.UpdateMetadata(c.Request.Context(), c.Param("id"), req, identityFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, media, nil)
}

// Delete godoc
// @Summary Soft delete media
// @Tags Media
// @Param id path string true "Media ID"
// @Success 204
// @Router /media/{id} [delete]
func (h *MediaHandler) Delete(c *gin.Context) {
	if err := h.catalog.Delete(c.Request.Context(), c.Param("id"), identityFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ShareLink godoc
// @Summary Create an anonymous stream link
// @Description The media must have LINK visibility.
// @Tags Media
// @Produce json
// @Param id path string true "Media ID"
// @Success 200 {object} response.Envelope
// @Router /media/{id}/share-link [get]
func (h *MediaHandler) ShareLink(c *gin.Context) {
	link, err := h.catalog.ShareLink(c.Request.Context(), c.Param("id"), identityFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Export godoc
// @Summary Export the catalog
// @Description Admin only. Accepts the list filters.
// @Tags Media
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /media/export [get]
func (h *MediaHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	filter, err := parseMediaFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exporter.ExportCatalog(c.Request.Context(), filter, format, identityFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

// Sources godoc
// @Summary List configured media sources
// @Tags Media
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sources [get]
func (h *MediaHandler) Sources(c *gin.Context) {
	sources, err := h.sources.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sources, nil)
}

func uploadRequestFromForm(c *gin.Context) (service.UploadMediaRequest, error) {
	req := service.UploadMediaRequest{
		Kind:        models.MediaKind(strings.ToUpper(strings.TrimSpace(c.PostForm("kind")))),
		SourceKind:  models.SourceKind(strings.TrimSpace(c.PostForm("source_kind"))),
		Title:       formValue(c, "title"),
		Description: formValue(c, "description"),
		TapeNumber:  formValue(c, "tape_number"),
		Tags:        splitQueryList(c.PostFormArray("tags")),
		Visibility:  models.Visibility(strings.ToUpper(strings.TrimSpace(c.PostForm("visibility")))),
	}
	if raw := strings.TrimSpace(c.PostForm("captured_at")); raw != "" {
		capturedAt, err := parseQueryTime(raw, false)
		if err != nil {
			return req, appErrors.Clone(appErrors.ErrValidation, "captured_at must be RFC 3339 or YYYY-MM-DD")
		}
		req.CapturedAt = capturedAt
	}
	return req, nil
}

func formValue(c *gin.Context, key string) *string {
	value, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}
	return &value
}
