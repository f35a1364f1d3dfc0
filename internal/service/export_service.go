package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/homereel/media-library/internal/models"
	appErrors "github.com/homereel/media-library/pkg/errors"
	"github.com/homereel/media-library/pkg/export"
)

const (
	exportPageSize = 1000
	exportMaxRows  = 50000
)

type mediaLister interface {
	List(ctx context.Context, filter models.MediaFilter) ([]models.Media, int, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered catalog export.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

// ExportService renders the media catalog as CSV or PDF.
type ExportService struct {
	media  mediaLister
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to
// the default exporters.
func NewExportService(media mediaLister, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{media: media, csv: csv, pdf: pdf, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// ExportCatalog renders every live record matching filter. Admin only.
func (s *ExportService) ExportCatalog(ctx context.Context, filter models.MediaFilter, format export.Format, actor *models.Identity) (*ExportFile, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can export the catalog")
	}

	filter.AllVisibility = true
	filter.Limit = exportPageSize
	filter.Offset = 0

	var items []models.Media
	for {
		page, total, err := s.media.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load media for export")
		}
		items = append(items, page...)
		if len(page) < filter.Limit || len(items) >= total {
			break
		}
		if len(items) >= exportMaxRows {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("export is limited to %d rows; narrow the filters", exportMaxRows))
		}
		filter.Offset += len(page)
	}

	dataset := catalogDataset(items)
	title := catalogTitle(filter)

	var (
		data []byte
		err  error
	)
	switch format {
	case export.FormatCSV:
		data, err = s.csv.Render(dataset)
	case export.FormatPDF:
		data, err = s.pdf.Render(dataset, title)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Info("catalog exported", zap.String("format", string(format)), zap.Int("rows", len(items)), zap.String("user_id", actor.UserID))
	return &ExportFile{
		Filename:    fmt.Sprintf("media_catalog_%s.%s", s.now().Format("20060102_150405"), format),
		ContentType: format.ContentType(),
		Data:        data,
		Rows:        len(items),
	}, nil
}

func catalogDataset(items []models.Media) export.Dataset {
	rows := make([][]string, 0, len(items))
	for _, m := range items {
		rows = append(rows, []string{
			m.ID,
			string(m.SourceKind),
			deref(m.TapeNumber),
			deref(m.Title),
			string(m.Kind),
			formatExportTime(m.CapturedAt),
			strconv.FormatInt(m.ByteSize, 10),
			string(m.Status),
			string(m.Visibility),
			m.UploadedBy,
			m.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{
		Headers: []string{"ID", "Source", "Tape", "Title", "Kind", "Captured At", "Bytes", "Status", "Visibility", "Uploaded By", "Created At"},
		Rows:    rows,
		Widths:  []float64{3.2, 1.8, 1, 3.5, 1, 2, 1.2, 1.3, 1.3, 2.2, 2},
	}
}

func catalogTitle(filter models.MediaFilter) string {
	switch {
	case filter.SourceKind == models.SourceVideotape:
		return "Video tape inventory"
	case filter.SourceKind != "":
		return fmt.Sprintf("Media catalog (%s)", filter.SourceKind)
	}
	return "Media catalog"
}

func formatExportTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
