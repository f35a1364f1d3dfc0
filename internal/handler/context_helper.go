package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/homereel/media-library/internal/middleware"
	"github.com/homereel/media-library/internal/models"
	appErrors "github.com/homereel/media-library/pkg/errors"
)

func identityFromContext(c *gin.Context) *models.Identity {
	return middleware.Identity(c)
}

// parseMediaFilter reads the catalog query parameters. Dates accept RFC 3339
// or a bare YYYY-MM-DD; a bare captured_to covers the whole day.
func parseMediaFilter(c *gin.Context) (models.MediaFilter, error) {
	filter := models.MediaFilter{
		SourceKind: models.SourceKind(strings.TrimSpace(c.Query("source_kind"))),
		TapeNumber: c.Query("tape_number"),
		Status:     models.MediaStatus(strings.ToUpper(strings.TrimSpace(c.Query("status")))),
		TagIDs:     splitQueryList(c.QueryArray("tag_ids")),
	}

	var err error
	if filter.CapturedFrom, err = parseQueryTime(c.Query("captured_from"), false); err != nil {
		return filter, appErrors.Clone(appErrors.ErrValidation, "captured_from must be RFC 3339 or YYYY-MM-DD")
	}
	if filter.CapturedTo, err = parseQueryTime(c.Query("captured_to"), true); err != nil {
		return filter, appErrors.Clone(appErrors.ErrValidation, "captured_to must be RFC 3339 or YYYY-MM-DD")
	}
	if filter.Limit, err = parseQueryInt(c.Query("limit")); err != nil {
		return filter, appErrors.Clone(appErrors.ErrValidation, "limit must be an integer")
	}
	if filter.Offset, err = parseQueryInt(c.Query("offset")); err != nil {
		return filter, appErrors.Clone(appErrors.ErrValidation, "offset must be an integer")
	}
	return filter, nil
}

func parseQueryTime(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		day = day.Add(24*time.Hour - time.Nanosecond)
	}
	return &day, nil
}

func parseQueryInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// splitQueryList accepts both repeated parameters and comma separated values.
func splitQueryList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
