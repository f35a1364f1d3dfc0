// Package source holds the per-origin validation and normalization rules
// applied to media drafts before they are persisted.
package source

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/homereel/media-library/internal/models"
	appErrors "github.com/homereel/media-library/pkg/errors"
)

// Field limits shared by every source.
const (
	MaxTapeNumberLength = 32
	MaxTitleLength      = 255
	MaxTagLength        = 64
	MaxSourceRefLength  = 255
)

// TapeRule states how a source treats the tape number field.
type TapeRule int

const (
	TapeForbidden TapeRule = iota
	TapeRequired
)

// Draft is a media record before persistence. Ingestion builds one from the
// request and hands it to the policy of its source.
type Draft struct {
	Kind        models.MediaKind
	SourceKind  models.SourceKind
	Title       *string
	Description *string
	TapeNumber  *string
	SourceRef   *string
	Tags        []string
	CapturedAt  *time.Time
	Visibility  models.Visibility
}

// Policy is the validation, normalization and hydration rule set for one
// source kind.
type Policy struct {
	Kind        models.SourceKind
	DisplayName string
	Tape        TapeRule
}

var kinds = [...]models.SourceKind{
	models.SourceVideotape,
	models.SourceICloud,
	models.SourceGooglePhotos,
	models.SourceGoogleDrive,
	models.SourceGuestUpload,
	models.SourceUserUpload,
}

var policyTable = [...]Policy{
	{Kind: models.SourceVideotape, DisplayName: "Video Tapes", Tape: TapeRequired},
	{Kind: models.SourceICloud, DisplayName: "iCloud", Tape: TapeForbidden},
	{Kind: models.SourceGooglePhotos, DisplayName: "Google Photos", Tape: TapeForbidden},
	{Kind: models.SourceGoogleDrive, DisplayName: "Google Drive", Tape: TapeForbidden},
	{Kind: models.SourceGuestUpload, DisplayName: "Guest Uploads", Tape: TapeForbidden},
	{Kind: models.SourceUserUpload, DisplayName: "User Uploads", Tape: TapeForbidden},
}

// Adding a kind without a policy (or the reverse) fails to compile.
var _ = [1]struct{}{}[len(policyTable)-len(kinds)]

var registry = func() map[models.SourceKind]Policy {
	m := make(map[models.SourceKind]Policy, len(policyTable))
	for _, p := range policyTable {
		m[p.Kind] = p
	}
	for _, k := range kinds {
		if _, ok := m[k]; !ok {
			panic(fmt.Sprintf("source: no policy for kind %s", k))
		}
	}
	return m
}()

// Lookup returns the policy for kind.
func Lookup(kind models.SourceKind) (Policy, error) {
	p, ok := registry[models.SourceKind(strings.ToUpper(strings.TrimSpace(string(kind))))]
	if !ok {
		return Policy{}, appErrors.Clone(appErrors.ErrUnknownSourceKind, fmt.Sprintf("unknown source kind %q", kind))
	}
	return p, nil
}

// Kinds lists every known source kind in catalog order.
func Kinds() []models.SourceKind {
	out := make([]models.SourceKind, len(kinds))
	copy(out, kinds[:])
	return out
}

// Policies lists every policy in catalog order.
func Policies() []Policy {
	out := make([]Policy, len(policyTable))
	copy(out, policyTable[:])
	return out
}

// Normalize returns a canonical copy of d. It trims text fields, turns blanks
// into nil, lower-cases tags and collapses repeats while keeping first-seen
// order. Applying it twice yields the same draft.
func (p Policy) Normalize(d Draft) Draft {
	out := d
	out.SourceKind = p.Kind
	out.Kind = models.MediaKind(strings.ToUpper(strings.TrimSpace(string(d.Kind))))
	out.Title = trimOrNil(d.Title)
	out.Description = trimOrNil(d.Description)
	out.TapeNumber = trimOrNil(d.TapeNumber)
	out.SourceRef = trimOrNil(d.SourceRef)
	out.Visibility = models.Visibility(strings.ToUpper(strings.TrimSpace(string(d.Visibility))))
	if out.Visibility == "" {
		out.Visibility = models.VisibilityAuthed
	}
	out.Tags = NormalizeTags(d.Tags)
	return out
}

// Validate checks a normalized draft against the common rules and the tape
// rule of p. It has no side effects.
func (p Policy) Validate(d Draft) error {
	var problems []string

	if !d.Kind.Valid() {
		problems = append(problems, "kind must be PHOTO or VIDEO")
	}
	if !d.Visibility.Valid() {
		problems = append(problems, "visibility must be PRIVATE, LINK or AUTHED")
	}
	if d.Title != nil && utf8.RuneCountInString(*d.Title) > MaxTitleLength {
		problems = append(problems, fmt.Sprintf("title must be at most %d characters", MaxTitleLength))
	}
	if d.SourceRef != nil && utf8.RuneCountInString(*d.SourceRef) > MaxSourceRefLength {
		problems = append(problems, fmt.Sprintf("source_ref must be at most %d characters", MaxSourceRefLength))
	}
	for _, tag := range d.Tags {
		if utf8.RuneCountInString(tag) > MaxTagLength {
			problems = append(problems, fmt.Sprintf("tag %q must be at most %d characters", tag, MaxTagLength))
		}
	}

	switch p.Tape {
	case TapeRequired:
		switch {
		case d.TapeNumber == nil || strings.TrimSpace(*d.TapeNumber) == "":
			problems = append(problems, fmt.Sprintf("tape_number is required for %s", p.Kind))
		case utf8.RuneCountInString(*d.TapeNumber) > MaxTapeNumberLength:
			problems = append(problems, fmt.Sprintf("tape_number must be at most %d characters", MaxTapeNumberLength))
		}
	case TapeForbidden:
		if d.TapeNumber != nil {
			problems = append(problems, fmt.Sprintf("tape_number is not allowed for %s", p.Kind))
		}
	}

	if len(problems) > 0 {
		return appErrors.Clone(appErrors.ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// Hydrate fills metadata the source can derive on its own. originalFilename
// is empty for metadata-only records.
func (p Policy) Hydrate(d Draft, originalFilename string) Draft {
	out := d
	name := strings.TrimSpace(filepath.Base(originalFilename))
	if name == "." || name == string(filepath.Separator) {
		name = ""
	}
	if out.Title == nil && name != "" {
		stem := strings.TrimSpace(strings.TrimSuffix(name, filepath.Ext(name)))
		if stem != "" {
			out.Title = &stem
		}
	}
	if out.SourceRef == nil && name != "" {
		ref := name
		out.SourceRef = &ref
	}
	if p.Tape == TapeRequired && out.Title == nil && out.TapeNumber != nil {
		title := "Tape " + *out.TapeNumber
		out.Title = &title
	}
	return out
}

// NormalizeTag trims and lower-cases a single tag name.
func NormalizeTag(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeTags normalizes each name, drops blanks and keeps the first
// occurrence of repeats.
func NormalizeTags(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, raw := range names {
		name := NormalizeTag(raw)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func trimOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
