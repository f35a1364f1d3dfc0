package models

import "time"

// MediaKind distinguishes photos from videos.
type MediaKind string

const (
	MediaKindPhoto MediaKind = "PHOTO"
	MediaKindVideo MediaKind = "VIDEO"
)

// Valid reports whether the kind is known.
func (k MediaKind) Valid() bool {
	return k == MediaKindPhoto || k == MediaKindVideo
}

// Visibility controls who may view a media item.
type Visibility string

const (
	VisibilityPrivate Visibility = "PRIVATE"
	VisibilityLink    Visibility = "LINK"
	VisibilityAuthed  Visibility = "AUTHED"
)

// Valid reports whether the visibility is known.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityLink, VisibilityAuthed:
		return true
	}
	return false
}

// MediaStatus tracks the lifecycle of an ingested item.
type MediaStatus string

const (
	MediaStatusReady      MediaStatus = "READY"
	MediaStatusProcessing MediaStatus = "PROCESSING"
	MediaStatusFailed     MediaStatus = "FAILED"
)

// Media is one ingested photo or video.
type Media struct {
	ID          string      `db:"id" json:"id"`
	Kind        MediaKind   `db:"kind" json:"kind"`
	Title       *string     `db:"title" json:"title,omitempty"`
	Description *string     `db:"description" json:"description,omitempty"`
	StoragePath *string     `db:"storage_path" json:"-"`
	Filename    *string     `db:"filename" json:"filename,omitempty"`
	Ext         *string     `db:"ext" json:"ext,omitempty"`
	MimeType    *string     `db:"mime_type" json:"mime_type,omitempty"`
	ByteSize    int64       `db:"byte_size" json:"byte_size"`
	ContentHash string      `db:"content_hash" json:"content_hash"`
	DurationSec *int        `db:"duration_sec" json:"duration_sec,omitempty"`
	Width       *int        `db:"width" json:"width,omitempty"`
	Height      *int        `db:"height" json:"height,omitempty"`
	CapturedAt  *time.Time  `db:"captured_at" json:"captured_at,omitempty"`
	UploadedBy  string      `db:"uploaded_by" json:"uploaded_by"`
	SourceID    string      `db:"source_id" json:"source_id"`
	SourceKind  SourceKind  `db:"source_kind" json:"source_kind"`
	TapeNumber  *string     `db:"tape_number" json:"tape_number,omitempty"`
	SourceRef   *string     `db:"source_ref" json:"source_ref,omitempty"`
	Visibility  Visibility  `db:"visibility" json:"visibility"`
	Status      MediaStatus `db:"status" json:"status"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
	DeletedAt   *time.Time  `db:"deleted_at" json:"deleted_at,omitempty"`
}

// MediaAccessState is the slice of a live row that decides who may read it.
type MediaAccessState struct {
	Visibility Visibility  `db:"visibility"`
	UploadedBy string      `db:"uploaded_by"`
	Status     MediaStatus `db:"status"`
}

// Matches reports whether m still carries the access fields of the row.
func (a MediaAccessState) Matches(m *Media) bool {
	return m != nil && m.Visibility == a.Visibility && m.UploadedBy == a.UploadedBy && m.Status == a.Status
}

// HasFile reports whether the record points at stored bytes.
func (m *Media) HasFile() bool {
	return m != nil && m.StoragePath != nil && *m.StoragePath != ""
}

// MediaFilter narrows catalog listings.
type MediaFilter struct {
	CapturedFrom *time.Time
	CapturedTo   *time.Time
	TagIDs       []string
	SourceKind   SourceKind
	TapeNumber   string
	Status       MediaStatus
	// UploadedBy restricts the listing to one owner.
	UploadedBy string
	// ViewerID limits PRIVATE rows to this owner. Empty means no PRIVATE rows.
	ViewerID string
	// AllVisibility disables visibility filtering (admins).
	AllVisibility bool
	Limit         int
	Offset        int
}

// MediaDetail is the read model returned by the catalog.
type MediaDetail struct {
	Media
	Tags         []string `json:"tags"`
	CommentCount int      `json:"comment_count"`
}
