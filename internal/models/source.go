package models

import "time"

// SourceKind enumerates where a media item originated.
type SourceKind string

const (
	SourceVideotape    SourceKind = "VIDEOTAPE"
	SourceICloud       SourceKind = "ICLOUD"
	SourceGooglePhotos SourceKind = "GOOGLE_PHOTOS"
	SourceGoogleDrive  SourceKind = "GOOGLE_DRIVE"
	SourceGuestUpload  SourceKind = "GUEST_UPLOAD"
	SourceUserUpload   SourceKind = "USER_UPLOAD"
)

// MediaSource is a persisted row of the seeded source catalog.
type MediaSource struct {
	ID        string     `db:"id" json:"id"`
	Kind      SourceKind `db:"kind" json:"kind"`
	Name      string     `db:"name" json:"name"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
