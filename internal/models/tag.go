package models

import "time"

// Tag is a shared, lower-cased label.
type Tag struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MediaTag associates a tag with a media item and records who attached it.
type MediaTag struct {
	MediaID   string    `db:"media_id" json:"media_id"`
	TagID     string    `db:"tag_id" json:"tag_id"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MediaTagView is a tag as seen on one media item.
type MediaTagView struct {
	TagID     string    `db:"tag_id" json:"tag_id"`
	Name      string    `db:"name" json:"name"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
