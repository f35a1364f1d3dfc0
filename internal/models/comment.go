package models

import "time"

// Comment is a user note attached to a media item.
type Comment struct {
	ID        string     `db:"id" json:"id"`
	MediaID   string     `db:"media_id" json:"media_id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Body      string     `db:"body" json:"body"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at" json:"-"`
}
