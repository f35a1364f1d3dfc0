package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Sentinels returned when a write races past a service pre-check and hits a
// partial unique index instead.
var (
	ErrContentHashTaken = errors.New("content hash already used by an active media item")
	ErrTapeNumberTaken  = errors.New("tape number already used by an active media item")
)

const (
	uniqueViolation = "23505"

	contentHashIndex = "media_content_hash_active_key"
	tapeNumberIndex  = "media_tape_number_active_key"
)

// translateUniqueViolation maps unique index failures on media to sentinels
// and returns any other error unchanged.
func translateUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != uniqueViolation {
		return err
	}
	switch pqErr.Constraint {
	case contentHashIndex:
		return ErrContentHashTaken
	case tapeNumberIndex:
		return ErrTapeNumberTaken
	}
	return err
}
