package repository

import "errors"

var (
	// ErrEventNotFound is returned when the referenced event id does not exist
	ErrEventNotFound = errors.New("event not found")
	// ErrDuplicateEvent is returned when an insert or update collides with an
	// existing row on the (title, date, location, organizer) business key
	ErrDuplicateEvent = errors.New("duplicate event")
)
