package domain

import "errors"

var (
	// ErrInvalidEntityID is returned when a serialized composite id cannot be parsed
	ErrInvalidEntityID = errors.New("invalid entity id")

	// ErrUnknownFilterField is returned when a filter references a field that
	// is not on the entity's allow-list
	ErrUnknownFilterField = errors.New("unknown filter field")

	// ErrUnknownSortField is returned when a sort references a field that is
	// not sortable for the entity
	ErrUnknownSortField = errors.New("unknown sort field")

	// ErrSearchUnavailable is returned when the full-text search collaborator
	// cannot be reached; the filtered query fails rather than silently
	// returning an unfiltered result set
	ErrSearchUnavailable = errors.New("search unavailable")

	// ErrCollectionNotFound is returned when a collection is not found
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrIterationNotFound is returned when an iteration is not found
	ErrIterationNotFound = errors.New("iteration not found")

	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = errors.New("user not found")
)
