package service

import "errors"

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionClosed      = errors.New("session already completed")
	ErrNoStatusDefinition = errors.New("no status definition available")
	ErrUnknownStatus      = errors.New("unknown status definition")
	ErrInvalidQuantity    = errors.New("invalid quantity report")
	ErrJobItemNotFound    = errors.New("job item not found")
	ErrNoJobItem          = errors.New("session has no job item")
	ErrFetchFailed        = errors.New("FETCH_FAILED")

	errSkipReclaim = errors.New("session no longer idle")
)
