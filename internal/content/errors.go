package content

import (
	"errors"
	"fmt"
)

var (
	ErrContentNotFound       = errors.New("content not found")
	ErrGlobalContentNotFound = errors.New("global content not found")
	ErrPageNotFound          = errors.New("page not found")
	ErrVersionNotFound       = errors.New("content version not found")
	ErrVersioningUnsupported = errors.New("content backend does not keep versions")
	ErrArchiveUnavailable    = errors.New("snapshot archive is not configured")

	// ErrInvalidContentData means neither global nor pages were supplied.
	ErrInvalidContentData = errors.New("invalid content data: expected global and/or pages")
	// ErrCircularReference means the update payload could not be serialized.
	ErrCircularReference = errors.New("content data contains circular references")
	// ErrInvalidContentWrite means a flat-file write failed its round-trip check.
	// The previously persisted file is left intact.
	ErrInvalidContentWrite = errors.New("invalid content write")
	// ErrMalformedContent means the persisted content could not be parsed.
	ErrMalformedContent = errors.New("malformed content")
	// ErrInvalidContent is returned when a document or page fails validation.
	ErrInvalidContent = errors.New("invalid content")
)

// PageNotFoundError reports a slug lookup miss. It matches ErrPageNotFound.
type PageNotFoundError struct {
	Slug string
}

func (e *PageNotFoundError) Error() string {
	return fmt.Sprintf("page not found: %q", e.Slug)
}

func (e *PageNotFoundError) Is(target error) bool {
	return target == ErrPageNotFound
}
