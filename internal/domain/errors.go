package domain

import "errors"

var (
	// ErrContentGone marks a post that no longer exists upstream (deleted or
	// taken down). The refresher reacts by removing its record, not retrying.
	ErrContentGone = errors.New("content gone")

	// ErrUnknownFeed is returned for feed requests naming an unpublished
	// algorithm.
	ErrUnknownFeed = errors.New("unknown feed")
)
