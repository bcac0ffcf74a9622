// Package apperr defines sentinel errors shared across the application layers.
package apperr

import "errors"

var (
	// ErrNotFound signals a missing history entry or stored document.
	ErrNotFound = errors.New("not found")

	// ErrNoDocument signals an operation that requires an open document.
	ErrNoDocument = errors.New("no document open")

	// ErrPageOutOfRange signals a page number outside 1..pageCount.
	ErrPageOutOfRange = errors.New("page out of range")

	// ErrBlankMessage signals a chat submission with no content.
	ErrBlankMessage = errors.New("message is blank")
)
