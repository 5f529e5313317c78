package storage

import "errors"

var (
	// ErrNotFound is returned when no blob exists at a key.
	ErrNotFound = errors.New("blob not found")
	// ErrEmptyKey is returned for an empty key.
	ErrEmptyKey = errors.New("blob key is empty")
	// ErrInvalidKey is returned for absolute keys, backslashes, and "." or ".." segments.
	ErrInvalidKey = errors.New("blob key must be a relative slash-separated path")
)
