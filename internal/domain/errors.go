package domain

import "errors"

var (
	// ErrQueueNotFound indicates the named queue does not exist.
	ErrQueueNotFound = errors.New("queue not found")

	// ErrTableNotFound indicates the named table does not exist.
	ErrTableNotFound = errors.New("table not found")

	// ErrItemNotFound indicates no item exists for the given key.
	ErrItemNotFound = errors.New("item not found")
)
