package store

import "errors"

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("already exists")
	// ErrConcurrentUpdate is returned when a compare-and-set status
	// transition matched no row, i.e. another worker got there first.
	ErrConcurrentUpdate = errors.New("document status changed concurrently")
)
