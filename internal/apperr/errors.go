// Package apperr holds the sentinel errors shared by the service and its shells.
package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid input")
	// ErrPersist marks a failed store write. The in-memory state stays authoritative.
	ErrPersist = errors.New("persist failed")
)
