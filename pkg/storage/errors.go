package storage

import "errors"

// Storage errors returned by System implementations.
var (
	// ErrNotFound indicates the blob does not exist or was removed externally.
	ErrNotFound = errors.New("storage: blob not found")

	// ErrPermissionDenied indicates the backend refused access to the blob.
	ErrPermissionDenied = errors.New("storage: permission denied")

	// ErrInvalidID indicates the id is not a well-formed blob identifier.
	ErrInvalidID = errors.New("storage: invalid blob id")

	// ErrWrite wraps every failure of Put. Callers must not record a reference after it.
	ErrWrite = errors.New("storage: write failed")

	// ErrNotReady is returned when the backend is used before startup completes.
	ErrNotReady = errors.New("storage: not ready")
)
