// Package errors defines domain-level errors used throughout the application.
// Callers wrap these sentinels with fmt.Errorf("%w: ...") so that errors.Is
// checks keep working across package boundaries.
package errors

import (
	"errors"
)

var (
	// ErrInvalidRevision indicates that a string is not a valid git revision.
	// A revision must be exactly 40 hexadecimal characters (a sha1 hash).
	ErrInvalidRevision = errors.New("invalid git revision")

	// ErrRefNotFound indicates that a remote listing returned no entries for
	// the requested ref, which usually means the ref does not exist.
	ErrRefNotFound = errors.New("ref not found")

	// ErrRefMismatch indicates that a remote listing returned entries, but none
	// of them matched the requested ref exactly. git ls-remote matches refs
	// like a suffix glob, so this can happen when an unrelated ref merely ends
	// with the requested name.
	ErrRefMismatch = errors.New("no exact ref match")

	// ErrNoRelease indicates that no release tag satisfied the configured
	// filters (prefix, pre-release gate, upper bound).
	ErrNoRelease = errors.New("no matching release")

	// ErrVersionRegression indicates that a release pin resolved to a version
	// older than the previously recorded one. Updates must only ever move a
	// pin forward.
	ErrVersionRegression = errors.New("version monotonicity violated")

	// ErrLockLoadFailed indicates that the lockfile could not be read,
	// decoded or validated.
	ErrLockLoadFailed = errors.New("failed to load lockfile")

	// ErrPinNotFound indicates that the requested pin does not exist in the
	// lockfile.
	ErrPinNotFound = errors.New("pin not found")

	// ErrDuplicatePin indicates that a pin with the same name already exists
	// in the lockfile.
	ErrDuplicatePin = errors.New("duplicate pin")
)
