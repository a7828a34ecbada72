// Package version provides domain types for DevSync versioning.
package version

import "errors"

// Domain errors for version operations.
var (
	// ErrInvalidFormat indicates a version string that does not match
	// MAJOR.MINOR.PATCH with an optional suffix.
	ErrInvalidFormat = errors.New("invalid version format")

	// ErrInvalidBumpKind indicates an unrecognized bump kind.
	ErrInvalidBumpKind = errors.New("invalid bump kind")

	// ErrInvalidBumpTransition indicates a bump that is not permitted
	// from the current version, such as a numeric bump on a pre-release.
	ErrInvalidBumpTransition = errors.New("invalid bump transition")
)
