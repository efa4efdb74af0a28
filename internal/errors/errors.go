// Package errors defines the domain error taxonomy and centralizes
// mapping of repo/infra errors onto HTTP responses, keeping the service
// layer free of transport concerns.
package errors

import (
	"errors"
	"fmt"
)

// Domain sentinels. Services wrap these with context via %w so handlers
// can classify with errors.Is.
var (
	// ErrNotFound marks a referenced user/profile that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrProfileIncomplete marks a requester whose profile lacks the
	// verified attributes required for scoring.
	ErrProfileIncomplete = errors.New("profile incomplete")

	// ErrDuplicateDecision marks a like/pass that already exists for
	// the (sender, receiver) pair.
	ErrDuplicateDecision = errors.New("decision already exists")

	// ErrInvalidArgument marks malformed caller input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrStorage marks a persistence failure. Requests fail as a whole
	// rather than returning partial state.
	ErrStorage = errors.New("storage failure")
)

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// InvalidArgumentf wraps ErrInvalidArgument with a formatted message.
func InvalidArgumentf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidArgument)...)
}

// Storagef wraps a persistence error with ErrStorage so it is
// classified as fatal for the request.
func Storagef(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, ErrStorage)
}
