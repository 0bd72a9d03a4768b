package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Configuration errors, fatal before any row is read or written
	ErrInvalidTimeZone     = errors.New("invalid time zone")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNoColumnsResolvable = errors.New("no columns resolvable")

	// Value errors
	ErrInvalidDate = errors.New("invalid date")

	// Propagated failures
	ErrHandlerFailure = errors.New("row handler failed")
	ErrSinkFailure    = errors.New("row sink failed")

	// Sequence errors
	ErrSequenceConsumed = errors.New("row sequence already consumed")
	ErrSheetNotFound    = errors.New("sheet not found")
)

// Error constructors with context
func NewInvalidTimeZoneError(zone string, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidTimeZone, zone, cause)
	}
	return fmt.Errorf("%w: %q", ErrInvalidTimeZone, zone)
}

func NewInvalidDateError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidDate, reason)
}

func NewInvalidArgumentError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidArgument, field, reason)
}

func NewHandlerError(window int, err error) error {
	return fmt.Errorf("%w in window %d: %w", ErrHandlerFailure, window, err)
}

func NewSinkError(op string, err error) error {
	return fmt.Errorf("%w during %s: %w", ErrSinkFailure, op, err)
}

func NewSheetNotFoundError(sheet string) error {
	return fmt.Errorf("%w: %s", ErrSheetNotFound, sheet)
}

// Error checking helpers
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidTimeZone) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrNoColumnsResolvable)
}

func IsPropagatedError(err error) bool {
	return errors.Is(err, ErrHandlerFailure) ||
		errors.Is(err, ErrSinkFailure)
}
