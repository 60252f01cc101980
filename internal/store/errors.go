package store

import "errors"

var (
	// ErrNotFound is returned by mutations that target a row that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned when a status change is not allowed
	// from the row's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConflict is returned when a unique constraint rejects a write.
	ErrConflict = errors.New("conflict")
	// ErrInsufficientPoints is returned when a debit would take a balance below zero.
	ErrInsufficientPoints = errors.New("insufficient points")
)

type scanner interface{ Scan(...any) error }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
