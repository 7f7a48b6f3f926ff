package command

import "errors"

var (
	// ErrUnknownKind is returned when a command kind is not one of the known kinds.
	ErrUnknownKind = errors.New("unknown command kind")

	// ErrInvalidIntensity is returned when intensity is outside the 0-100 range.
	ErrInvalidIntensity = errors.New("intensity must be between 0 and 100")
)
