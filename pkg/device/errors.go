package device

import "errors"

var (
	// ErrUnsupportedKind is returned by Dispatch for commands without a matching sender method.
	ErrUnsupportedKind = errors.New("unsupported command kind")

	// ErrInvalidConfiguration is returned when the client configuration is incomplete.
	ErrInvalidConfiguration = errors.New("invalid device client configuration")

	// ErrRequestFailed is returned when the vendor API could not be reached.
	ErrRequestFailed = errors.New("device request failed")

	// ErrRejected is returned when the vendor API answered with a non-2xx status.
	ErrRejected = errors.New("device API rejected the operation")
)
