package redis

import "errors"

var (
	ErrEmptyConnectionURL = errors.New("redis: connection URL is empty")
	ErrInvalidURL         = errors.New("redis: invalid connection URL")
	ErrNotReady           = errors.New("redis: server did not answer ping before the deadline")
	ErrUnhealthy          = errors.New("redis: ping failed")
)
