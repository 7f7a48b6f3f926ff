package pattern

import "errors"

var (
	ErrEmptyPattern      = errors.New("pattern has no steps")
	ErrQueueRequired     = errors.New("queue is required")
	ErrInvalidStep       = errors.New("invalid pattern step")
	ErrDeviceRequired    = errors.New("device id is required")
	ErrRepeatTooLarge    = errors.New("repeat count exceeds limit")
	ErrExecutionNotFound = errors.New("execution not found")
	ErrNotRunning        = errors.New("execution is not running")
	ErrEnqueueRejected   = errors.New("step rejected by queue")
	ErrExecutorClosed    = errors.New("executor is closed")
	ErrPatternNotFound   = errors.New("pattern not found")
	ErrNameRequired      = errors.New("pattern name is required")
)
