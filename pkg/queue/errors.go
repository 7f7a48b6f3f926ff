package queue

import "errors"

var (
	// ErrSenderNil is returned when a nil device sender is provided
	ErrSenderNil = errors.New("device sender cannot be nil")

	// ErrInvalidCommand is returned when a command has an unknown kind or invalid fields
	ErrInvalidCommand = errors.New("invalid command")

	// ErrInvalidPriority is returned when priority is outside the 1-10 range
	ErrInvalidPriority = errors.New("priority must be between 1 and 10")

	// ErrQueueFull is returned when the pending list reached its configured limit
	ErrQueueFull = errors.New("queue is full")

	// ErrRateLimited is returned when a user enqueues faster than allowed
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrStopped is returned when the manager no longer accepts work
	ErrStopped = errors.New("queue manager is stopped")

	// ErrItemNotFound is returned when no item with the given id exists
	ErrItemNotFound = errors.New("queue item not found")

	// ErrNotPending is returned when cancelling an item that already left the pending state
	ErrNotPending = errors.New("queue item is not pending")

	// ErrSafetyRejected marks items denied by the safety checker
	ErrSafetyRejected = errors.New("rejected by safety policy")

	// ErrSendFailed marks items whose sender kept failing after all retries
	ErrSendFailed = errors.New("failed to send command")
)
