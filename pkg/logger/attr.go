package logger

import (
	"log/slog"
	"time"
)

// Attribute keys shared by every component, so log queries stay stable.
const (
	KeyError       = "error"
	KeyComponent   = "component"
	KeyQueueID     = "queue_id"
	KeyExecutionID = "execution_id"
	KeyDeviceID    = "device_id"
	KeyUserID      = "user_id"
	KeySource      = "source"
	KeyPattern     = "pattern"
	KeyPriority    = "priority"
	KeyStatus      = "status"
	KeyRetries     = "retry_count"
	KeyDuration    = "duration"
	KeyRequestID   = "request_id"
	KeyEventType   = "event_type"
	KeyEvent       = "event"
	KeyHandler     = "handler"
)

// optional drops empty identifiers: an empty Attr is ignored by slog handlers.
func optional(key, v string) slog.Attr {
	if v == "" {
		return slog.Attr{}
	}
	return slog.String(key, v)
}

// Error is empty for a nil err.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any(KeyError, err)
}

func Component(name string) slog.Attr { return slog.String(KeyComponent, name) }

func QueueID(id string) slog.Attr { return optional(KeyQueueID, id) }

func ExecutionID(id string) slog.Attr { return optional(KeyExecutionID, id) }

func DeviceID(id string) slog.Attr { return optional(KeyDeviceID, id) }

// UserID is empty for anonymous callers.
func UserID(id string) slog.Attr { return optional(KeyUserID, id) }

// Source is where a command came from: a gift, a chat command, a pattern.
func Source(source string) slog.Attr { return optional(KeySource, source) }

func Pattern(name string) slog.Attr { return slog.String(KeyPattern, name) }

func Priority(p int) slog.Attr { return slog.Int(KeyPriority, p) }

func Status(status any) slog.Attr { return slog.Any(KeyStatus, status) }

func RetryCount(n int) slog.Attr { return slog.Int(KeyRetries, n) }

func Duration(d time.Duration) slog.Attr { return slog.Duration(KeyDuration, d) }

func RequestID(id string) slog.Attr { return optional(KeyRequestID, id) }

func EventType(t string) slog.Attr { return slog.String(KeyEventType, t) }

func Event(name string) slog.Attr { return slog.String(KeyEvent, name) }

// Handler names the HTTP route or subscriber that produced the record.
func Handler(name string) slog.Attr { return slog.String(KeyHandler, name) }
