package pattern

import (
	"io"
	"log/slog"
	"maps"
	"time"

	"github.com/dmitrymomot/hapticqueue/pkg/queue"
)

const (
	DefaultRetention       = 5 * time.Minute
	DefaultCleanupInterval = time.Minute
	DefaultMaxRepeat       = 100
)

type executorOptions struct {
	logger          *slog.Logger
	retention       time.Duration
	cleanupInterval time.Duration
	maxRepeat       int
	priority        queue.Priority
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*executorOptions)

// WithExecutorLogger sets the logger. Defaults to a discard logger.
func WithExecutorLogger(l *slog.Logger) ExecutorOption {
	return func(o *executorOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRetention sets how long finished executions stay queryable when the janitor runs.
func WithRetention(d time.Duration) ExecutorOption {
	return func(o *executorOptions) {
		if d > 0 {
			o.retention = d
		}
	}
}

// WithCleanupInterval sets how often Run evicts old executions.
func WithCleanupInterval(d time.Duration) ExecutorOption {
	return func(o *executorOptions) {
		if d > 0 {
			o.cleanupInterval = d
		}
	}
}

// WithMaxRepeat caps the repeat count accepted by Execute.
func WithMaxRepeat(n int) ExecutorOption {
	return func(o *executorOptions) {
		if n > 0 {
			o.maxRepeat = n
		}
	}
}

// WithStepPriority sets the default queue priority of pattern steps.
func WithStepPriority(p queue.Priority) ExecutorOption {
	return func(o *executorOptions) {
		if p.Valid() {
			o.priority = p
		}
	}
}

type executeOptions struct {
	repeat   int
	context  map[string]any
	priority queue.Priority
}

// ExecuteOption configures a single Execute call.
type ExecuteOption func(*executeOptions)

// WithRepeat sets how many full passes to perform. Values below 1 mean 1.
func WithRepeat(n int) ExecuteOption {
	return func(o *executeOptions) {
		o.repeat = n
	}
}

// WithContext attaches free-form data (username, gift name) to the execution
// and to the metadata of every queued step. The map is copied.
func WithContext(m map[string]any) ExecuteOption {
	return func(o *executeOptions) {
		o.context = maps.Clone(m)
	}
}

// WithPriority overrides the queue priority for this execution's steps.
func WithPriority(p queue.Priority) ExecuteOption {
	return func(o *executeOptions) {
		o.priority = p
	}
}

func defaultExecutorOptions() executorOptions {
	return executorOptions{
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		retention:       DefaultRetention,
		cleanupInterval: DefaultCleanupInterval,
		maxRepeat:       DefaultMaxRepeat,
		priority:        queue.PriorityDefault,
	}
}
