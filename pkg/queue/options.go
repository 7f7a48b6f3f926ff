package queue

import (
	"io"
	"log/slog"
	"maps"
	"time"

	"golang.org/x/time/rate"

	"github.com/dmitrymomot/hapticqueue/pkg/safety"
)

const (
	DefaultSafetyMargin = 200 * time.Millisecond
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = time.Second
	DefaultSendTimeout  = 10 * time.Second
	DefaultHistoryLimit = 1000
)

type options struct {
	checker      safety.Checker
	margin       time.Duration
	maxRetries   int
	retryBackoff time.Duration
	sendTimeout  time.Duration
	historyLimit int
	maxPending   int
	userRate     rate.Limit
	userBurst    int
	logger       *slog.Logger
}

func defaultOptions() options {
	return options{
		checker:      safety.AllowAll,
		margin:       DefaultSafetyMargin,
		maxRetries:   DefaultMaxRetries,
		retryBackoff: DefaultRetryBackoff,
		sendTimeout:  DefaultSendTimeout,
		historyLimit: DefaultHistoryLimit,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Option configures a Manager.
type Option func(*options)

// WithSafetyChecker sets the checker consulted before every send.
// Defaults to safety.AllowAll.
func WithSafetyChecker(c safety.Checker) Option {
	return func(o *options) {
		if c != nil {
			o.checker = c
		}
	}
}

// WithSafetyMargin sets the extra wait added after a command's own duration.
func WithSafetyMargin(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.margin = d
		}
	}
}

// WithMaxRetries sets how many times a failed send is retried after the first attempt.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithRetryBackoff sets the constant delay between send attempts.
func WithRetryBackoff(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.retryBackoff = d
		}
	}
}

// WithSendTimeout bounds a single send attempt.
func WithSendTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.sendTimeout = d
		}
	}
}

// WithHistoryLimit sets how many terminal items are retained for queries.
func WithHistoryLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.historyLimit = n
		}
	}
}

// WithMaxPending caps the pending list. Zero means unbounded.
func WithMaxPending(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxPending = n
		}
	}
}

// WithUserRateLimit limits how fast a single user may enqueue commands.
// A non-positive rate disables the limit.
func WithUserRateLimit(perSecond float64, burst int) Option {
	return func(o *options) {
		if perSecond <= 0 {
			o.userRate = 0
			return
		}
		o.userRate = rate.Limit(perSecond)
		o.userBurst = max(burst, 1)
	}
}

// WithLogger sets the logger. Defaults to a discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

type enqueueOptions struct {
	priority    Priority
	metadata    map[string]any
	correlation Correlation
}

// EnqueueOption configures a single Enqueue call.
type EnqueueOption func(*enqueueOptions)

// WithPriority sets the item priority (1-10). Defaults to PriorityDefault.
func WithPriority(p Priority) EnqueueOption {
	return func(o *enqueueOptions) {
		o.priority = p
	}
}

// WithMetadata attaches free-form metadata to the item. The map is copied.
func WithMetadata(m map[string]any) EnqueueOption {
	return func(o *enqueueOptions) {
		o.metadata = maps.Clone(m)
	}
}

// WithCorrelation tags the item with the pattern execution step it belongs to.
func WithCorrelation(c Correlation) EnqueueOption {
	return func(o *enqueueOptions) {
		o.correlation = c
	}
}
