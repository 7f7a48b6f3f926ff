package queue

import (
	"time"

	"github.com/dmitrymomot/hapticqueue/pkg/device"
)

// Config holds environment-driven queue settings.
type Config struct {
	SafetyMargin time.Duration `env:"QUEUE_SAFETY_MARGIN" envDefault:"200ms"`
	MaxRetries   int           `env:"QUEUE_MAX_RETRIES" envDefault:"3"`
	RetryBackoff time.Duration `env:"QUEUE_RETRY_BACKOFF" envDefault:"1s"`
	SendTimeout  time.Duration `env:"QUEUE_SEND_TIMEOUT" envDefault:"10s"`
	HistoryLimit int           `env:"QUEUE_HISTORY_LIMIT" envDefault:"1000"`
	MaxPending   int           `env:"QUEUE_MAX_PENDING" envDefault:"0"`
	UserRate     float64       `env:"QUEUE_USER_RATE" envDefault:"0"`
	UserBurst    int           `env:"QUEUE_USER_BURST" envDefault:"5"`
}

// NewFromConfig creates a Manager from Config. Extra options are applied
// after the config-derived ones and take precedence.
func NewFromConfig(sender device.Sender, cfg Config, opts ...Option) (*Manager, error) {
	base := []Option{
		WithSafetyMargin(cfg.SafetyMargin),
		WithMaxRetries(cfg.MaxRetries),
		WithRetryBackoff(cfg.RetryBackoff),
		WithSendTimeout(cfg.SendTimeout),
		WithHistoryLimit(cfg.HistoryLimit),
		WithMaxPending(cfg.MaxPending),
		WithUserRateLimit(cfg.UserRate, cfg.UserBurst),
	}
	return New(sender, append(base, opts...)...)
}
