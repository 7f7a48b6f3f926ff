package feed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/hapticqueue/pkg/logger"
)

var ErrChannelRequired = errors.New("redis channel is required")

// RedisRelay publishes feed events to a Redis channel and replays events
// published by other instances into a local sink. Each relay stamps its
// events with its own origin and skips them when they come back.
type RedisRelay struct {
	client  redis.UniversalClient
	channel string
	origin  string
	logger  *slog.Logger
}

// NewRedisRelay creates a relay on channel.
func NewRedisRelay(client redis.UniversalClient, channel string, log *slog.Logger) (*RedisRelay, error) {
	if channel == "" {
		return nil, ErrChannelRequired
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RedisRelay{
		client:  client,
		channel: channel,
		origin:  uuid.New().String(),
		logger:  log.With(logger.Component("feed.relay")),
	}, nil
}

// Origin returns the id this relay stamps on outgoing events.
func (r *RedisRelay) Origin() string {
	return r.origin
}

// Publish sends ev to the channel.
func (r *RedisRelay) Publish(ctx context.Context, ev Event) error {
	if ev.Origin == "" {
		ev.Origin = r.origin
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

// Run returns a function for errgroup that forwards events from other
// instances to local until ctx is done.
func (r *RedisRelay) Run(ctx context.Context, local Sink) func() error {
	return func() error {
		sub := r.client.Subscribe(ctx, r.channel)
		defer sub.Close()

		if _, err := sub.Receive(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-ch:
				if !ok {
					return nil
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					r.logger.Warn("dropping malformed feed event", logger.Error(err))
					continue
				}
				if ev.Origin == r.origin {
					continue
				}
				if err := local.Publish(ctx, ev); err != nil {
					r.logger.Warn("failed to deliver relayed event", logger.EventType(ev.Type), logger.Error(err))
				}
			}
		}
	}
}
