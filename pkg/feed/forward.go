package feed

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/dmitrymomot/hapticqueue/pkg/logger"
	"github.com/dmitrymomot/hapticqueue/pkg/pattern"
	"github.com/dmitrymomot/hapticqueue/pkg/queue"
)

// publishTimeout bounds a single sink write so a stuck sink can not stall event delivery.
const publishTimeout = 2 * time.Second

// CompletionSource is satisfied by *queue.Manager.
type CompletionSource interface {
	Subscribe(fn func(queue.Completion)) (unsubscribe func())
}

// ExecutionSource is satisfied by *pattern.Executor.
type ExecutionSource interface {
	Subscribe(fn func(pattern.Event)) (unsubscribe func())
}

// Forward publishes every queue completion and execution event to sinks.
// Either source may be nil. The returned function detaches both.
func Forward(q CompletionSource, ex ExecutionSource, log *slog.Logger, sinks ...Sink) (stop func()) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	log = log.With(logger.Component("feed"))

	send := func(ev Event, err error) {
		if err != nil {
			log.Error("failed to encode feed event", logger.Error(err))
			return
		}
		for _, s := range sinks {
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			if err := s.Publish(ctx, ev); err != nil {
				log.Warn("feed sink rejected event", logger.EventType(ev.Type), logger.Error(err))
			}
			cancel()
		}
	}

	var stops []func()
	if q != nil {
		stops = append(stops, q.Subscribe(func(c queue.Completion) { send(FromCompletion(c)) }))
	}
	if ex != nil {
		stops = append(stops, ex.Subscribe(func(e pattern.Event) { send(FromExecution(e)) }))
	}
	return func() {
		for _, s := range stops {
			s()
		}
	}
}
