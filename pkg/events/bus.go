package events

import (
	"io"
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc"
)

// Handler receives events published on a Bus.
type Handler[T any] func(event T)

// Option configures a Bus.
type Option func(*options)

type options struct {
	logger *slog.Logger
	name   string
}

// WithLogger sets the logger used to report recovered handler panics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithName labels the bus in log records.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// Bus fans events out to subscribers. All methods are safe for concurrent use.
type Bus[T any] struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscription[T]
	nextID uint64
	closed bool
	wg     conc.WaitGroup
	logger *slog.Logger
	name   string
}

// NewBus creates an empty bus.
func NewBus[T any](opts ...Option) *Bus[T] {
	o := &options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		name:   "events",
	}
	for _, opt := range opts {
		opt(o)
	}

	return &Bus[T]{
		subs:   make(map[uint64]*subscription[T]),
		logger: o.logger,
		name:   o.name,
	}
}

// Subscribe registers fn and returns a function that removes it.
// Events still buffered for fn when unsubscribing are discarded.
// Subscribing to a closed bus returns a no-op unsubscribe.
func (b *Bus[T]) Subscribe(fn Handler[T]) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return func() {}
	}

	b.nextID++
	sub := newSubscription(b.nextID, fn)
	b.subs[sub.id] = sub
	b.wg.Go(func() { sub.run(b.deliver) })

	return func() {
		b.mu.Lock()
		delete(b.subs, sub.id)
		b.mu.Unlock()
		sub.stop(false)
	}
}

// Publish queues event for every current subscriber and returns immediately.
// Publishing on a closed bus is a no-op.
func (b *Bus[T]) Publish(event T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, sub := range b.subs {
		sub.push(event)
	}
}

// Len returns the number of active subscribers.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close delivers everything already published, stops all subscribers and
// waits for their goroutines. It must not be called from inside a handler.
// Close is idempotent.
func (b *Bus[T]) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*subscription[T], 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	clear(b.subs)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.stop(true)
	}
	b.wg.Wait()

	return nil
}

func (b *Bus[T]) deliver(fn Handler[T], event T) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				slog.String("bus", b.name),
				slog.Any("panic", r))
		}
	}()
	fn(event)
}
