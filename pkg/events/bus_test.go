package events_test

import (
	"bytes"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hapticqueue/pkg/events"
)

type recorder struct {
	mu     sync.Mutex
	events []int
}

func (r *recorder) handle(v int) {
	r.mu.Lock()
	r.events = append(r.events, v)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.events...)
}

func TestBus_DeliversInOrder(t *testing.T) {
	t.Parallel()

	bus := events.NewBus[int]()
	rec := &recorder{}
	bus.Subscribe(rec.handle)

	for i := range 1000 {
		bus.Publish(i)
	}
	require.NoError(t, bus.Close())

	got := rec.snapshot()
	require.Len(t, got, 1000)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	t.Parallel()

	bus := events.NewBus[int]()
	first, second := &recorder{}, &recorder{}
	bus.Subscribe(first.handle)
	bus.Subscribe(second.handle)
	assert.Equal(t, 2, bus.Len())

	bus.Publish(1)
	bus.Publish(2)
	require.NoError(t, bus.Close())

	assert.Equal(t, []int{1, 2}, first.snapshot())
	assert.Equal(t, []int{1, 2}, second.snapshot())
}

func TestBus_SlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	t.Parallel()

	bus := events.NewBus[int]()
	release := make(chan struct{})
	var delivered atomic.Int32
	bus.Subscribe(func(int) {
		<-release
		delivered.Add(1)
	})

	start := time.Now()
	for i := range 100 {
		bus.Publish(i)
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	close(release)
	require.NoError(t, bus.Close())
	assert.Equal(t, int32(100), delivered.Load())
}

func TestBus_Unsubscribe(t *testing.T) {
	t.Parallel()

	bus := events.NewBus[int]()
	defer bus.Close()

	rec := &recorder{}
	unsubscribe := bus.Subscribe(rec.handle)

	bus.Publish(1)
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	unsubscribe()
	assert.Equal(t, 0, bus.Len())

	bus.Publish(2)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, []int{1}, rec.snapshot())

	// Calling it twice is harmless.
	unsubscribe()
}

func TestBus_HandlerMayPublish(t *testing.T) {
	t.Parallel()

	bus := events.NewBus[int]()
	defer bus.Close()

	rec := &recorder{}
	bus.Subscribe(func(v int) {
		rec.handle(v)
		if v < 3 {
			bus.Publish(v + 1)
		}
	})

	bus.Publish(0)
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 4 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{0, 1, 2, 3}, rec.snapshot())
}

func TestBus_RecoversHandlerPanic(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	var mu sync.Mutex
	logger := slog.New(slog.NewTextHandler(&lockedWriter{w: &buf, mu: &mu}, nil))

	bus := events.NewBus[int](events.WithLogger(logger), events.WithName("test"))
	rec := &recorder{}
	bus.Subscribe(func(v int) {
		if v == 1 {
			panic("boom")
		}
		rec.handle(v)
	})

	bus.Publish(1)
	bus.Publish(2)
	require.NoError(t, bus.Close())

	assert.Equal(t, []int{2}, rec.snapshot())
	mu.Lock()
	assert.Contains(t, buf.String(), "event handler panicked")
	mu.Unlock()
}

func TestBus_Closed(t *testing.T) {
	t.Parallel()

	bus := events.NewBus[int]()
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	rec := &recorder{}
	unsubscribe := bus.Subscribe(rec.handle)
	unsubscribe()

	bus.Publish(1)
	assert.Empty(t, rec.snapshot())
	assert.Equal(t, 0, bus.Len())
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
