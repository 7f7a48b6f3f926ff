package queue_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hapticqueue/pkg/command"
	"github.com/dmitrymomot/hapticqueue/pkg/queue"
)

type sentCall struct {
	kind      command.Kind
	deviceID  string
	intensity int
	duration  time.Duration
	at        time.Time
}

// fakeSender records every call and optionally fails or blocks.
type fakeSender struct {
	mu       sync.Mutex
	calls    []sentCall
	fail     func(n int) error
	hold     time.Duration
	inflight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeSender) record(ctx context.Context, kind command.Kind, deviceID string, intensity int, d time.Duration) error {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, sentCall{kind: kind, deviceID: deviceID, intensity: intensity, duration: d, at: time.Now()})
	count := len(f.calls)
	fail := f.fail
	f.mu.Unlock()

	if f.hold > 0 {
		select {
		case <-time.After(f.hold):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if fail != nil {
		return fail(count)
	}
	return nil
}

func (f *fakeSender) Shock(ctx context.Context, deviceID string, intensity int, d time.Duration) error {
	return f.record(ctx, command.KindShock, deviceID, intensity, d)
}

func (f *fakeSender) Vibrate(ctx context.Context, deviceID string, intensity int, d time.Duration) error {
	return f.record(ctx, command.KindVibrate, deviceID, intensity, d)
}

func (f *fakeSender) Sound(ctx context.Context, deviceID string, intensity int, d time.Duration) error {
	return f.record(ctx, command.KindSound, deviceID, intensity, d)
}

func (f *fakeSender) Calls() []sentCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentCall(nil), f.calls...)
}

// collector gathers completion events.
type collector struct {
	mu    sync.Mutex
	items []queue.Completion
}

func collect(m *queue.Manager) *collector {
	c := &collector{}
	m.Subscribe(func(ev queue.Completion) {
		c.mu.Lock()
		c.items = append(c.items, ev)
		c.mu.Unlock()
	})
	return c
}

func (c *collector) All() []queue.Completion {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]queue.Completion(nil), c.items...)
}

func (c *collector) waitFor(t *testing.T, n int) []queue.Completion {
	t.Helper()
	require.Eventually(t, func() bool { return len(c.All()) >= n }, 5*time.Second, 5*time.Millisecond)
	return c.All()
}

func newManager(t *testing.T, s *fakeSender, opts ...queue.Option) *queue.Manager {
	t.Helper()
	base := []queue.Option{
		queue.WithSafetyMargin(0),
		queue.WithRetryBackoff(time.Millisecond),
	}
	m, err := queue.New(s, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.StopProcessing(ctx)
	})
	return m
}

func vibrate(t *testing.T, deviceID string, durationMs int) command.Command {
	t.Helper()
	cmd, err := command.New("vibrate", deviceID, 30, durationMs)
	require.NoError(t, err)
	return cmd
}
