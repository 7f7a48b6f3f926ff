package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hapticqueue/pkg/command"
	"github.com/dmitrymomot/hapticqueue/pkg/queue"
	"github.com/dmitrymomot/hapticqueue/pkg/safety"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("nil sender", func(t *testing.T) {
		t.Parallel()
		m, err := queue.New(nil)
		assert.ErrorIs(t, err, queue.ErrSenderNil)
		assert.Nil(t, m)
	})

	t.Run("from config", func(t *testing.T) {
		t.Parallel()
		s := &fakeSender{}
		m, err := queue.NewFromConfig(s, queue.Config{
			SafetyMargin: 10 * time.Millisecond,
			MaxRetries:   1,
			RetryBackoff: time.Millisecond,
			SendTimeout:  time.Second,
			HistoryLimit: 10,
			MaxPending:   1,
		})
		require.NoError(t, err)
		defer func() { _ = m.StopProcessing(context.Background()) }()

		m.Pause()
		ctx := context.Background()
		require.True(t, m.Enqueue(ctx, vibrate(t, "d", 0), "u", "test").Success)
		res := m.Enqueue(ctx, vibrate(t, "d", 0), "u", "test")
		assert.False(t, res.Success)
		assert.ErrorIs(t, res.Err, queue.ErrQueueFull)
	})
}

func TestEnqueue_Validation(t *testing.T) {
	t.Parallel()

	s := &fakeSender{}
	m := newManager(t, s)
	ctx := context.Background()

	res := m.Enqueue(ctx, command.Command{}, "u", "gift")
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, queue.ErrInvalidCommand)
	assert.NotEmpty(t, res.Message)
	assert.Empty(t, res.QueueID)

	for _, p := range []queue.Priority{0, 11, -1} {
		res = m.Enqueue(ctx, vibrate(t, "d", 10), "u", "gift", queue.WithPriority(p))
		assert.False(t, res.Success)
		assert.ErrorIs(t, res.Err, queue.ErrInvalidPriority)
	}

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, s.Calls())
	assert.Equal(t, int64(0), m.Stats().TotalEnqueued)
}

func TestEnqueue_MixedCaseKind(t *testing.T) {
	t.Parallel()

	s := &fakeSender{}
	m := newManager(t, s)
	done := collect(m)

	for _, kind := range []string{"Shock", "SHOCK", "shock"} {
		cmd, err := command.New(kind, "dev", 10, 0)
		require.NoError(t, err)
		require.True(t, m.Enqueue(context.Background(), cmd, "u", "chat-command").Success)
	}

	done.waitFor(t, 3)
	for _, c := range s.Calls() {
		assert.Equal(t, command.KindShock, c.kind)
	}
}

func TestEnqueue_PriorityOrder(t *testing.T) {
	t.Parallel()

	s := &fakeSender{}
	m := newManager(t, s)
	done := collect(m)
	ctx := context.Background()

	m.Pause()
	a := m.Enqueue(ctx, vibrate(t, "a", 0), "u", "gift")
	b := m.Enqueue(ctx, vibrate(t, "b", 0), "u", "gift", queue.WithPriority(5))
	c := m.Enqueue(ctx, vibrate(t, "c", 0), "u", "gift", queue.WithPriority(9))
	d := m.Enqueue(ctx, vibrate(t, "d", 0), "u", "gift", queue.WithPriority(1))
	e := m.Enqueue(ctx, vibrate(t, "e", 0), "u", "gift", queue.WithPriority(9))

	assert.Equal(t, 1, a.Position)
	assert.Equal(t, 2, b.Position)
	assert.Equal(t, 1, c.Position)
	assert.Equal(t, 4, d.Position)
	assert.Equal(t, 2, e.Position)

	var pending []string
	for _, it := range m.Pending() {
		pending = append(pending, it.Command.DeviceID())
		assert.Equal(t, queue.StatusPending, it.Status)
	}
	assert.Equal(t, []string{"c", "e", "a", "b", "d"}, pending)

	m.Resume()
	done.waitFor(t, 5)

	var sent []string
	for _, call := range s.Calls() {
		sent = append(sent, call.deviceID)
	}
	assert.Equal(t, []string{"c", "e", "a", "b", "d"}, sent)
}

func TestDispatch_SingleInFlight(t *testing.T) {
	t.Parallel()

	s := &fakeSender{hold: 2 * time.Millisecond}
	m := newManager(t, s)
	done := collect(m)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := m.Enqueue(context.Background(), vibrate(t, "dev", 1), "u", "gift",
				queue.WithPriority(queue.Priority(i%10+1)))
			assert.True(t, res.Success)
		}()
	}
	wg.Wait()

	done.waitFor(t, 20)
	assert.Equal(t, int32(1), s.peak.Load())
	assert.Len(t, s.Calls(), 20)
}

func TestDispatch_Pacing(t *testing.T) {
	t.Parallel()

	s := &fakeSender{}
	margin := 30 * time.Millisecond
	m := newManager(t, s, queue.WithSafetyMargin(margin))
	done := collect(m)
	ctx := context.Background()

	m.Pause()
	first := m.Enqueue(ctx, vibrate(t, "dev", 100), "u", "gift")
	m.Enqueue(ctx, vibrate(t, "dev", 100), "u", "gift")
	negative := m.Enqueue(ctx, vibrate(t, "dev", -500), "u", "gift")
	m.Enqueue(ctx, vibrate(t, "dev", 0), "u", "gift")
	m.Resume()

	events := done.waitFor(t, 4)
	calls := s.Calls()
	require.Len(t, calls, 4)

	assert.GreaterOrEqual(t, calls[1].at.Sub(calls[0].at), 100*time.Millisecond+margin)
	assert.GreaterOrEqual(t, calls[2].at.Sub(calls[1].at), 100*time.Millisecond+margin)
	// Negative durations pace like zero.
	gap := calls[3].at.Sub(calls[2].at)
	assert.GreaterOrEqual(t, gap, margin)
	assert.Less(t, gap, 100*time.Millisecond+margin)

	for _, ev := range events {
		assert.True(t, ev.Success)
		assert.Equal(t, queue.StatusCompleted, ev.Item.Status)
	}

	it, ok := m.Item(first.QueueID)
	require.True(t, ok)
	require.NotNil(t, it.StartedAt)
	require.NotNil(t, it.FinishedAt)
	assert.GreaterOrEqual(t, it.FinishedAt.Sub(*it.StartedAt), 100*time.Millisecond+margin)

	it, ok = m.Item(negative.QueueID)
	require.True(t, ok)
	assert.Equal(t, -500, it.Command.DurationMs())
}

func TestDispatch_RetriesThenFails(t *testing.T) {
	t.Parallel()

	sendErr := errors.New("device offline")
	s := &fakeSender{fail: func(int) error { return sendErr }}
	m := newManager(t, s, queue.WithMaxRetries(3))
	done := collect(m)

	res := m.Enqueue(context.Background(), vibrate(t, "dev", 10), "u", "gift")
	require.True(t, res.Success)

	done.waitFor(t, 1)
	require.NoError(t, m.StopProcessing(context.Background()))

	assert.Len(t, s.Calls(), 4)
	events := done.All()
	require.Len(t, events, 1)
	ev := events[0]
	assert.False(t, ev.Success)
	assert.Equal(t, res.QueueID, ev.Item.ID)
	assert.Equal(t, queue.StatusFailed, ev.Item.Status)
	assert.Equal(t, 3, ev.Item.Retries)
	assert.Contains(t, ev.Item.Error, "device offline")

	stats := m.Stats()
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(3), stats.Retried)
	assert.Equal(t, 0.0, stats.SuccessRate)
}

func TestDispatch_RetryRecovers(t *testing.T) {
	t.Parallel()

	s := &fakeSender{fail: func(n int) error {
		if n <= 2 {
			return errors.New("timeout")
		}
		return nil
	}}
	m := newManager(t, s)
	done := collect(m)

	m.Enqueue(context.Background(), vibrate(t, "dev", 0), "u", "gift")

	ev := done.waitFor(t, 1)[0]
	assert.True(t, ev.Success)
	assert.Equal(t, 2, ev.Item.Retries)
	assert.Empty(t, ev.Item.Error)
	assert.Len(t, s.Calls(), 3)
}

func TestDispatch_SafetyRejection(t *testing.T) {
	t.Parallel()

	s := &fakeSender{}
	checker := safety.CheckerFunc(func(_ context.Context, cmd command.Command, _, _ string) (safety.Decision, error) {
		if cmd.Kind() == command.KindShock {
			return safety.Deny("shock disabled"), nil
		}
		return safety.Allow(cmd.WithIntensity(5)), nil
	})
	m := newManager(t, s, queue.WithSafetyChecker(checker), queue.WithMaxRetries(3))
	done := collect(m)
	ctx := context.Background()

	shock := command.MustNew("shock", "dev", 80, 100)
	m.Enqueue(ctx, shock, "u", "gift")
	m.Enqueue(ctx, vibrate(t, "dev", 0), "u", "gift")

	events := done.waitFor(t, 2)

	rejected := events[0]
	assert.False(t, rejected.Success)
	assert.Equal(t, queue.StatusFailed, rejected.Item.Status)
	assert.Contains(t, rejected.Item.Error, "rejected by safety policy")
	assert.Equal(t, 0, rejected.Item.Retries)

	allowed := events[1]
	assert.True(t, allowed.Success)
	assert.Equal(t, 5, allowed.Item.Command.Intensity())

	calls := s.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, command.KindVibrate, calls[0].kind)
	assert.Equal(t, 5, calls[0].intensity)
}

func TestDispatch_SafetyCheckerError(t *testing.T) {
	t.Parallel()

	s := &fakeSender{}
	checker := safety.CheckerFunc(func(context.Context, command.Command, string, string) (safety.Decision, error) {
		return safety.Decision{}, errors.New("policy store down")
	})
	m := newManager(t, s, queue.WithSafetyChecker(checker))
	done := collect(m)

	m.Enqueue(context.Background(), vibrate(t, "dev", 0), "u", "gift")

	ev := done.waitFor(t, 1)[0]
	assert.False(t, ev.Success)
	assert.Contains(t, ev.Item.Error, "rejected by safety policy")
	assert.Empty(t, s.Calls())
}

func TestCancel(t *testing.T) {
	t.Parallel()

	s := &fakeSender{}
	m := newManager(t, s)
	done := collect(m)
	ctx := context.Background()

	m.Pause()
	keep := m.Enqueue(ctx, vibrate(t, "keep", 0), "u", "gift")
	drop := m.Enqueue(ctx, vibrate(t, "drop", 0), "u", "gift")

	require.NoError(t, m.Cancel(drop.QueueID))
	assert.ErrorIs(t, m.Cancel(drop.QueueID), queue.ErrNotPending)
	assert.ErrorIs(t, m.Cancel("missing"), queue.ErrItemNotFound)

	ev := done.waitFor(t, 1)[0]
	assert.False(t, ev.Success)
	assert.Equal(t, queue.StatusCancelled, ev.Item.Status)
	assert.Equal(t, drop.QueueID, ev.Item.ID)

	m.Resume()
	events := done.waitFor(t, 2)
	assert.Equal(t, keep.QueueID, events[1].Item.ID)
	assert.ErrorIs(t, m.Cancel(keep.QueueID), queue.ErrNotPending)

	calls := s.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "keep", calls[0].deviceID)

	st := m.Status()
	assert.Equal(t, 1, st.Cancelled)
	assert.Equal(t, 1, st.Completed)
	assert.Equal(t, int64(1), m.Stats().Cancelled)
}

func TestPauseResume(t *testing.T) {
	t.Parallel()

	s := &fakeSender{}
	m := newManager(t, s)
	done := collect(m)
	ctx := context.Background()

	m.Pause()
	for range 3 {
		m.Enqueue(ctx, vibrate(t, "dev", 0), "u", "gift")
	}
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, s.Calls())

	st := m.Status()
	assert.True(t, st.Paused)
	assert.Equal(t, 3, st.Pending)
	assert.False(t, st.Active)

	m.Resume()
	done.waitFor(t, 3)
	assert.Len(t, s.Calls(), 3)
	assert.False(t, m.Status().Paused)
}

func TestStatus_InFlight(t *testing.T) {
	t.Parallel()

	s := &fakeSender{}
	m := newManager(t, s, queue.WithSafetyMargin(time.Second))
	res := m.Enqueue(context.Background(), vibrate(t, "dev", 0), "u", "gift")

	require.Eventually(t, func() bool { return m.Status().Active }, time.Second, 5*time.Millisecond)
	st := m.Status()
	assert.Equal(t, 1, st.Processing)
	assert.Equal(t, res.QueueID, st.CurrentItemID)

	it, ok := m.Item(res.QueueID)
	require.True(t, ok)
	assert.Equal(t, queue.StatusProcessing, it.Status)
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	s := &fakeSender{}
	m := newManager(t, s, queue.WithUserRateLimit(0.001, 2))
	ctx := context.Background()
	m.Pause()

	assert.True(t, m.Enqueue(ctx, vibrate(t, "d", 0), "spammer", "chat").Success)
	assert.True(t, m.Enqueue(ctx, vibrate(t, "d", 0), "spammer", "chat").Success)
	res := m.Enqueue(ctx, vibrate(t, "d", 0), "spammer", "chat")
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, queue.ErrRateLimited)

	assert.True(t, m.Enqueue(ctx, vibrate(t, "d", 0), "someone-else", "chat").Success)
}

func TestRateLimit_PatternStepsSkipLimit(t *testing.T) {
	t.Parallel()

	s := &fakeSender{}
	m := newManager(t, s, queue.WithUserRateLimit(0.001, 1))
	ctx := context.Background()
	m.Pause()

	require.True(t, m.Allow("viewer"))
	assert.False(t, m.Enqueue(ctx, vibrate(t, "d", 0), "viewer", "chat").Success)

	for i := range 5 {
		res := m.Enqueue(ctx, vibrate(t, "d", 0), "viewer", "pattern:x",
			queue.WithCorrelation(queue.Correlation{ExecutionID: "x", RepeatIndex: i}))
		assert.True(t, res.Success, res.Message)
	}
}

func TestRateLimit_RejectedEnqueueKeepsToken(t *testing.T) {
	t.Parallel()

	s := &fakeSender{}
	m := newManager(t, s, queue.WithUserRateLimit(0.001, 1), queue.WithMaxPending(1))
	ctx := context.Background()
	m.Pause()

	first := m.Enqueue(ctx, vibrate(t, "d", 0), "a", "chat")
	require.True(t, first.Success)

	res := m.Enqueue(ctx, vibrate(t, "d", 0), "b", "chat")
	require.ErrorIs(t, res.Err, queue.ErrQueueFull)

	require.NoError(t, m.Cancel(first.QueueID))
	res = m.Enqueue(ctx, vibrate(t, "d", 0), "b", "chat")
	assert.True(t, res.Success, res.Message)

	require.NoError(t, m.StopProcessing(ctx))
	res = m.Enqueue(ctx, vibrate(t, "d", 0), "c", "chat")
	require.ErrorIs(t, res.Err, queue.ErrStopped)
	assert.True(t, m.Allow("c"))
}

func TestHistoryLimit(t *testing.T) {
	t.Parallel()

	s := &fakeSender{}
	m := newManager(t, s, queue.WithHistoryLimit(2))
	done := collect(m)
	ctx := context.Background()

	ids := make([]string, 0, 3)
	for range 3 {
		ids = append(ids, m.Enqueue(ctx, vibrate(t, "d", 0), "u", "gift").QueueID)
	}
	done.waitFor(t, 3)

	_, ok := m.Item(ids[0])
	assert.False(t, ok)
	for _, id := range ids[1:] {
		it, ok := m.Item(id)
		require.True(t, ok)
		assert.Equal(t, queue.StatusCompleted, it.Status)
	}
	assert.Equal(t, int64(3), m.Stats().Processed)
}

func TestStats(t *testing.T) {
	t.Parallel()

	s := &fakeSender{fail: func(n int) error {
		if n == 2 {
			return errors.New("boom")
		}
		return nil
	}}
	m := newManager(t, s, queue.WithMaxRetries(0), queue.WithSafetyMargin(5*time.Millisecond))
	done := collect(m)
	ctx := context.Background()

	assert.Equal(t, 100.0, m.Stats().SuccessRate)

	for range 4 {
		m.Enqueue(ctx, vibrate(t, "d", 0), "u", "gift", queue.WithMetadata(map[string]any{"gift": "rose"}))
	}
	events := done.waitFor(t, 4)
	assert.Equal(t, "rose", events[0].Item.Metadata["gift"])

	stats := m.Stats()
	assert.Equal(t, int64(4), stats.TotalEnqueued)
	assert.Equal(t, int64(3), stats.Processed)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(0), stats.Retried)
	assert.Equal(t, 4, stats.Throughput)
	assert.InDelta(t, 75.0, stats.SuccessRate, 0.001)
	assert.Positive(t, stats.AverageProcessingTime)
}

func TestCorrelationPropagates(t *testing.T) {
	t.Parallel()

	s := &fakeSender{}
	m := newManager(t, s)
	done := collect(m)

	corr := queue.Correlation{ExecutionID: "exec-1", StepIndex: 2, RepeatIndex: 1}
	m.Enqueue(context.Background(), vibrate(t, "d", 0), "u", "pattern:exec-1", queue.WithCorrelation(corr))

	ev := done.waitFor(t, 1)[0]
	assert.Equal(t, corr, ev.Item.Correlation)
	assert.Equal(t, "pattern:exec-1", ev.Item.Source)
}

func TestStopProcessing(t *testing.T) {
	t.Parallel()

	s := &fakeSender{}
	m, err := queue.New(s, queue.WithSafetyMargin(0))
	require.NoError(t, err)
	done := collect(m)
	ctx := context.Background()

	inflight := m.Enqueue(ctx, vibrate(t, "d", 80), "u", "gift")
	require.Eventually(t, func() bool { return m.Status().Active }, time.Second, time.Millisecond)
	waiting := m.Enqueue(ctx, vibrate(t, "d", 0), "u", "gift")

	start := time.Now()
	require.NoError(t, m.StopProcessing(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)

	events := done.All()
	require.Len(t, events, 1)
	assert.Equal(t, inflight.QueueID, events[0].Item.ID)
	assert.True(t, events[0].Success)

	res := m.Enqueue(ctx, vibrate(t, "d", 0), "u", "gift")
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, queue.ErrStopped)

	st := m.Status()
	assert.True(t, st.Stopped)
	assert.Equal(t, 1, st.Pending)
	it, ok := m.Item(waiting.QueueID)
	require.True(t, ok)
	assert.Equal(t, queue.StatusPending, it.Status)
	assert.Len(t, s.Calls(), 1)

	require.NoError(t, m.StopProcessing(ctx))
}

func TestStopProcessing_ContextExpires(t *testing.T) {
	t.Parallel()

	s := &fakeSender{}
	m, err := queue.New(s, queue.WithSafetyMargin(0))
	require.NoError(t, err)

	m.Enqueue(context.Background(), vibrate(t, "d", 10_000), "u", "gift")
	require.Eventually(t, func() bool { return m.Status().Active }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = m.StopProcessing(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.False(t, m.Status().Active)
}

func TestRun(t *testing.T) {
	t.Parallel()

	s := &fakeSender{}
	m, err := queue.New(s)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- m.Run(ctx)() }()

	cancel()
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
	assert.True(t, m.Status().Stopped)
}
