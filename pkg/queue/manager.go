package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/hapticqueue/pkg/command"
	"github.com/dmitrymomot/hapticqueue/pkg/device"
	"github.com/dmitrymomot/hapticqueue/pkg/events"
	"github.com/dmitrymomot/hapticqueue/pkg/logger"
)

// Manager is the command queue. Create it with New; the zero value is not usable.
type Manager struct {
	sender  device.Sender
	opts    options
	limiter *userLimiter
	logger  *slog.Logger
	bus     *events.Bus[Completion]

	ops     chan func(*state)
	results chan result
	done    chan struct{}

	// frozen guards st once the owner goroutine has exited.
	frozen sync.Mutex
	st     *state

	procCtx    context.Context
	procCancel context.CancelFunc
}

// New creates a Manager and starts its dispatch loop.
func New(sender device.Sender, opts ...Option) (*Manager, error) {
	if sender == nil {
		return nil, ErrSenderNil
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	log := o.logger.With(logger.Component("queue"))
	procCtx, procCancel := context.WithCancel(context.Background())

	m := &Manager{
		sender:     sender,
		opts:       o,
		limiter:    newUserLimiter(o.userRate, o.userBurst),
		logger:     log,
		bus:        events.NewBus[Completion](events.WithLogger(log), events.WithName("queue.completions")),
		ops:        make(chan func(*state)),
		results:    make(chan result),
		done:       make(chan struct{}),
		st:         newState(),
		procCtx:    procCtx,
		procCancel: procCancel,
	}

	go m.loop()

	return m, nil
}

func (m *Manager) loop() {
	defer close(m.done)

	for {
		m.dispatchNext()

		if m.st.stopping && m.st.current == nil {
			m.logger.Info("queue processing stopped", slog.Int("pending", len(m.st.pending)))
			return
		}

		select {
		case op := <-m.ops:
			op(m.st)
		case res := <-m.results:
			m.finish(res)
		}
	}
}

// call runs fn against the queue state and waits for it to complete.
// After the owner goroutine has exited, fn runs under the frozen lock instead.
func (m *Manager) call(ctx context.Context, fn func(*state)) error {
	reply := make(chan struct{})
	select {
	case m.ops <- func(st *state) { fn(st); close(reply) }:
		<-reply
		return nil
	case <-m.done:
		m.frozen.Lock()
		defer m.frozen.Unlock()
		fn(m.st)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue validates cmd and adds it to the pending list. It never waits for dispatch.
func (m *Manager) Enqueue(ctx context.Context, cmd command.Command, userID, source string, opts ...EnqueueOption) EnqueueResult {
	eo := enqueueOptions{priority: PriorityDefault}
	for _, opt := range opts {
		opt(&eo)
	}

	if !cmd.Valid() {
		return rejected(ErrInvalidCommand, fmt.Sprintf("invalid command: %q is not a supported kind or intensity is out of range", cmd.Kind()))
	}
	if !eo.priority.Valid() {
		return rejected(ErrInvalidPriority, fmt.Sprintf("invalid priority %d: must be between %d and %d", eo.priority, PriorityMin, PriorityMax))
	}
	item := &Item{
		ID:          uuid.New().String(),
		Command:     cmd,
		UserID:      userID,
		Source:      source,
		Metadata:    eo.metadata,
		Priority:    eo.priority,
		Status:      StatusPending,
		Correlation: eo.correlation,
		CreatedAt:   time.Now(),
	}

	var res EnqueueResult
	err := m.call(ctx, func(st *state) {
		switch {
		case st.stopping:
			res = rejected(ErrStopped, "queue is not accepting commands")
		case m.opts.maxPending > 0 && len(st.pending) >= m.opts.maxPending:
			res = rejected(ErrQueueFull, fmt.Sprintf("queue is full (%d pending)", len(st.pending)))
		case eo.correlation.ExecutionID == "" && !m.limiter.Allow(userID):
			res = rejected(ErrRateLimited, "rate limit exceeded, try again later")
		default:
			pos := st.insert(item)
			res = EnqueueResult{
				Success:  true,
				QueueID:  item.ID,
				Position: pos,
				Message:  fmt.Sprintf("command queued at position %d", pos),
			}
		}
	})
	if err != nil {
		return rejected(err, "enqueue aborted: "+err.Error())
	}

	if res.Success {
		m.logger.DebugContext(ctx, "command enqueued",
			logger.QueueID(item.ID),
			logger.UserID(userID),
			logger.Source(source),
			logger.DeviceID(cmd.DeviceID()),
			logger.Priority(int(item.Priority)),
			slog.Int("position", res.Position),
		)
	}
	return res
}

// Allow charges userID one admission against the per-user rate limit.
// Pattern executions are charged once here; their step items skip the limit.
func (m *Manager) Allow(userID string) bool {
	return m.limiter.Allow(userID)
}

func rejected(err error, msg string) EnqueueResult {
	return EnqueueResult{Success: false, Message: msg, Err: err}
}

// Cancel removes a pending item. Items already processing or finished cannot be cancelled.
func (m *Manager) Cancel(id string) error {
	var cerr error
	var completion Completion
	err := m.call(context.Background(), func(st *state) {
		item, ok := st.items[id]
		if !ok {
			cerr = ErrItemNotFound
			return
		}
		if item.Status != StatusPending || !st.removePending(id) {
			cerr = ErrNotPending
			return
		}
		now := time.Now()
		item.Status = StatusCancelled
		item.FinishedAt = &now
		st.cancelled++
		st.retire(item, m.opts.historyLimit)
		completion = Completion{Item: item.clone(), Success: false}
	})
	if err != nil {
		return err
	}
	if cerr != nil {
		return cerr
	}

	m.bus.Publish(completion)
	m.logger.Info("queue item cancelled", logger.QueueID(id))
	return nil
}

// Pause stops dispatching new items. The in-flight item, if any, still finishes.
func (m *Manager) Pause() {
	_ = m.call(context.Background(), func(st *state) { st.paused = true })
}

// Resume restarts dispatching after Pause.
func (m *Manager) Resume() {
	_ = m.call(context.Background(), func(st *state) { st.paused = false })
}

// Item returns a copy of the item with the given id.
func (m *Manager) Item(id string) (Item, bool) {
	var (
		it Item
		ok bool
	)
	_ = m.call(context.Background(), func(st *state) {
		if p, found := st.items[id]; found {
			it, ok = p.clone(), true
		}
	})
	return it, ok
}

// Pending returns copies of the pending items in dispatch order.
func (m *Manager) Pending() []Item {
	var items []Item
	_ = m.call(context.Background(), func(st *state) {
		items = make([]Item, 0, len(st.pending))
		for _, p := range st.pending {
			items = append(items, p.clone())
		}
	})
	return items
}

// Status returns a snapshot of queue counters and flags.
func (m *Manager) Status() QueueStatus {
	var s QueueStatus
	_ = m.call(context.Background(), func(st *state) { s = st.status() })
	return s
}

// Stats returns cumulative statistics.
func (m *Manager) Stats() Stats {
	var s Stats
	_ = m.call(context.Background(), func(st *state) { s = st.stats(time.Now()) })
	return s
}

// Subscribe registers fn for completion events. Events arrive in order on a
// dedicated goroutine, so fn may call back into the Manager.
func (m *Manager) Subscribe(fn func(Completion)) (unsubscribe func()) {
	return m.bus.Subscribe(fn)
}

// StopProcessing stops dispatching, waits for the in-flight item to finish,
// then drains completion subscribers. If ctx expires first, the in-flight
// send and pacing wait are aborted and ctx.Err() is returned once the loop exits.
// Queries keep working afterwards; Enqueue returns ErrStopped.
func (m *Manager) StopProcessing(ctx context.Context) error {
	select {
	case m.ops <- func(st *state) { st.stopping = true }:
	case <-m.done:
	}

	var err error
	select {
	case <-m.done:
	case <-ctx.Done():
		m.procCancel()
		<-m.done
		err = ctx.Err()
	}

	m.procCancel()
	return errors.Join(err, m.bus.Close())
}

// Run returns a function for errgroup that blocks until ctx is done and then
// stops the manager.
func (m *Manager) Run(ctx context.Context) func() error {
	return func() error {
		<-ctx.Done()
		return m.StopProcessing(context.WithoutCancel(ctx))
	}
}
