package pattern

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/hapticqueue/pkg/command"
	"github.com/dmitrymomot/hapticqueue/pkg/events"
	"github.com/dmitrymomot/hapticqueue/pkg/logger"
	"github.com/dmitrymomot/hapticqueue/pkg/queue"
)

// Enqueuer is the part of *queue.Manager the executor depends on.
type Enqueuer interface {
	Enqueue(ctx context.Context, cmd command.Command, userID, source string, opts ...queue.EnqueueOption) queue.EnqueueResult
	Subscribe(fn func(queue.Completion)) (unsubscribe func())
	Allow(userID string) bool
}

// Executor turns patterns into sequences of queue items. Each step is
// enqueued only after the previous one reached a terminal status, so steps of
// one execution never overlap.
type Executor struct {
	q      Enqueuer
	opts   executorOptions
	logger *slog.Logger
	bus    *events.Bus[Event]

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()

	mu        sync.Mutex
	execs     map[string]*execution
	closed    bool
	started   int64
	completed int64
	failed    int64
	cancelled int64
}

// NewExecutor creates an executor subscribed to q's completion events.
func NewExecutor(q Enqueuer, opts ...ExecutorOption) (*Executor, error) {
	if q == nil {
		return nil, ErrQueueRequired
	}

	o := defaultExecutorOptions()
	for _, opt := range opts {
		opt(&o)
	}

	log := o.logger.With(logger.Component("pattern"))
	ctx, cancel := context.WithCancel(context.Background())

	e := &Executor{
		q:      q,
		opts:   o,
		logger: log,
		bus:    events.NewBus[Event](events.WithLogger(log), events.WithName("pattern.executions")),
		ctx:    ctx,
		cancel: cancel,
		execs:  make(map[string]*execution),
	}
	e.unsubscribe = q.Subscribe(e.onCompletion)

	return e, nil
}

// Execute validates p and starts running it against deviceID.
// Validation errors and queue.ErrRateLimited are returned synchronously;
// everything after that is reported through execution events and Execution.
// The user's rate limit is charged once per execution, not per step.
func (e *Executor) Execute(ctx context.Context, p Pattern, deviceID, userID, source string, opts ...ExecuteOption) (string, error) {
	eo := executeOptions{repeat: 1, priority: e.opts.priority}
	for _, opt := range opts {
		opt(&eo)
	}

	if err := p.Validate(); err != nil {
		return "", err
	}
	if strings.TrimSpace(deviceID) == "" {
		return "", ErrDeviceRequired
	}
	if eo.repeat < 1 {
		eo.repeat = 1
	}
	if eo.repeat > e.opts.maxRepeat {
		return "", fmt.Errorf("%w: %d (max %d)", ErrRepeatTooLarge, eo.repeat, e.opts.maxRepeat)
	}
	if !eo.priority.Valid() {
		return "", queue.ErrInvalidPriority
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return "", ErrExecutorClosed
	}
	if !e.q.Allow(userID) {
		return "", queue.ErrRateLimited
	}

	ex := &execution{
		id:          uuid.New().String(),
		pattern:     p.clone(),
		deviceID:    deviceID,
		userID:      userID,
		source:      source,
		context:     eo.context,
		priority:    eo.priority,
		repeatCount: eo.repeat,
		fsm:         lifecycle.Start(StatusRunning),
		startedAt:   time.Now(),
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return "", ErrExecutorClosed
	}
	e.execs[ex.id] = ex
	e.started++
	started := &Event{Type: EventStarted, Execution: ex.snapshot()}
	e.mu.Unlock()

	e.emit(started)
	e.advance(ex.id)

	return ex.id, nil
}

// advance moves an execution forward until it waits on a queue item or a
// pause timer, or reaches a terminal state. The lock is never held while
// calling into the queue.
func (e *Executor) advance(id string) {
	for {
		e.mu.Lock()
		ex, ok := e.execs[id]
		if !ok || e.closed || !ex.running() {
			e.mu.Unlock()
			return
		}

		if ex.stepIndex >= len(ex.pattern.Steps) {
			ex.currentRepeat++
			ex.stepIndex = 0
		}
		if ex.currentRepeat >= ex.repeatCount {
			ev := e.terminateLocked(ex, triggerComplete, "")
			e.mu.Unlock()
			e.emit(ev)
			return
		}

		step := ex.pattern.Steps[ex.stepIndex]
		if step.IsPause() {
			ex.stepIndex++
			if d := step.Duration(); d > 0 {
				ex.timer = time.AfterFunc(d, func() { e.advance(id) })
				e.mu.Unlock()
				return
			}
			e.mu.Unlock()
			continue
		}

		cmd, err := step.Command(ex.deviceID)
		if err != nil {
			ev := e.terminateLocked(ex, triggerFail, err.Error())
			e.mu.Unlock()
			e.emit(ev)
			return
		}
		corr := queue.Correlation{ExecutionID: id, StepIndex: ex.stepIndex, RepeatIndex: ex.currentRepeat}
		userID, priority, meta := ex.userID, ex.priority, ex.context
		ex.enqueuing = true
		e.mu.Unlock()

		res := e.q.Enqueue(e.ctx, cmd, userID, "pattern:"+id,
			queue.WithPriority(priority),
			queue.WithCorrelation(corr),
			queue.WithMetadata(meta),
		)

		e.mu.Lock()
		ex.enqueuing = false
		early := ex.early
		ex.early = nil

		if !res.Success {
			var ev *Event
			if ex.running() {
				ev = e.terminateLocked(ex, triggerFail, fmt.Sprintf("%s: step %d: %s", ErrEnqueueRejected, corr.StepIndex, res.Message))
			}
			e.mu.Unlock()
			e.emit(ev)
			return
		}

		ex.queueIDs = append(ex.queueIDs, res.QueueID)
		if !ex.running() {
			// Cancelled meanwhile; the queued item is left to the queue.
			e.mu.Unlock()
			return
		}
		ex.currentQ = res.QueueID

		if early == nil || early.Item.ID != res.QueueID {
			e.mu.Unlock()
			return
		}
		next, ev := e.stepDoneLocked(ex, *early)
		e.mu.Unlock()
		e.emit(ev)
		if !next {
			return
		}
	}
}

func (e *Executor) onCompletion(c queue.Completion) {
	id := c.Item.Correlation.ExecutionID
	if id == "" {
		return
	}

	e.mu.Lock()
	ex, ok := e.execs[id]
	if !ok || !ex.running() {
		e.mu.Unlock()
		return
	}
	if ex.enqueuing {
		ex.early = &c
		e.mu.Unlock()
		return
	}
	if ex.currentQ != c.Item.ID {
		e.mu.Unlock()
		return
	}
	next, ev := e.stepDoneLocked(ex, c)
	e.mu.Unlock()

	e.emit(ev)
	if next {
		e.advance(id)
	}
}

// stepDoneLocked applies the outcome of the tracked queue item.
func (e *Executor) stepDoneLocked(ex *execution, c queue.Completion) (bool, *Event) {
	ex.currentQ = ""
	switch {
	case c.Success:
		ex.stepIndex++
		return true, nil
	case c.Item.Status == queue.StatusCancelled:
		return false, e.terminateLocked(ex, triggerCancel, "queue item cancelled")
	default:
		msg := c.Item.Error
		if msg == "" {
			msg = "queue item failed"
		}
		return false, e.terminateLocked(ex, triggerFail, fmt.Sprintf("step %d: %s", c.Item.Correlation.StepIndex, msg))
	}
}

func (e *Executor) terminateLocked(ex *execution, t trigger, errMsg string) *Event {
	st, err := ex.fsm.Fire(t)
	if err != nil {
		e.logger.Warn("ignored execution transition", logger.ExecutionID(ex.id), logger.Error(err))
		return nil
	}

	ex.finishedAt = time.Now()
	ex.err = errMsg
	ex.currentQ = ""
	if ex.timer != nil {
		ex.timer.Stop()
		ex.timer = nil
	}

	ev := &Event{Execution: ex.snapshot()}
	switch st {
	case StatusCompleted:
		e.completed++
		ev.Type = EventCompleted
	case StatusFailed:
		e.failed++
		ev.Type = EventFailed
	case StatusCancelled:
		e.cancelled++
		ev.Type = EventCancelled
	}
	return ev
}

func (e *Executor) emit(ev *Event) {
	if ev == nil {
		return
	}
	e.bus.Publish(*ev)

	s := ev.Execution
	attrs := []any{
		logger.ExecutionID(s.ID),
		logger.Pattern(s.PatternName),
		logger.DeviceID(s.DeviceID),
		logger.Event(string(ev.Type)),
	}
	switch ev.Type {
	case EventStarted:
		e.logger.Info("pattern execution started", append(attrs,
			logger.UserID(s.UserID),
			logger.Source(s.Source),
			slog.Int("repeat", s.RepeatCount))...)
	case EventFailed:
		e.logger.Warn("pattern execution failed", append(attrs, slog.String("error", s.Error))...)
	default:
		e.logger.Info("pattern execution finished", append(attrs, slog.Int("commands", s.CommandsIssued))...)
	}
}

// Cancel stops a running execution from issuing further steps.
// A step already queued or in flight is not touched.
func (e *Executor) Cancel(id string) error {
	e.mu.Lock()
	ex, ok := e.execs[id]
	if !ok {
		e.mu.Unlock()
		return ErrExecutionNotFound
	}
	if !ex.running() {
		e.mu.Unlock()
		return ErrNotRunning
	}
	ev := e.terminateLocked(ex, triggerCancel, "")
	e.mu.Unlock()

	e.emit(ev)
	return nil
}

// Execution returns a snapshot of the execution with the given id.
func (e *Executor) Execution(id string) (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ex, ok := e.execs[id]
	if !ok {
		return Snapshot{}, false
	}
	return ex.snapshot(), true
}

// Active returns running executions, oldest first.
func (e *Executor) Active() []Snapshot {
	e.mu.Lock()
	out := make([]Snapshot, 0, len(e.execs))
	for _, ex := range e.execs {
		if ex.running() {
			out = append(out, ex.snapshot())
		}
	}
	e.mu.Unlock()

	slices.SortFunc(out, func(a, b Snapshot) int {
		return a.StartedAt.Compare(b.StartedAt)
	})
	return out
}

// Cleanup evicts terminal executions that finished more than maxAge ago and
// returns how many were removed.
func (e *Executor) Cleanup(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for id, ex := range e.execs {
		if !ex.running() && ex.finishedAt.Before(cutoff) {
			delete(e.execs, id)
			n++
		}
	}
	return n
}

// Stats returns executor counters.
func (e *Executor) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Stats{
		Started:   e.started,
		Completed: e.completed,
		Failed:    e.failed,
		Cancelled: e.cancelled,
	}
	for _, ex := range e.execs {
		if ex.running() {
			s.Running++
		}
	}
	return s
}

// Subscribe registers fn for execution events.
func (e *Executor) Subscribe(fn func(Event)) (unsubscribe func()) {
	return e.bus.Subscribe(fn)
}

// Run returns a function for errgroup that periodically evicts old
// executions and closes the executor once ctx is done.
func (e *Executor) Run(ctx context.Context) func() error {
	return func() error {
		ticker := time.NewTicker(e.opts.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return e.Close()
			case <-ticker.C:
				if n := e.Cleanup(e.opts.retention); n > 0 {
					e.logger.Debug("evicted finished executions", slog.Int("count", n))
				}
			}
		}
	}
}

// Close cancels running executions, detaches from the queue and drains
// event subscribers. It is idempotent.
func (e *Executor) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	var evs []*Event
	for _, ex := range e.execs {
		if ex.running() {
			evs = append(evs, e.terminateLocked(ex, triggerCancel, ErrExecutorClosed.Error()))
		}
	}
	e.closed = true
	e.mu.Unlock()

	e.unsubscribe()
	e.cancel()
	for _, ev := range evs {
		e.emit(ev)
	}
	return e.bus.Close()
}
