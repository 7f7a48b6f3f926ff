package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dmitrymomot/hapticqueue/pkg/command"
	"github.com/dmitrymomot/hapticqueue/pkg/device"
	"github.com/dmitrymomot/hapticqueue/pkg/logger"
)

// result is what the processing goroutine reports back to the owner.
type result struct {
	id      string
	command command.Command
	err     error
}

// dispatchNext starts the head of the pending list when nothing is in flight.
func (m *Manager) dispatchNext() {
	st := m.st
	if st.paused || st.stopping || st.current != nil {
		return
	}
	item := st.popPending()
	if item == nil {
		return
	}

	now := time.Now()
	item.Status = StatusProcessing
	item.StartedAt = &now
	st.current = item

	go m.process(item.clone())
}

// process runs safety check, send with retries, and pacing for one item.
// It always reports exactly one result.
func (m *Manager) process(item Item) {
	res := result{id: item.ID, command: item.Command}
	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("%w: panic: %v", ErrSendFailed, r)
		}
		select {
		case m.results <- res:
		case <-m.done:
		}
	}()

	ctx := m.procCtx
	log := m.logger.With(logger.QueueID(item.ID), logger.DeviceID(item.Command.DeviceID()))

	cmd, err := m.approve(ctx, item)
	if err != nil {
		log.Warn("command rejected", logger.UserID(item.UserID), logger.Error(err))
		res.err = err
		return
	}
	res.command = cmd

	if err := m.send(ctx, item.ID, cmd, log); err != nil {
		res.err = err
		return
	}

	// The device is busy for the command's duration; hold the queue until it is done.
	wait := cmd.Duration() + m.opts.margin
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (m *Manager) approve(ctx context.Context, item Item) (command.Command, error) {
	decision, err := m.opts.checker.Check(ctx, item.Command, item.UserID, item.Command.DeviceID())
	if err != nil {
		return command.Command{}, errors.Join(ErrSafetyRejected, err)
	}
	if !decision.Allowed {
		if decision.Reason != "" {
			return command.Command{}, fmt.Errorf("%w: %s", ErrSafetyRejected, decision.Reason)
		}
		return command.Command{}, ErrSafetyRejected
	}
	if !decision.Command.Valid() {
		return item.Command, nil
	}
	return decision.Command, nil
}

func (m *Manager) send(ctx context.Context, id string, cmd command.Command, log *slog.Logger) error {
	operation := func() error {
		actx, cancel := context.WithTimeout(ctx, m.opts.sendTimeout)
		defer cancel()

		err := device.Dispatch(actx, m.sender, cmd)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || errors.Is(err, device.ErrUnsupportedKind) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(m.opts.retryBackoff), uint64(m.opts.maxRetries)),
		ctx,
	)

	retries := 0
	notify := func(err error, next time.Duration) {
		retries++
		log.Warn("send failed, retrying",
			logger.RetryCount(retries),
			slog.Duration("backoff", next),
			logger.Error(err),
		)
		m.noteRetry(id)
	}

	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return fmt.Errorf("%w after %d retries: %w", ErrSendFailed, retries, err)
	}
	return nil
}

func (m *Manager) noteRetry(id string) {
	op := func(st *state) {
		st.retried++
		if it, ok := st.items[id]; ok {
			it.Retries++
		}
	}
	select {
	case m.ops <- op:
	case <-m.done:
	}
}

// finish applies the terminal status and publishes the completion.
func (m *Manager) finish(res result) {
	st := m.st
	item := st.current
	st.current = nil
	if item == nil || item.ID != res.id {
		m.logger.Error("result for unknown item", logger.QueueID(res.id))
		return
	}

	now := time.Now()
	item.Command = res.command
	item.FinishedAt = &now

	success := res.err == nil
	if success {
		item.Status = StatusCompleted
		st.processed++
	} else {
		item.Status = StatusFailed
		item.Error = res.err.Error()
		st.failed++
	}
	st.recordFinish(item, now)
	st.retire(item, m.opts.historyLimit)

	m.bus.Publish(Completion{Item: item.clone(), Success: success})

	attrs := []any{
		logger.QueueID(item.ID),
		logger.DeviceID(item.Command.DeviceID()),
		slog.String("kind", item.Command.Kind().String()),
		logger.Duration(now.Sub(*item.StartedAt)),
		logger.RetryCount(item.Retries),
	}
	if success {
		m.logger.Info("command completed", attrs...)
	} else {
		m.logger.Error("command failed", append(attrs, logger.Error(res.err))...)
	}
}
