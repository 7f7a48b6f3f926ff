// Package queue implements the command Queue Manager: a priority-ordered,
// duration-aware, retrying dispatcher that sends one command at a time to a
// device.Sender.
//
// # Guarantees
//
//   - At most one item is ever in the processing state.
//   - Pending items are ordered by priority (10 highest), ties by insertion order.
//   - After a successful send the queue waits for the command's own duration
//     plus a safety margin before the item completes and the next one starts,
//     so a 1000ms vibrate blocks the queue for about 1200ms.
//   - Safety rejections fail the item immediately; transport failures are
//     retried with a constant backoff up to a fixed limit.
//   - Every terminal transition publishes exactly one Completion.
//
// # Architecture
//
// All queue state (an arena of items indexed by id, the ordered pending list,
// counters) is owned by a single goroutine started by New and reached through
// a message channel, so no caller ever touches it directly. The item being
// processed runs in its own goroutine and reports back over a results channel.
// Completions are delivered through an events.Bus, asynchronously and in
// order, so subscribers may enqueue from inside their handlers.
//
// # Usage
//
//	m, err := queue.New(sender,
//		queue.WithSafetyChecker(checker),
//		queue.WithSafetyMargin(200*time.Millisecond),
//	)
//	if err != nil {
//		return err
//	}
//	defer m.StopProcessing(context.Background())
//
//	cmd, _ := command.New("vibrate", "device-1", 40, 1000)
//	res := m.Enqueue(ctx, cmd, "viewer-42", "gift", queue.WithPriority(7))
//	if !res.Success {
//		log.Println(res.Message)
//	}
package queue
