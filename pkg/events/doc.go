// Package events provides a typed, in-process publish/subscribe bus.
//
// Unlike a drop-on-slow broadcaster, Bus never discards events: every
// subscriber owns an unbounded mailbox drained by its own goroutine, so
// delivery is asynchronous, ordered per subscriber and lossless. Publishers
// never block on subscribers, and subscribers may safely call back into the
// component that published the event.
//
//	bus := events.NewBus[queue.Completion]()
//	defer bus.Close()
//
//	unsubscribe := bus.Subscribe(func(c queue.Completion) {
//		fmt.Println(c.Item.ID, c.Success)
//	})
//	defer unsubscribe()
//
//	bus.Publish(queue.Completion{...})
//
// Handler panics are recovered and logged; they never take down the bus.
package events
