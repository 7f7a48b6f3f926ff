package events

import "sync"

// subscription is a single subscriber's mailbox.
type subscription[T any] struct {
	id     uint64
	fn     Handler[T]
	mu     sync.Mutex
	queue  []T
	drain  bool
	notify chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newSubscription[T any](id uint64, fn Handler[T]) *subscription[T] {
	return &subscription[T]{
		id:     id,
		fn:     fn,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (s *subscription[T]) push(event T) {
	s.mu.Lock()
	s.queue = append(s.queue, event)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscription[T]) take() []T {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.queue
	s.queue = nil
	return batch
}

// stop ends the delivery loop. With drain set, buffered events are delivered first.
func (s *subscription[T]) stop(drain bool) {
	s.once.Do(func() {
		s.mu.Lock()
		s.drain = drain
		s.mu.Unlock()
		close(s.done)
	})
}

func (s *subscription[T]) run(deliver func(Handler[T], T)) {
	for {
		select {
		case <-s.notify:
			for _, event := range s.take() {
				select {
				case <-s.done:
					if !s.draining() {
						return
					}
				default:
				}
				deliver(s.fn, event)
			}
		case <-s.done:
			if s.draining() {
				for _, event := range s.take() {
					deliver(s.fn, event)
				}
			}
			return
		}
	}
}

func (s *subscription[T]) draining() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drain
}
