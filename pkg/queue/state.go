package queue

import (
	"slices"
	"sort"
	"time"
)

// statsWindow is the number of finished items the rolling average covers.
const statsWindow = 100

// state is owned by the manager goroutine; nothing else touches it while
// that goroutine runs.
type state struct {
	items    map[string]*Item
	pending  []*Item
	history  []string
	current  *Item
	seq      uint64
	paused   bool
	stopping bool

	enqueued  int64
	processed int64
	failed    int64
	cancelled int64
	retried   int64

	durations []time.Duration
	finishes  []time.Time
}

func newState() *state {
	return &state{items: make(map[string]*Item)}
}

// insert places item after every pending item of equal or higher priority
// and returns its 1-based position.
func (s *state) insert(item *Item) int {
	s.seq++
	item.seq = s.seq
	idx := sort.Search(len(s.pending), func(i int) bool {
		return s.pending[i].Priority < item.Priority
	})
	s.pending = slices.Insert(s.pending, idx, item)
	s.items[item.ID] = item
	s.enqueued++
	return idx + 1
}

func (s *state) removePending(id string) bool {
	for i, it := range s.pending {
		if it.ID == id {
			s.pending = slices.Delete(s.pending, i, i+1)
			return true
		}
	}
	return false
}

func (s *state) popPending() *Item {
	if len(s.pending) == 0 {
		return nil
	}
	item := s.pending[0]
	s.pending[0] = nil
	s.pending = s.pending[1:]
	return item
}

// retire records a terminal item and evicts the oldest ones beyond limit.
func (s *state) retire(item *Item, limit int) {
	s.history = append(s.history, item.ID)
	for len(s.history) > limit {
		delete(s.items, s.history[0])
		s.history = s.history[1:]
	}
}

func (s *state) recordFinish(item *Item, now time.Time) {
	if item.StartedAt != nil {
		s.durations = append(s.durations, now.Sub(*item.StartedAt))
		if len(s.durations) > statsWindow {
			s.durations = s.durations[len(s.durations)-statsWindow:]
		}
	}
	s.finishes = append(s.finishes, now)
	s.pruneFinishes(now)
}

func (s *state) pruneFinishes(now time.Time) {
	cutoff := now.Add(-time.Minute)
	i := sort.Search(len(s.finishes), func(i int) bool {
		return s.finishes[i].After(cutoff)
	})
	s.finishes = s.finishes[i:]
}

func (s *state) status() QueueStatus {
	st := QueueStatus{
		Pending: len(s.pending),
		Paused:  s.paused,
		Stopped: s.stopping,
	}
	for _, it := range s.items {
		switch it.Status {
		case StatusProcessing:
			st.Processing++
		case StatusCompleted:
			st.Completed++
		case StatusFailed:
			st.Failed++
		case StatusCancelled:
			st.Cancelled++
		}
	}
	if s.current != nil {
		st.Active = true
		st.CurrentItemID = s.current.ID
	}
	return st
}

func (s *state) stats(now time.Time) Stats {
	s.pruneFinishes(now)
	st := Stats{
		TotalEnqueued: s.enqueued,
		Processed:     s.processed,
		Failed:        s.failed,
		Cancelled:     s.cancelled,
		Retried:       s.retried,
		Throughput:    len(s.finishes),
		SuccessRate:   100,
	}
	if len(s.durations) > 0 {
		var total time.Duration
		for _, d := range s.durations {
			total += d
		}
		st.AverageProcessingTime = total / time.Duration(len(s.durations))
	}
	if done := s.processed + s.failed; done > 0 {
		st.SuccessRate = float64(s.processed) / float64(done) * 100
	}
	return st
}
