package queue

import (
	"maps"
	"time"

	"github.com/dmitrymomot/hapticqueue/pkg/command"
)

// Status is the lifecycle state of a queue item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether s is a final status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Priority orders pending items (1-10, higher is more important).
type Priority int

const (
	PriorityMin     Priority = 1
	PriorityDefault Priority = 5
	PriorityMax     Priority = 10
)

// Valid checks if the priority is within valid range
func (p Priority) Valid() bool {
	return p >= PriorityMin && p <= PriorityMax
}

// Correlation ties an item to a pattern execution step.
type Correlation struct {
	ExecutionID string `json:"execution_id,omitempty"`
	StepIndex   int    `json:"step_index"`
	RepeatIndex int    `json:"repeat_index"`
}

// Item is a command plus dispatch bookkeeping. Values returned by the
// Manager are copies; mutating them has no effect on the queue.
type Item struct {
	ID          string          `json:"id"`
	Command     command.Command `json:"command"`
	UserID      string          `json:"user_id"`
	Source      string          `json:"source"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	Priority    Priority        `json:"priority"`
	Status      Status          `json:"status"`
	Retries     int             `json:"retries"`
	Error       string          `json:"error,omitempty"`
	Correlation Correlation     `json:"correlation"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`

	seq uint64
}

func (i *Item) clone() Item {
	c := *i
	c.Metadata = maps.Clone(i.Metadata)
	if i.StartedAt != nil {
		t := *i.StartedAt
		c.StartedAt = &t
	}
	if i.FinishedAt != nil {
		t := *i.FinishedAt
		c.FinishedAt = &t
	}
	return c
}

// EnqueueResult is the structured outcome of Enqueue.
// Err carries the sentinel error for programmatic checks when Success is false.
type EnqueueResult struct {
	Success  bool   `json:"success"`
	QueueID  string `json:"queue_id,omitempty"`
	Position int    `json:"position,omitempty"`
	Message  string `json:"message"`
	Err      error  `json:"-"`
}

// Completion is published once for every item that reaches a terminal status.
type Completion struct {
	Item    Item `json:"item"`
	Success bool `json:"success"`
}

// QueueStatus is a point-in-time view of the queue.
type QueueStatus struct {
	Pending       int    `json:"pending"`
	Processing    int    `json:"processing"`
	Completed     int    `json:"completed"`
	Failed        int    `json:"failed"`
	Cancelled     int    `json:"cancelled"`
	Active        bool   `json:"active"`
	Paused        bool   `json:"paused"`
	Stopped       bool   `json:"stopped"`
	CurrentItemID string `json:"current_item_id,omitempty"`
}

// Stats holds cumulative counters since the manager was created.
type Stats struct {
	TotalEnqueued         int64         `json:"total_enqueued"`
	Processed             int64         `json:"processed"`
	Failed                int64         `json:"failed"`
	Cancelled             int64         `json:"cancelled"`
	Retried               int64         `json:"retried"`
	AverageProcessingTime time.Duration `json:"average_processing_time"`
	Throughput            int           `json:"throughput_per_minute"`
	SuccessRate           float64       `json:"success_rate"`
}
