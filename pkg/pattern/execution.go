package pattern

import (
	"maps"
	"time"

	"github.com/dmitrymomot/hapticqueue/pkg/queue"
	"github.com/dmitrymomot/hapticqueue/pkg/statemachine"
)

// Status is the lifecycle state of an execution.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

type trigger string

const (
	triggerComplete trigger = "complete"
	triggerFail     trigger = "fail"
	triggerCancel   trigger = "cancel"
)

// lifecycle allows exactly one terminal transition out of running.
var lifecycle = statemachine.NewDefinition[Status, trigger]().
	Permit(StatusRunning, triggerComplete, StatusCompleted).
	Permit(StatusRunning, triggerFail, StatusFailed).
	Permit(StatusRunning, triggerCancel, StatusCancelled)

type execution struct {
	id          string
	pattern     Pattern
	deviceID    string
	userID      string
	source      string
	context     map[string]any
	priority    queue.Priority
	repeatCount int

	currentRepeat int
	stepIndex     int
	fsm           *statemachine.Machine[Status, trigger]

	queueIDs  []string
	currentQ  string
	enqueuing bool
	early     *queue.Completion
	timer     *time.Timer

	startedAt  time.Time
	finishedAt time.Time
	err        string
}

func (ex *execution) running() bool {
	return !ex.fsm.Terminal()
}

// Snapshot is a read-only view of an execution.
type Snapshot struct {
	ID             string         `json:"id"`
	PatternName    string         `json:"pattern"`
	DeviceID       string         `json:"device_id"`
	UserID         string         `json:"user_id"`
	Source         string         `json:"source"`
	Context        map[string]any `json:"context,omitempty"`
	Status         Status         `json:"status"`
	RepeatCount    int            `json:"repeat_count"`
	CurrentRepeat  int            `json:"current_repeat"`
	CurrentStep    int            `json:"current_step"`
	TotalSteps     int            `json:"total_steps"`
	CommandsIssued int            `json:"commands_issued"`
	QueueItemIDs   []string       `json:"queue_item_ids"`
	CurrentQueueID string         `json:"current_queue_id,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     *time.Time     `json:"finished_at,omitempty"`
	Error          string         `json:"error,omitempty"`
}

func (ex *execution) snapshot() Snapshot {
	s := Snapshot{
		ID:             ex.id,
		PatternName:    ex.pattern.Name,
		DeviceID:       ex.deviceID,
		UserID:         ex.userID,
		Source:         ex.source,
		Context:        maps.Clone(ex.context),
		Status:         ex.fsm.Current(),
		RepeatCount:    ex.repeatCount,
		CurrentRepeat:  ex.currentRepeat,
		CurrentStep:    ex.stepIndex,
		TotalSteps:     len(ex.pattern.Steps),
		CommandsIssued: len(ex.queueIDs),
		QueueItemIDs:   append([]string(nil), ex.queueIDs...),
		CurrentQueueID: ex.currentQ,
		StartedAt:      ex.startedAt,
		Error:          ex.err,
	}
	if !ex.finishedAt.IsZero() {
		t := ex.finishedAt
		s.FinishedAt = &t
	}
	return s
}

// EventType names an execution lifecycle event.
type EventType string

const (
	EventStarted   EventType = "execution-started"
	EventCompleted EventType = "execution-completed"
	EventFailed    EventType = "execution-failed"
	EventCancelled EventType = "execution-cancelled"
)

// Event is published on every execution lifecycle change.
type Event struct {
	Type      EventType `json:"type"`
	Execution Snapshot  `json:"execution"`
}

// Stats holds executor counters.
type Stats struct {
	Started   int64 `json:"started"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Cancelled int64 `json:"cancelled"`
	Running   int   `json:"running"`
}
