package domain

import "time"

// EventType — тип события наблюдаемости.
type EventType string

const (
	EventFlowStarted   EventType = "flow.started"
	EventFlowCompleted EventType = "flow.completed"
	EventFlowAborted   EventType = "flow.aborted"
	EventFlowFailed    EventType = "flow.failed"
	EventStepSucceeded EventType = "step.succeeded"
	EventStepFailed    EventType = "step.failed"
	EventStepWarned    EventType = "step.warned"
	EventStepFallback  EventType = "step.fallback"
)

// Event — событие жизненного цикла flow.
//
// События отправляются наблюдателям (лог, метрики, RabbitMQ)
// по принципу fire-and-forget.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	FlowID    string    `json:"flow_id"`
	UserID    string    `json:"user_id,omitempty"`
	StepID    string    `json:"step_id,omitempty"`
	Agent     string    `json:"agent,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
