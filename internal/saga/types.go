package saga

import (
	"context"
	"fmt"
	"time"
)

// SagaState is where a saga run currently stands
type SagaState string

const (
	SagaStateStarted     SagaState = "started"
	SagaStateRunning     SagaState = "running"
	SagaStateCompleted   SagaState = "completed"
	SagaStateCompensated SagaState = "compensated"
)

// StepState is where one step of a run stands
type StepState string

const (
	StepStatePending     StepState = "pending"
	StepStateRunning     StepState = "running"
	StepStateCompleted   StepState = "completed"
	StepStateFailed      StepState = "failed"
	StepStateCompensated StepState = "compensated"
)

type (
	SagaID string
	StepID string
)

// SagaData is the scratch space the steps of one run share
type SagaData map[string]any

// Lookup returns data[key] as a T
func Lookup[T any](data SagaData, key string) (T, error) {
	var zero T
	raw, ok := data[key]
	if !ok {
		return zero, fmt.Errorf("saga data has no %q", key)
	}
	value, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("saga data %q is %T, want %T", key, raw, zero)
	}
	return value, nil
}

// StepResult is what a step hands back to the manager. A nil Err means the
// step succeeded and Data is recorded on its execution.
type StepResult struct {
	Data any
	Err  error
}

func Succeeded(data any) StepResult { return StepResult{Data: data} }

func Failed(err error) StepResult { return StepResult{Err: err} }

// Step is one unit of work with an undo
type Step interface {
	ID() StepID
	Execute(ctx context.Context, data SagaData) StepResult
	Compensate(ctx context.Context, data SagaData) error
}

// SagaDefinition names an ordered list of steps
type SagaDefinition interface {
	ID() string
	Steps() []Step
	// Timeout bounds the whole saga; zero means no deadline
	Timeout() time.Duration
}

// SagaInstance records one run of a definition
type SagaInstance struct {
	ID          SagaID          `json:"id"`
	Definition  string          `json:"definition"`
	State       SagaState       `json:"state"`
	Data        SagaData        `json:"data"`
	Steps       []StepExecution `json:"steps"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Error       string          `json:"error,omitempty"`
}

type StepExecution struct {
	ID          StepID     `json:"id"`
	State       StepState  `json:"state"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	Result      any        `json:"result,omitempty"`
}

// Duration returns how long the step ran, or zero if it never finished
func (s StepExecution) Duration() time.Duration {
	if s.StartedAt == nil || s.CompletedAt == nil {
		return 0
	}
	return s.CompletedAt.Sub(*s.StartedAt)
}

// EventType names a point in the saga lifecycle
type EventType string

const (
	EventSagaStarted     EventType = "saga_started"
	EventSagaCompleted   EventType = "saga_completed"
	EventSagaCompensated EventType = "saga_compensated"
	EventStepStarted     EventType = "step_started"
	EventStepCompleted   EventType = "step_completed"
	EventStepFailed      EventType = "step_failed"
	EventStepCompensated EventType = "step_compensated"
)

// SagaEvent is published to observers as the run progresses. Duration is
// set on step_completed and step_failed.
type SagaEvent struct {
	SagaID     SagaID        `json:"saga_id"`
	Definition string        `json:"definition"`
	StepID     StepID        `json:"step_id,omitempty"`
	Type       EventType     `json:"type"`
	Timestamp  time.Time     `json:"timestamp"`
	Duration   time.Duration `json:"duration,omitempty"`
	Data       any           `json:"data,omitempty"`
}

// Observer receives saga events synchronously, in order
type Observer func(SagaEvent)
