package saga

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Manager runs registered saga definitions step by step on the caller's goroutine
type Manager struct {
	logger      *zap.Logger
	definitions map[string]SagaDefinition
	observers   []Observer
	mu          sync.RWMutex
}

// NewManager creates a new saga manager
func NewManager(logger *zap.Logger, observers ...Observer) *Manager {
	return &Manager{
		logger:      logger,
		definitions: make(map[string]SagaDefinition),
		observers:   observers,
	}
}

// RegisterDefinition registers a saga definition
func (m *Manager) RegisterDefinition(def SagaDefinition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.definitions[def.ID()] = def
	m.logger.Info("Saga definition registered", zap.String("id", def.ID()))
}

// Observe adds an observer that receives every subsequent event
func (m *Manager) Observe(observer Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, observer)
}

// Run executes the definition's steps in order and returns once the saga has
// either completed or been compensated. The returned error is the failing
// step's error wrapped with its step id.
func (m *Manager) Run(ctx context.Context, definitionID string, data SagaData) (*SagaInstance, error) {
	m.mu.RLock()
	def, exists := m.definitions[definitionID]
	m.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("saga definition not found: %s", definitionID)
	}

	if data == nil {
		data = SagaData{}
	}

	steps := def.Steps()
	stepExecs := make([]StepExecution, len(steps))
	for i, step := range steps {
		stepExecs[i] = StepExecution{
			ID:    step.ID(),
			State: StepStatePending,
		}
	}

	instance := &SagaInstance{
		ID:         SagaID(fmt.Sprintf("%s_%s", definitionID, uuid.NewString())),
		Definition: definitionID,
		State:      SagaStateStarted,
		Data:       data,
		Steps:      stepExecs,
		StartedAt:  time.Now(),
	}

	m.emitEvent(SagaEvent{
		SagaID:     instance.ID,
		Definition: definitionID,
		Type:       EventSagaStarted,
		Timestamp:  instance.StartedAt,
	})

	if timeout := def.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	instance.State = SagaStateRunning
	lastCompletedStep := -1
	for i, step := range steps {
		if err := m.executeStep(ctx, instance, i, step); err != nil {
			m.logger.Error("Step failed",
				zap.String("sagaID", string(instance.ID)),
				zap.String("stepID", string(step.ID())),
				zap.Error(err))

			instance.Error = err.Error()
			m.compensateSaga(ctx, instance, steps, lastCompletedStep)
			return instance, fmt.Errorf("step %s failed: %w", step.ID(), err)
		}
		lastCompletedStep = i
	}

	m.completeSaga(instance)
	return instance, nil
}

// executeStep executes a single step
func (m *Manager) executeStep(ctx context.Context, instance *SagaInstance, stepIndex int, step Step) error {
	exec := &instance.Steps[stepIndex]
	exec.State = StepStateRunning

	started := time.Now()
	exec.StartedAt = &started

	m.emitEvent(SagaEvent{
		SagaID:     instance.ID,
		Definition: instance.Definition,
		StepID:     step.ID(),
		Type:       EventStepStarted,
		Timestamp:  started,
	})

	var result StepResult
	if err := ctx.Err(); err != nil {
		result = Failed(err)
	} else {
		result = step.Execute(ctx, instance.Data)
	}

	finished := time.Now()
	exec.CompletedAt = &finished

	if result.Err == nil {
		exec.Result = result.Data
		exec.State = StepStateCompleted

		m.emitEvent(SagaEvent{
			SagaID:     instance.ID,
			Definition: instance.Definition,
			StepID:     step.ID(),
			Type:       EventStepCompleted,
			Timestamp:  finished,
			Duration:   exec.Duration(),
			Data:       result.Data,
		})

		m.logger.Debug("Step completed",
			zap.String("sagaID", string(instance.ID)),
			zap.String("stepID", string(step.ID())),
			zap.Duration("duration", exec.Duration()))

		return nil
	}

	exec.State = StepStateFailed
	exec.Error = result.Err.Error()

	m.emitEvent(SagaEvent{
		SagaID:     instance.ID,
		Definition: instance.Definition,
		StepID:     step.ID(),
		Type:       EventStepFailed,
		Timestamp:  finished,
		Duration:   exec.Duration(),
		Data:       exec.Error,
	})

	return result.Err
}

// compensateSaga runs compensation for completed steps in reverse order
func (m *Manager) compensateSaga(ctx context.Context, instance *SagaInstance, steps []Step, lastCompletedStep int) {
	// Compensation must run even when the saga deadline is what failed it
	ctx = context.WithoutCancel(ctx)

	for i := lastCompletedStep; i >= 0; i-- {
		step := steps[i]

		if err := step.Compensate(ctx, instance.Data); err != nil {
			m.logger.Error("Compensation failed",
				zap.String("sagaID", string(instance.ID)),
				zap.String("stepID", string(step.ID())),
				zap.Error(err))
			continue
		}

		instance.Steps[i].State = StepStateCompensated
		m.emitEvent(SagaEvent{
			SagaID:     instance.ID,
			Definition: instance.Definition,
			StepID:     step.ID(),
			Type:       EventStepCompensated,
			Timestamp:  time.Now(),
		})
	}

	instance.State = SagaStateCompensated
	now := time.Now()
	instance.CompletedAt = &now

	m.emitEvent(SagaEvent{
		SagaID:     instance.ID,
		Definition: instance.Definition,
		Type:       EventSagaCompensated,
		Timestamp:  now,
		Duration:   now.Sub(instance.StartedAt),
		Data:       instance.Error,
	})

	m.logger.Info("Saga compensated", zap.String("sagaID", string(instance.ID)))
}

// completeSaga marks a saga as completed
func (m *Manager) completeSaga(instance *SagaInstance) {
	instance.State = SagaStateCompleted
	now := time.Now()
	instance.CompletedAt = &now

	m.emitEvent(SagaEvent{
		SagaID:     instance.ID,
		Definition: instance.Definition,
		Type:       EventSagaCompleted,
		Timestamp:  now,
		Duration:   now.Sub(instance.StartedAt),
	})

	m.logger.Debug("Saga completed", zap.String("sagaID", string(instance.ID)))
}

func (m *Manager) emitEvent(event SagaEvent) {
	m.mu.RLock()
	observers := m.observers
	m.mu.RUnlock()

	for _, observe := range observers {
		observe(event)
	}
}
