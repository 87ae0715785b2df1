package observer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shaiso/agentflow/internal/domain"
	"github.com/shaiso/agentflow/internal/telemetry"
)

// Observer получает события жизненного цикла flow.
type Observer interface {
	Notify(ctx context.Context, event domain.Event) error
}

// Func — адаптер функции к Observer.
type Func func(ctx context.Context, event domain.Event) error

// Notify вызывает f.
func (f Func) Notify(ctx context.Context, event domain.Event) error {
	return f(ctx, event)
}

// Nop — наблюдатель, игнорирующий события.
var Nop Observer = Func(func(context.Context, domain.Event) error { return nil })

// Multi рассылает событие всем наблюдателям по порядку.
// Ошибка одного не мешает остальным; ошибки объединяются.
type Multi []Observer

// Notify реализует Observer.
func (m Multi) Notify(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, o := range m {
		if o == nil {
			continue
		}
		if err := o.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log пишет события в slog.
// step.failed и flow.failed — уровень ERROR, step.warned и flow.aborted — WARN,
// остальные — INFO.
type Log struct {
	Logger *slog.Logger
}

// NewLog создаёт Log наблюдателя.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{Logger: logger}
}

// Notify реализует Observer.
func (l *Log) Notify(ctx context.Context, event domain.Event) error {
	attrs := []any{
		"event", event.Type,
		"run_id", event.RunID,
		"flow_id", event.FlowID,
	}
	if event.StepID != "" {
		attrs = append(attrs, "step_id", event.StepID, "agent", event.Agent)
	}
	if event.Error != "" {
		attrs = append(attrs, "error", event.Error)
	}

	l.Logger.Log(ctx, level(event.Type), "flow event", attrs...)
	return nil
}

func level(t domain.EventType) slog.Level {
	switch t {
	case domain.EventStepFailed, domain.EventFlowFailed:
		return slog.LevelError
	case domain.EventStepWarned, domain.EventFlowAborted:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// Metrics считает исходы шагов и запусков flow.
type Metrics struct {
	metrics *telemetry.Metrics
}

// NewMetrics создаёт Metrics наблюдателя.
func NewMetrics(m *telemetry.Metrics) *Metrics {
	return &Metrics{metrics: m}
}

// Notify реализует Observer.
func (o *Metrics) Notify(_ context.Context, event domain.Event) error {
	switch event.Type {
	case domain.EventStepSucceeded:
		o.metrics.ObserveStep(event.Agent, true)
	case domain.EventStepFailed:
		o.metrics.ObserveStep(event.Agent, false)
	case domain.EventFlowCompleted:
		o.metrics.ObserveFlow(event.FlowID, telemetry.OutcomeCompleted)
	case domain.EventFlowAborted:
		o.metrics.ObserveFlow(event.FlowID, telemetry.OutcomeAborted)
	case domain.EventFlowFailed:
		o.metrics.ObserveFlow(event.FlowID, telemetry.OutcomeFatal)
	}
	return nil
}

// EventPublisher публикует события во внешний брокер.
// Реализуется *mq.Publisher.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event domain.Event) error
}

// AMQP публикует события в RabbitMQ.
type AMQP struct {
	publisher EventPublisher
}

// NewAMQP создаёт AMQP наблюдателя.
func NewAMQP(p EventPublisher) *AMQP {
	return &AMQP{publisher: p}
}

// Notify реализует Observer.
func (a *AMQP) Notify(ctx context.Context, event domain.Event) error {
	if err := a.publisher.PublishEvent(ctx, event); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}
