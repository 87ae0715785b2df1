package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/agentflow/internal/domain"
	"github.com/shaiso/agentflow/internal/engine"
	"github.com/shaiso/agentflow/internal/telemetry"
)

// runner — выполнение одного запуска flow.
type runner struct {
	engine   *Engine
	input    any
	state    *domain.FlowState
	logger   *slog.Logger
	recorder *recorder

	meta    domain.Metadata
	execCtx *engine.ExecutionContext
}

// execute проходит по шагам flow.
func (r *runner) execute(ctx context.Context, cfg *domain.FlowConfig) (*domain.FlowState, error) {
	if err := engine.Validate(cfg); err != nil {
		return r.fail(ctx, fmt.Errorf("%w: %w", ErrInvalidFlow, err))
	}

	if r.engine.metadata != nil {
		meta, err := r.engine.metadata.LoadMetadata(ctx)
		if err != nil {
			return r.fail(ctx, err)
		}
		r.meta = meta
	}

	r.execCtx = engine.NewExecutionContext(r.input)
	ctx = telemetry.WithLogger(ctx, r.logger)

	for i := range cfg.Steps {
		if err := ctx.Err(); err != nil {
			return r.fail(ctx, err)
		}

		aborted, err := r.step(ctx, &cfg.Steps[i])
		if err != nil {
			return r.fail(ctx, err)
		}
		if aborted {
			r.logger.Warn("flow aborted",
				"step_id", cfg.Steps[i].ID,
				"steps_succeeded", r.state.Succeeded(),
			)
			r.recorder.finish(ctx, domain.EventFlowAborted)
			return r.state, nil
		}
	}

	r.state.MarkCompleted(r.engine.now())
	r.logger.Info("flow completed",
		"steps", len(r.state.Steps),
		"steps_succeeded", r.state.Succeeded(),
	)
	r.recorder.finish(ctx, domain.EventFlowCompleted)
	return r.state, nil
}

// step выполняет один шаг и применяет политику ошибок.
// Возвращает aborted=true для политики abort и ошибку для фатальных сбоев.
func (r *runner) step(ctx context.Context, spec *domain.StepSpec) (aborted bool, err error) {
	logger := telemetry.WithStep(r.logger, spec.ID, spec.Agent)

	idx := r.state.BeginStep(spec.ID, spec.Agent, r.engine.now())
	input := engine.ResolveInput(spec.Input, r.execCtx.Data())
	timeout := r.timeout(spec)

	logger.Debug("step started", "timeout", timeout)

	res, err := r.invoke(ctx, spec.Agent, input, timeout)
	rec := r.state.Step(idx)

	if err == nil {
		rec.Succeed(res, r.engine.now())
		r.execCtx.SetOutput(spec.ID, res.Output)
		logger.Debug("step succeeded")
		r.recorder.step(ctx, domain.EventStepSucceeded, rec)
		return false, nil
	}

	rec.Fail(err, r.engine.now())
	if IsFatal(ctx, err) {
		return false, err
	}
	r.recorder.emit(ctx, domain.EventStepFailed, rec)

	switch spec.Policy() {
	case domain.PolicyAbort:
		logger.Error("step failed, aborting flow", "error", err)
		r.recorder.persist(ctx, rec)
		return true, nil

	case domain.PolicyWarn:
		logger.Warn("step failed, continuing", "error", err)
		r.recorder.step(ctx, domain.EventStepWarned, rec)

	case domain.PolicyFallback:
		if err := r.fallback(ctx, logger, spec, rec, input, timeout); err != nil {
			return false, err
		}

	default:
		logger.Info("step failed, continuing", "error", err)
		r.recorder.persist(ctx, rec)
	}

	return false, nil
}

// fallback вызывает fallbackAgent с тем же разрешённым входом.
// При успехе выход fallback становится выходом шага в контексте.
// Ошибка fallback записывается в FallbackError, flow продолжается.
func (r *runner) fallback(ctx context.Context, logger *slog.Logger, spec *domain.StepSpec, rec *domain.StepRecord, input map[string]any, timeout time.Duration) error {
	if spec.FallbackAgent == "" {
		logger.Info("step failed, no fallback agent, continuing", "error", rec.Error)
		r.recorder.persist(ctx, rec)
		return nil
	}

	logger = logger.With("fallback_agent", spec.FallbackAgent)

	res, err := r.invoke(ctx, spec.FallbackAgent, input, timeout)
	if err != nil {
		rec.FallbackError = err.Error()
		if IsFatal(ctx, err) {
			return err
		}
		logger.Warn("fallback failed, continuing", "error", err)
		r.recorder.persist(ctx, rec)
		return nil
	}

	rec.Fallback = &domain.FallbackRecord{Agent: spec.FallbackAgent, Output: res.Output}
	r.execCtx.SetOutput(spec.ID, res.Output)
	logger.Info("fallback succeeded")
	r.recorder.step(ctx, domain.EventStepFallback, rec)
	return nil
}

// timeout возвращает таймаут шага: TimeoutSec шага или значение движка.
func (r *runner) timeout(spec *domain.StepSpec) time.Duration {
	if spec.TimeoutSec > 0 {
		return time.Duration(spec.TimeoutSec) * time.Second
	}
	return r.engine.stepTimeout
}

// invoke вызывает агента через Dependency Executor или напрямую.
//
// Агент, игнорирующий отмену контекста, не блокирует flow дольше
// таймаута: его горутина дорабатывает в фоне, результат отбрасывается.
func (r *runner) invoke(ctx context.Context, agent string, input map[string]any, timeout time.Duration) (*domain.Result, error) {
	call := func(ctx context.Context) (*domain.Result, error) {
		if r.meta != nil {
			return r.engine.executor.Run(ctx, r.meta, agent, input)
		}
		return r.engine.executor.Invoke(ctx, agent, input)
	}

	if timeout <= 0 {
		return call(ctx)
	}

	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		res *domain.Result
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		res, err := call(stepCtx)
		done <- outcome{res, err}
	}()

	select {
	case o := <-done:
		if o.err != nil && ctx.Err() == nil && stepCtx.Err() != nil {
			return nil, fmt.Errorf("%w: %s after %s: %w", ErrStepTimeout, agent, timeout, o.err)
		}
		return o.res, o.err
	case <-stepCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s after %s", ErrStepTimeout, agent, timeout)
	}
}

// fail завершает запуск фатальной ошибкой.
func (r *runner) fail(ctx context.Context, err error) (*domain.FlowState, error) {
	r.state.MarkFailed(err.Error())
	r.logger.Error("flow failed", "error", err)
	r.recorder.finish(ctx, domain.EventFlowFailed)
	return r.state, err
}
