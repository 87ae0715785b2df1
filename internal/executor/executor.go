package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/agentflow/internal/domain"
	"github.com/shaiso/agentflow/internal/engine"
	"github.com/shaiso/agentflow/internal/telemetry"
	"github.com/shaiso/agentflow/internal/units"
)

// Config — конфигурация Executor.
type Config struct {
	// Registry — реестр агентов.
	Registry *units.Registry

	// Logger — логгер.
	Logger *slog.Logger

	// Metrics — Prometheus метрики (опционально).
	Metrics *telemetry.Metrics
}

// Executor — Dependency Executor.
//
// Не хранит состояние между вызовами: кэш и стек живут
// в Invocation одного верхнеуровневого вызова.
type Executor struct {
	registry *units.Registry
	logger   *slog.Logger
	metrics  *telemetry.Metrics
}

// New создаёт Executor.
func New(cfg Config) *Executor {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Registry == nil {
		cfg.Registry = units.NewRegistry()
	}
	return &Executor{
		registry: cfg.Registry,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

// Invocation — состояние одного верхнеуровневого вызова.
type Invocation struct {
	// Metadata — снимок метаданных агентов.
	Metadata domain.Metadata

	// Results — кэш результатов: каждый агент выполняется не более одного раза.
	Results map[string]*domain.Result

	// Stack — цепочка агентов, выполняющихся в данный момент.
	Stack []string
}

// NewInvocation создаёт Invocation с пустым кэшем и стеком.
func NewInvocation(meta domain.Metadata) *Invocation {
	return &Invocation{
		Metadata: meta,
		Results:  make(map[string]*domain.Result),
		Stack:    make([]string, 0),
	}
}

// Run выполняет агента с пререквизитами в новом Invocation.
func (e *Executor) Run(ctx context.Context, meta domain.Metadata, unitID string, input map[string]any) (*domain.Result, error) {
	return e.Execute(ctx, NewInvocation(meta), unitID, input)
}

// Execute выполняет агента unitID.
//
// Порядок:
//  1. Результат из кэша возвращается без повторного выполнения.
//  2. Агент в стеке — цикл, возвращается *engine.CycleError с полным путём.
//  3. Метаданные отсутствуют или enabled=false — ErrUnitDisabled.
//  4. Пререквизиты выполняются последовательно, в порядке объявления,
//     с тем же входом; их выходы собираются в dependencies.
//  5. Агент вызывается с {...input, dependencies}; результат кэшируется.
func (e *Executor) Execute(ctx context.Context, inv *Invocation, unitID string, input map[string]any) (*domain.Result, error) {
	if inv == nil {
		return nil, ErrNilInvocation
	}

	if res, ok := inv.Results[unitID]; ok {
		return res, nil
	}

	for _, id := range inv.Stack {
		if id == unitID {
			return nil, engine.NewCycleError(append(inv.Stack, unitID))
		}
	}

	meta, ok := inv.Metadata.Get(unitID)
	if !ok || !meta.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrUnitDisabled, unitID)
	}

	inv.Stack = append(inv.Stack, unitID)
	defer func() {
		inv.Stack = inv.Stack[:len(inv.Stack)-1]
	}()

	base := withoutDependencies(input)

	bundle := make(map[string]any, len(meta.DependsOn))
	for _, depID := range meta.DependsOn {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := e.Execute(ctx, inv, depID, base)
		if err != nil {
			return nil, err
		}
		bundle[depID] = res.Output
	}

	unit, err := e.registry.Load(unitID)
	if err != nil {
		return nil, err
	}

	callInput := make(map[string]any, len(base)+1)
	for k, v := range base {
		callInput[k] = v
	}
	callInput[units.DependenciesKey] = bundle

	e.logger.Debug("invoking unit",
		"unit", unitID,
		"depth", len(inv.Stack),
		"dependencies", len(bundle),
	)

	start := time.Now()
	res, err := units.Invoke(ctx, unitID, unit, callInput)
	e.metrics.ObserveUnit(unitID, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	inv.Results[unitID] = res
	return res, nil
}

// Invoke вызывает агента напрямую через реестр, без метаданных
// и пререквизитов.
func (e *Executor) Invoke(ctx context.Context, unitID string, input map[string]any) (*domain.Result, error) {
	unit, err := e.registry.Load(unitID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := units.Invoke(ctx, unitID, unit, input)
	e.metrics.ObserveUnit(unitID, time.Since(start), err)
	return res, err
}

// Registry возвращает реестр агентов.
func (e *Executor) Registry() *units.Registry {
	return e.registry
}

func withoutDependencies(input map[string]any) map[string]any {
	result := make(map[string]any, len(input))
	for k, v := range input {
		if k == units.DependenciesKey {
			continue
		}
		result[k] = v
	}
	return result
}
