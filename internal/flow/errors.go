package flow

import (
	"context"
	"errors"

	"github.com/shaiso/agentflow/internal/engine"
	"github.com/shaiso/agentflow/internal/executor"
	"github.com/shaiso/agentflow/internal/loader"
	"github.com/shaiso/agentflow/internal/units"
)

// Ошибки Flow Engine.
var (
	// ErrEmptyFlowID — запрос без ID flow.
	ErrEmptyFlowID = errors.New("flow id is required")

	// ErrNoFlowSource — Run вызван без источника конфигураций.
	ErrNoFlowSource = errors.New("flow source is not configured")

	// ErrInvalidFlow — конфигурация flow не прошла валидацию.
	ErrInvalidFlow = errors.New("invalid flow config")

	// ErrStepTimeout — агент шага не уложился в таймаут.
	ErrStepTimeout = errors.New("step timed out")
)

// IsFatal сообщает, прерывает ли ошибка запуск независимо от политики шага.
//
// Фатальны ошибки конфигурации и структуры: отсутствующий или невалидный
// flow, неизвестный или некорректный агент, выключенный агент, цикл
// зависимостей, а также отмена контекста вызывающего.
func IsFatal(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, loader.ErrConfigNotFound) ||
		errors.Is(err, loader.ErrInvalidConfig) ||
		errors.Is(err, ErrInvalidFlow) ||
		errors.Is(err, units.ErrUnitNotFound) ||
		errors.Is(err, units.ErrInvalidUnit) ||
		errors.Is(err, executor.ErrUnitDisabled) ||
		errors.Is(err, engine.ErrCyclicDependency)
}
