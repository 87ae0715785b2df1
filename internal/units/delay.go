package units

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/agentflow/internal/domain"
)

// Ключи входа delay.
const (
	inputDurationSec = "duration_sec"
	inputDurationMs  = "duration_ms"
)

// DelayUnit — агент задержки.
//
// Приостанавливает выполнение на указанное время.
// Поддерживает отмену через context.
//
// Вход:
//
//	{
//	    "duration_sec": 10,    // задержка в секундах
//	    // или
//	    "duration_ms": 5000    // задержка в миллисекундах
//	}
type DelayUnit struct{}

// NewDelayUnit создаёт новый DelayUnit.
func NewDelayUnit() *DelayUnit {
	return &DelayUnit{}
}

// Run выполняет задержку.
func (u *DelayUnit) Run(ctx context.Context, input map[string]any) (*domain.Result, error) {
	duration, err := u.parseDuration(input)
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrUnitCancelled, ctx.Err())
	case <-timer.C:
		return domain.Ok(map[string]any{
			"duration_ms": duration.Milliseconds(),
		}, fmt.Sprintf("waited %s", duration)), nil
	}
}

// parseDuration извлекает длительность из входа.
func (u *DelayUnit) parseDuration(input map[string]any) (time.Duration, error) {
	if sec := GetInt(input, inputDurationSec); sec > 0 {
		return time.Duration(sec) * time.Second, nil
	}

	if ms := GetInt(input, inputDurationMs); ms > 0 {
		return time.Duration(ms) * time.Millisecond, nil
	}

	return 0, fmt.Errorf("%w: %s: duration_sec or duration_ms required",
		ErrInvalidInput, NameDelay)
}
