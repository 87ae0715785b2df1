package units

import (
	"context"

	"github.com/shaiso/agentflow/internal/domain"
)

// EchoUnit возвращает свой вход.
//
// Если во входе есть ключ "value", выходом становится его значение,
// иначе весь вход без ключа dependencies.
type EchoUnit struct{}

// NewEchoUnit создаёт новый EchoUnit.
func NewEchoUnit() *EchoUnit {
	return &EchoUnit{}
}

// Run возвращает вход.
func (u *EchoUnit) Run(_ context.Context, input map[string]any) (*domain.Result, error) {
	if v, ok := input["value"]; ok {
		return domain.Ok(v, "echo"), nil
	}
	return domain.Ok(withoutDependencies(input), "echo"), nil
}
