package executor

import "errors"

// Ошибки Dependency Executor.
var (
	// ErrUnitDisabled — агент отсутствует в метаданных или отключён.
	ErrUnitDisabled = errors.New("unit disabled")

	// ErrNilInvocation — Execute вызван без Invocation.
	ErrNilInvocation = errors.New("nil invocation")
)
