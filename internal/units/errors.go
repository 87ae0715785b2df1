package units

import (
	"errors"
	"fmt"

	"github.com/shaiso/agentflow/internal/domain"
)

// Ошибки реестра и агентов.
var (
	// ErrUnitNotFound — агент с таким именем не зарегистрирован.
	ErrUnitNotFound = errors.New("unit not found")

	// ErrInvalidUnit — регистрация не даёт вызываемого агента.
	ErrInvalidUnit = errors.New("invalid unit")

	// ErrUnitExecution — агент завершился с ошибкой или вернул success=false.
	ErrUnitExecution = errors.New("unit execution failed")

	// ErrInvalidInput — невалидный вход агента.
	ErrInvalidInput = errors.New("invalid unit input")

	// ErrUnitCancelled — выполнение агента отменено.
	ErrUnitCancelled = errors.New("unit execution cancelled")
)

// ExecutionError — ошибка выполнения агента.
type ExecutionError struct {
	Unit    string         // имя агента
	Message string         // описание ошибки
	Result  *domain.Result // результат при success=false
	Err     error          // исходная ошибка агента
}

// Error реализует интерфейс error.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("unit %s: %s", e.Unit, e.Message)
}

// Unwrap возвращает ErrUnitExecution и исходную ошибку.
func (e *ExecutionError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrUnitExecution, e.Err}
	}
	return []error{ErrUnitExecution}
}

// IsExecutionError проверяет, является ли ошибка ошибкой выполнения агента.
func IsExecutionError(err error) bool {
	var e *ExecutionError
	return errors.As(err, &e)
}
