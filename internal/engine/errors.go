package engine

import (
	"errors"
	"strings"
)

// Ошибки валидации FlowConfig.
var (
	// ErrEmptySteps — flow не содержит шагов.
	ErrEmptySteps = errors.New("flow has no steps")

	// ErrEmptyStepID — шаг не имеет ID.
	ErrEmptyStepID = errors.New("step has empty ID")

	// ErrDuplicateStepID — несколько шагов с одинаковым ID.
	ErrDuplicateStepID = errors.New("duplicate step ID")

	// ErrEmptyAgent — шаг не указывает агента.
	ErrEmptyAgent = errors.New("step has empty agent")

	// ErrUnknownPolicy — неизвестная политика onError.
	ErrUnknownPolicy = errors.New("unknown error policy")

	// ErrInvalidTimeout — отрицательный таймаут шага.
	ErrInvalidTimeout = errors.New("invalid step timeout")
)

// Ошибки графа зависимостей агентов.
var (
	// ErrMissingDependency — агент зависит от агента, отсутствующего в метаданных.
	ErrMissingDependency = errors.New("unit depends on unknown unit")

	// ErrCyclicDependency — обнаружен цикл в зависимостях.
	ErrCyclicDependency = errors.New("circular dependency")

	// ErrUnknownUnit — агент отсутствует в метаданных.
	ErrUnknownUnit = errors.New("unit has no metadata")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	StepID  string // ID шага, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.StepID != "" {
		return "step " + e.StepID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(stepID, field, message string, err error) *ValidationError {
	return &ValidationError{
		StepID:  stepID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// CycleError — цикл в зависимостях агентов.
//
// Path содержит полный путь, замыкающийся на повторно встреченном
// агенте: [A, B, A].
type CycleError struct {
	Path []string
}

// Error реализует интерфейс error.
func (e *CycleError) Error() string {
	return ErrCyclicDependency.Error() + ": " + strings.Join(e.Path, " -> ")
}

// Unwrap возвращает ErrCyclicDependency.
func (e *CycleError) Unwrap() error {
	return ErrCyclicDependency
}

// NewCycleError создаёт ошибку цикла. Путь копируется.
func NewCycleError(path []string) *CycleError {
	p := make([]string, len(path))
	copy(p, path)
	return &CycleError{Path: p}
}
