package domain

// FlowConfig — декларативное описание flow.
//
// Flow — упорядоченный список шагов, каждый из которых вызывает
// один агент (unit). Шаги выполняются строго последовательно,
// в порядке объявления.
type FlowConfig struct {
	// ID — идентификатор flow (совпадает с именем файла в каталоге).
	ID string `json:"id" yaml:"id"`

	// Name — человекочитаемое имя.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Description — описание назначения flow.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Steps — шаги в порядке выполнения.
	Steps []StepSpec `json:"steps" yaml:"steps"`
}

// StepSpec — определение шага flow.
type StepSpec struct {
	// ID — уникальный идентификатор шага в рамках flow.
	// Используется в ссылках вида "$steps.<id>.output".
	ID string `json:"id" yaml:"id"`

	// Agent — имя unit'а в реестре.
	Agent string `json:"agent" yaml:"agent"`

	// Input — шаблон входных данных. Может содержать плейсхолдеры
	// ("$input.url", "$steps.fetch.output.title") на любом уровне вложенности.
	Input any `json:"input,omitempty" yaml:"input,omitempty"`

	// OnError — политика обработки ошибки шага.
	// Пустое значение эквивалентно "abort".
	OnError ErrorPolicy `json:"onError,omitempty" yaml:"onError,omitempty"`

	// FallbackAgent — агент, вызываемый при политике "fallback".
	FallbackAgent string `json:"fallbackAgent,omitempty" yaml:"fallbackAgent,omitempty"`

	// TimeoutSec — таймаут шага в секундах.
	// Переопределяет таймаут движка по умолчанию.
	TimeoutSec int `json:"timeoutSec,omitempty" yaml:"timeoutSec,omitempty"`
}

// Policy возвращает эффективную политику шага.
func (s StepSpec) Policy() ErrorPolicy {
	if s.OnError == "" {
		return PolicyAbort
	}
	return s.OnError
}
