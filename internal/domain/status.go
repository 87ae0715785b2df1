package domain

// ErrorPolicy — политика обработки ошибки шага.
//
// Применяется только к ошибкам выполнения агента. Ошибки конфигурации
// и структуры (агент не найден, отключён, цикл зависимостей) всегда
// прерывают flow.
type ErrorPolicy string

const (
	// PolicyAbort — прекратить выполнение flow, completed остаётся неустановленным.
	PolicyAbort ErrorPolicy = "abort"

	// PolicyWarn — записать ошибку, залогировать предупреждение и продолжить.
	PolicyWarn ErrorPolicy = "warn"

	// PolicyFallback — вызвать fallbackAgent с тем же входом.
	PolicyFallback ErrorPolicy = "fallback"

	// PolicyContinue — записать ошибку и продолжить.
	PolicyContinue ErrorPolicy = "continue"
)

// IsValid возвращает true для известных политик (пустая строка допустима).
func (p ErrorPolicy) IsValid() bool {
	switch p {
	case "", PolicyAbort, PolicyWarn, PolicyFallback, PolicyContinue:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление ErrorPolicy.
func (p ErrorPolicy) String() string {
	return string(p)
}
