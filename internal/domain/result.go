package domain

// Result — результат вызова агента.
type Result struct {
	// Output — произвольное значение, доступное следующим шагам
	// через "$steps.<id>.output".
	Output any `json:"output"`

	// Explanation — текстовое пояснение агента.
	Explanation string `json:"explanation,omitempty"`

	// Success — флаг успеха. nil означает успех.
	Success *bool `json:"success,omitempty"`
}

// Succeeded возвращает true, если агент не сообщил о неудаче.
func (r *Result) Succeeded() bool {
	return r.Success == nil || *r.Success
}

// Ok создаёт успешный результат.
func Ok(output any, explanation string) *Result {
	return &Result{Output: output, Explanation: explanation}
}

// Failed создаёт результат с success=false.
func Failed(output any, explanation string) *Result {
	f := false
	return &Result{Output: output, Explanation: explanation, Success: &f}
}
