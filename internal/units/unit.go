package units

import (
	"context"
	"fmt"

	"github.com/shaiso/agentflow/internal/domain"
)

// DependenciesKey — ключ входа, под которым Dependency Executor
// передаёт результаты пререквизитов.
const DependenciesKey = "dependencies"

// Unit — интерфейс агента.
type Unit interface {
	// Run выполняет агента. Агент должен проверять ctx.Done()
	// в долгих операциях.
	Run(ctx context.Context, input map[string]any) (*domain.Result, error)
}

// UnitFunc позволяет использовать функцию как Unit.
type UnitFunc func(ctx context.Context, input map[string]any) (*domain.Result, error)

// Run вызывает f.
func (f UnitFunc) Run(ctx context.Context, input map[string]any) (*domain.Result, error) {
	return f(ctx, input)
}

// Invoke вызывает агента и нормализует результат.
//
// Ошибка агента, паника и success=false превращаются в *ExecutionError.
// nil результат считается успешным пустым результатом.
func Invoke(ctx context.Context, name string, u Unit, input map[string]any) (res *domain.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = &ExecutionError{Unit: name, Message: fmt.Sprintf("panic: %v", r)}
		}
	}()

	res, err = u.Run(ctx, input)
	if err != nil {
		return nil, &ExecutionError{Unit: name, Message: err.Error(), Err: err}
	}

	if res == nil {
		return &domain.Result{}, nil
	}

	if !res.Succeeded() {
		msg := res.Explanation
		if msg == "" {
			msg = "unit reported failure"
		}
		return nil, &ExecutionError{Unit: name, Message: msg, Result: res}
	}

	return res, nil
}

// GetString извлекает строковое значение из входа.
func GetString(input map[string]any, key string) string {
	if v, ok := input[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetInt извлекает целое значение из входа.
func GetInt(input map[string]any, key string) int {
	if v, ok := input[key]; ok {
		if f, ok := toFloat(v); ok {
			return int(f)
		}
	}
	return 0
}

// GetBool извлекает булево значение из входа.
func GetBool(input map[string]any, key string, defaultVal bool) bool {
	if v, ok := input[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

// GetMap извлекает map из входа.
func GetMap(input map[string]any, key string) map[string]any {
	if v, ok := input[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return nil
}

// GetMapString извлекает map[string]string из входа.
func GetMapString(input map[string]any, key string) map[string]string {
	if v, ok := input[key]; ok {
		switch m := v.(type) {
		case map[string]string:
			return m
		case map[string]any:
			result := make(map[string]string)
			for k, val := range m {
				if s, ok := val.(string); ok {
					result[k] = s
				}
			}
			return result
		}
	}
	return nil
}

// GetStrings извлекает список строк из входа.
func GetStrings(input map[string]any, key string) []string {
	switch v := input[key].(type) {
	case []string:
		return v
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	}
	return nil
}

// GetFloats извлекает список чисел из входа. Нечисловые элементы пропускаются.
func GetFloats(input map[string]any, key string) []float64 {
	switch v := input[key].(type) {
	case []float64:
		return v
	case []int:
		result := make([]float64, len(v))
		for i, n := range v {
			result[i] = float64(n)
		}
		return result
	case []any:
		result := make([]float64, 0, len(v))
		for _, item := range v {
			if f, ok := toFloat(item); ok {
				result = append(result, f)
			}
		}
		return result
	}
	return nil
}

// withoutDependencies возвращает копию входа без ключа dependencies.
func withoutDependencies(input map[string]any) map[string]any {
	result := make(map[string]any, len(input))
	for k, v := range input {
		if k == DependenciesKey {
			continue
		}
		result[k] = v
	}
	return result
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}
