package engine

import (
	"reflect"
	"strconv"
	"strings"
)

// PlaceholderPrefix — префикс строки-ссылки на значение контекста.
const PlaceholderPrefix = "$"

// undefined — тип значения Undefined.
type undefined struct{}

// Undefined — значение плейсхолдера, путь которого не найден в контексте.
//
// Отличается от nil: nil означает "значение есть и равно null",
// Undefined означает "такого пути нет". При сериализации в JSON
// превращается в null.
var Undefined any = undefined{}

// MarshalJSON сериализует Undefined как null.
func (undefined) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String возвращает "undefined".
func (undefined) String() string {
	return "undefined"
}

// IsUndefined возвращает true, если v — Undefined.
func IsUndefined(v any) bool {
	_, ok := v.(undefined)
	return ok
}

// ExecutionContext — контекст выполнения flow.
//
// Содержит исходный вход flow и выходы выполненных шагов.
// Выходы только добавляются: повторная запись шага игнорируется.
type ExecutionContext struct {
	input any
	steps map[string]any
	order []string
}

// NewExecutionContext создаёт контекст с входом flow.
func NewExecutionContext(input any) *ExecutionContext {
	return &ExecutionContext{
		input: input,
		steps: make(map[string]any),
	}
}

// SetOutput записывает выход шага. Возвращает false, если шаг уже записан.
func (c *ExecutionContext) SetOutput(stepID string, output any) bool {
	if _, exists := c.steps[stepID]; exists {
		return false
	}
	c.steps[stepID] = output
	c.order = append(c.order, stepID)
	return true
}

// Output возвращает выход шага.
func (c *ExecutionContext) Output(stepID string) (any, bool) {
	out, ok := c.steps[stepID]
	return out, ok
}

// StepIDs возвращает ID записанных шагов в порядке записи.
func (c *ExecutionContext) StepIDs() []string {
	ids := make([]string, len(c.order))
	copy(ids, c.order)
	return ids
}

// Data возвращает структуру, против которой разрешаются плейсхолдеры:
//
//	{"input": <вход flow>, "steps": {"<id>": {"output": <выход>}}}
func (c *ExecutionContext) Data() map[string]any {
	steps := make(map[string]any, len(c.steps))
	for id, out := range c.steps {
		steps[id] = map[string]any{"output": out}
	}
	return map[string]any{
		"input": c.input,
		"steps": steps,
	}
}

// Resolve рекурсивно подставляет плейсхолдеры в value.
//
// Правила:
//   - строка "$a.b.c" заменяется значением по пути a.b.c в ctx;
//   - "$" заменяется всем контекстом;
//   - "$$..." экранирует префикс и возвращает строку без первого "$";
//   - отсутствующий или null промежуточный сегмент даёт Undefined;
//   - слайсы и map обходятся рекурсивно, структура сохраняется;
//   - остальные значения возвращаются без изменений.
//
// Resolve не изменяет value и ctx.
func Resolve(value any, ctx map[string]any) any {
	switch v := value.(type) {
	case nil:
		return nil

	case string:
		return resolveString(v, ctx)

	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			result[key] = Resolve(val, ctx)
		}
		return result

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = Resolve(val, ctx)
		}
		return result

	case map[string]string:
		result := make(map[string]any, len(v))
		for key, val := range v {
			result[key] = resolveString(val, ctx)
		}
		return result

	case []string:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = resolveString(val, ctx)
		}
		return result

	default:
		// Для остальных типов (int, float, bool) возвращаем как есть
		return value
	}
}

// ResolveInput разрешает шаблон входа шага и приводит результат к map.
//
// nil и Undefined дают пустую map, не-map значения
// оборачиваются в {"value": v}.
func ResolveInput(template any, ctx map[string]any) map[string]any {
	resolved := Resolve(template, ctx)
	switch v := resolved.(type) {
	case map[string]any:
		return v
	case nil:
		return map[string]any{}
	default:
		if IsUndefined(v) {
			return map[string]any{}
		}
		return map[string]any{"value": v}
	}
}

// IsPlaceholder проверяет, является ли строка ссылкой на контекст.
func IsPlaceholder(s string) bool {
	return strings.HasPrefix(s, PlaceholderPrefix) && !strings.HasPrefix(s, "$$")
}

func resolveString(s string, ctx map[string]any) any {
	if !strings.HasPrefix(s, PlaceholderPrefix) {
		return s
	}
	if strings.HasPrefix(s, "$$") {
		return s[1:]
	}
	return Lookup(ctx, s[1:])
}

// Lookup возвращает значение по dot-пути в root.
//
// Пустой путь возвращает root. Числовые сегменты индексируют
// слайсы. Если сегмент отсутствует или промежуточное значение
// равно nil, возвращается Undefined.
func Lookup(root any, path string) any {
	if path == "" {
		return root
	}

	current := root
	for _, segment := range strings.Split(path, ".") {
		if current == nil || IsUndefined(current) {
			return Undefined
		}
		next, ok := child(current, segment)
		if !ok {
			return Undefined
		}
		current = next
	}
	return current
}

// child возвращает дочернее значение по имени сегмента.
func child(current any, segment string) (any, bool) {
	switch v := current.(type) {
	case map[string]any:
		val, ok := v[segment]
		return val, ok

	case []any:
		i, ok := index(segment, len(v))
		if !ok {
			return nil, false
		}
		return v[i], true

	case map[string]string:
		val, ok := v[segment]
		return val, ok

	case []string:
		i, ok := index(segment, len(v))
		if !ok {
			return nil, false
		}
		return v[i], true
	}

	// Типизированные map и слайсы (например, map[string]int)
	rv := reflect.ValueOf(current)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		val := rv.MapIndex(reflect.ValueOf(segment).Convert(rv.Type().Key()))
		if !val.IsValid() {
			return nil, false
		}
		return val.Interface(), true

	case reflect.Slice, reflect.Array:
		i, ok := index(segment, rv.Len())
		if !ok {
			return nil, false
		}
		return rv.Index(i).Interface(), true
	}

	return nil, false
}

func index(segment string, length int) (int, bool) {
	i, err := strconv.Atoi(segment)
	if err != nil || i < 0 || i >= length {
		return 0, false
	}
	return i, true
}
