package units

import (
	"context"
	"fmt"

	"github.com/shaiso/agentflow/internal/domain"
	"github.com/shaiso/agentflow/internal/engine"
)

// Ключ входа transform.
const inputMappings = "mappings"

// TransformUnit — агент трансформации данных.
//
// Строит выход по dot-путям внутри собственного входа. Пути
// записываются без префикса "$", чтобы flow engine не разрешал их
// при подстановке входа шага.
//
// Вход:
//
//	{
//	    "mappings": {
//	        "title": "dependencies.fetch.title",
//	        "first": "items.0.name"
//	    },
//	    "items": [...]
//	}
//
// Выход: {"title": ..., "first": ...}. Ненайденные пути дают null.
type TransformUnit struct{}

// NewTransformUnit создаёт новый TransformUnit.
func NewTransformUnit() *TransformUnit {
	return &TransformUnit{}
}

// Run выполняет трансформацию.
func (u *TransformUnit) Run(ctx context.Context, input map[string]any) (*domain.Result, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrUnitCancelled, ctx.Err())
	default:
	}

	mappings := GetMapString(input, inputMappings)
	if len(mappings) == 0 {
		return domain.Ok(map[string]any{}, "no mappings"), nil
	}

	outputs := make(map[string]any, len(mappings))
	missing := 0
	for key, path := range mappings {
		val := engine.Lookup(input, path)
		if engine.IsUndefined(val) {
			missing++
			val = nil
		}
		outputs[key] = val
	}

	return domain.Ok(outputs, fmt.Sprintf("mapped %d fields, %d missing", len(mappings), missing)), nil
}
