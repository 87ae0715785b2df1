package units

import (
	"context"
	"fmt"

	"github.com/shaiso/agentflow/internal/domain"
)

// MergeUnit возвращает результаты пререквизитов одним объектом.
//
// Выход: {"<prerequisite id>": <output>, ...}.
type MergeUnit struct{}

// NewMergeUnit создаёт новый MergeUnit.
func NewMergeUnit() *MergeUnit {
	return &MergeUnit{}
}

// Run объединяет dependencies.
func (u *MergeUnit) Run(_ context.Context, input map[string]any) (*domain.Result, error) {
	deps := GetMap(input, DependenciesKey)
	out := make(map[string]any, len(deps))
	for k, v := range deps {
		out[k] = v
	}
	return domain.Ok(out, fmt.Sprintf("merged %d results", len(out))), nil
}
