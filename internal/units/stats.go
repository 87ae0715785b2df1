package units

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/shaiso/agentflow/internal/domain"
)

// Ключ входа stats.
const inputValues = "values"

// StatsUnit вычисляет описательную статистику.
//
// Вход: {"values": [1, 2, 3]}
//
// Выход: count, sum, mean, min, max, median, stddev (выборочное
// стандартное отклонение, 0 для одного значения).
type StatsUnit struct{}

// NewStatsUnit создаёт новый StatsUnit.
func NewStatsUnit() *StatsUnit {
	return &StatsUnit{}
}

// Run вычисляет статистику.
func (u *StatsUnit) Run(_ context.Context, input map[string]any) (*domain.Result, error) {
	values := GetFloats(input, inputValues)
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %s: values are required", ErrInvalidInput, NameStats)
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	n := float64(len(sorted))
	mean := sum / n

	var median float64
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		median = sorted[mid]
	}

	var stddev float64
	if len(sorted) > 1 {
		var sq float64
		for _, v := range sorted {
			sq += (v - mean) * (v - mean)
		}
		stddev = math.Sqrt(sq / (n - 1))
	}

	return domain.Ok(map[string]any{
		"count":  len(sorted),
		"sum":    sum,
		"mean":   mean,
		"min":    sorted[0],
		"max":    sorted[len(sorted)-1],
		"median": median,
		"stddev": stddev,
	}, fmt.Sprintf("%d values, mean %.2f", len(sorted), mean)), nil
}
