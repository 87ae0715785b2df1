package units

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/shaiso/agentflow/internal/domain"
)

// Ключи входа score.
const (
	inputText      = "text"
	inputKeywords  = "keywords"
	inputThreshold = "threshold"
)

// ScoreUnit оценивает текст по списку ключевых слов.
//
// Вход:
//
//	{
//	    "text": "...",
//	    "keywords": ["go", "flow"],
//	    "threshold": 50      // необязательно: при score ниже порога success=false
//	}
//
// Выход:
//
//	{
//	    "score": 50,                      // процент найденных ключевых слов
//	    "matches": {"go": 2, "flow": 0},  // число вхождений
//	    "words": 12
//	}
type ScoreUnit struct{}

// NewScoreUnit создаёт новый ScoreUnit.
func NewScoreUnit() *ScoreUnit {
	return &ScoreUnit{}
}

// Run вычисляет оценку.
func (u *ScoreUnit) Run(_ context.Context, input map[string]any) (*domain.Result, error) {
	text := GetString(input, inputText)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %s: text is required", ErrInvalidInput, NameScore)
	}

	keywords := GetStrings(input, inputKeywords)
	if len(keywords) == 0 {
		return nil, fmt.Errorf("%w: %s: keywords are required", ErrInvalidInput, NameScore)
	}

	words := tokenize(text)
	counts := make(map[string]int, len(words))
	for _, w := range words {
		counts[w]++
	}

	matches := make(map[string]any, len(keywords))
	found := 0
	for _, kw := range keywords {
		n := counts[strings.ToLower(kw)]
		matches[kw] = n
		if n > 0 {
			found++
		}
	}

	score := math.Round(float64(found)/float64(len(keywords))*10000) / 100
	output := map[string]any{
		"score":   score,
		"matches": matches,
		"words":   len(words),
	}
	explanation := fmt.Sprintf("matched %d of %d keywords", found, len(keywords))

	if _, ok := input[inputThreshold]; ok {
		threshold, _ := toFloat(input[inputThreshold])
		if score < threshold {
			return domain.Failed(output, fmt.Sprintf("%s, score %.2f below threshold %.2f", explanation, score, threshold)), nil
		}
	}

	return domain.Ok(output, explanation), nil
}

// tokenize разбивает текст на слова в нижнем регистре.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
