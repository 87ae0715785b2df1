package units

import (
	"net/http"
	"time"
)

// Имена встроенных агентов.
const (
	NameEcho      = "echo"
	NameFetch     = "fetch"
	NameScore     = "score"
	NameStats     = "stats"
	NameDelay     = "delay"
	NameTransform = "transform"
	NameMerge     = "merge"
)

// Options — настройки встроенных агентов.
type Options struct {
	// FetchTimeout — таймаут HTTP запроса агента fetch по умолчанию.
	FetchTimeout time.Duration

	// HTTPClient — клиент для агента fetch. Если nil, создаётся новый.
	HTTPClient *http.Client
}

// DefaultCatalog возвращает таблицу регистрации встроенных агентов.
func DefaultCatalog(opts Options) Catalog {
	return Catalog{
		NameEcho:      func() (Unit, error) { return NewEchoUnit(), nil },
		NameFetch:     func() (Unit, error) { return NewFetchUnit(opts.HTTPClient, opts.FetchTimeout), nil },
		NameScore:     func() (Unit, error) { return NewScoreUnit(), nil },
		NameStats:     func() (Unit, error) { return NewStatsUnit(), nil },
		NameDelay:     func() (Unit, error) { return NewDelayUnit(), nil },
		NameTransform: func() (Unit, error) { return NewTransformUnit(), nil },
		NameMerge:     func() (Unit, error) { return NewMergeUnit(), nil },
	}
}
