package loader

import "errors"

// Ошибки загрузки каталога.
var (
	// ErrConfigNotFound — файл flow или метаданных отсутствует.
	ErrConfigNotFound = errors.New("config not found")

	// ErrInvalidConfig — файл не удалось разобрать.
	ErrInvalidConfig = errors.New("invalid config")
)
