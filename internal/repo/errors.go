package repo

import "errors"

// Общие ошибки хранилищ.
var (
	// ErrNotFound — документ не найден.
	ErrNotFound = errors.New("not found")

	// ErrPersistence — ошибка записи или чтения хранилища.
	ErrPersistence = errors.New("persistence failed")

	// ErrUnknownDriver — неизвестный драйвер хранилища.
	ErrUnknownDriver = errors.New("unknown store driver")
)
