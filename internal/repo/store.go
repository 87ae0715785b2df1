package repo

import (
	"context"
	"fmt"
)

// Writer — интерфейс записи журнала и документов состояния.
//
// Ошибки записи не должны прерывать выполнение flow: вызывающий
// код логирует их и продолжает работу.
type Writer interface {
	// AppendToCollection добавляет запись в конец коллекции.
	AppendToCollection(ctx context.Context, collection string, entry map[string]any) error

	// WriteDocument записывает документ с семантикой merge:
	// поля верхнего уровня из data заменяют существующие, остальные сохраняются.
	WriteDocument(ctx context.Context, collection, id string, data map[string]any) error
}

// Reader — интерфейс чтения сохранённых данных.
type Reader interface {
	// GetDocument возвращает документ или ErrNotFound.
	GetDocument(ctx context.Context, collection, id string) (map[string]any, error)

	// ListCollection возвращает записи коллекции в порядке добавления.
	ListCollection(ctx context.Context, collection string) ([]map[string]any, error)
}

// Store — хранилище журнала и документов.
type Store interface {
	Writer
	Reader
	Close() error
}

// Драйверы хранилища.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config — настройки хранилища.
type Config struct {
	// Driver — memory, redis, postgres, sqlite.
	Driver string

	// RedisAddr — адрес Redis (host:port).
	RedisAddr string

	// RedisPrefix — префикс ключей Redis.
	RedisPrefix string

	// DBURL — DSN PostgreSQL.
	DBURL string

	// SQLitePath — путь к файлу SQLite.
	SQLitePath string
}

// Open открывает хранилище по конфигурации.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return NewMemoryStore(), nil

	case DriverRedis:
		return OpenRedisStore(ctx, cfg.RedisAddr, cfg.RedisPrefix)

	case DriverPostgres:
		pool, err := NewPool(ctx, cfg.DBURL)
		if err != nil {
			return nil, err
		}
		s := NewPostgresStore(pool)
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return s, nil

	case DriverSQLite:
		s, err := OpenSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
}

func persistenceError(op, target string, err error) error {
	return fmt.Errorf("%w: %s %s: %v", ErrPersistence, op, target, err)
}
