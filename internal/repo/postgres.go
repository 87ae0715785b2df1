package repo

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// postgresSchema — схема таблиц журнала и документов.
const postgresSchema = `
	CREATE TABLE IF NOT EXISTS collection_entries (
		id          BIGSERIAL PRIMARY KEY,
		collection  TEXT        NOT NULL,
		data        JSONB       NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS collection_entries_collection_idx
		ON collection_entries (collection, id);

	CREATE TABLE IF NOT EXISTS documents (
		collection  TEXT        NOT NULL,
		id          TEXT        NOT NULL,
		data        JSONB       NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (collection, id)
	);
`

// PostgresStore — хранилище на PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore создаёт новый PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate создаёт таблицы, если их нет.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return persistenceError("migrate", "postgres", err)
	}
	return nil
}

// AppendToCollection добавляет запись в коллекцию.
func (s *PostgresStore) AppendToCollection(ctx context.Context, collection string, entry map[string]any) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return persistenceError("append", collection, err)
	}

	query := `
		INSERT INTO collection_entries (collection, data)
		VALUES ($1, $2)
	`
	if _, err := s.pool.Exec(ctx, query, collection, data); err != nil {
		return persistenceError("append", collection, err)
	}
	return nil
}

// WriteDocument выполняет upsert документа с merge полей верхнего уровня.
func (s *PostgresStore) WriteDocument(ctx context.Context, collection, id string, data map[string]any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return persistenceError("write", collection+"/"+id, err)
	}

	query := `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO UPDATE
		SET data = documents.data || EXCLUDED.data,
		    updated_at = now()
	`
	if _, err := s.pool.Exec(ctx, query, collection, id, payload); err != nil {
		return persistenceError("write", collection+"/"+id, err)
	}
	return nil
}

// GetDocument возвращает документ по ID.
func (s *PostgresStore) GetDocument(ctx context.Context, collection, id string) (map[string]any, error) {
	query := `
		SELECT data
		FROM documents
		WHERE collection = $1 AND id = $2
	`

	var raw []byte
	err := s.pool.QueryRow(ctx, query, collection, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, persistenceError("read", collection+"/"+id, err)
	}

	return decodeDocument(raw)
}

// ListCollection возвращает записи коллекции в порядке добавления.
func (s *PostgresStore) ListCollection(ctx context.Context, collection string) ([]map[string]any, error) {
	query := `
		SELECT data
		FROM collection_entries
		WHERE collection = $1
		ORDER BY id
	`

	rows, err := s.pool.Query(ctx, query, collection)
	if err != nil {
		return nil, persistenceError("read", collection, err)
	}
	defer rows.Close()

	result := make([]map[string]any, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, persistenceError("scan", collection, err)
		}
		entry, err := decodeDocument(raw)
		if err != nil {
			return nil, err
		}
		result = append(result, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, persistenceError("read", collection, err)
	}
	return result, nil
}

// Close закрывает пул соединений.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func decodeDocument(raw []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, persistenceError("decode", "document", err)
	}
	return doc, nil
}
