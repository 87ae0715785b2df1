package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// sqliteSchema — схема таблиц журнала и документов.
const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS collection_entries (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		collection  TEXT NOT NULL,
		data        TEXT NOT NULL,
		created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
	);
	CREATE INDEX IF NOT EXISTS collection_entries_collection_idx
		ON collection_entries (collection, id);

	CREATE TABLE IF NOT EXISTS documents (
		collection  TEXT NOT NULL,
		id          TEXT NOT NULL,
		data        TEXT NOT NULL,
		updated_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
		PRIMARY KEY (collection, id)
	);
`

// SQLiteStore — локальное хранилище на SQLite.
type SQLiteStore struct {
	conn *sql.DB
	path string
}

// OpenSQLiteStore открывает базу SQLite, создавая родительский каталог.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty sqlite path", ErrPersistence)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL для конкурентного чтения
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteStore{conn: conn, path: path}, nil
}

// Migrate создаёт таблицы, если их нет.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, sqliteSchema); err != nil {
		return persistenceError("migrate", "sqlite", err)
	}
	return nil
}

// Path возвращает путь к файлу базы.
func (s *SQLiteStore) Path() string {
	return s.path
}

// AppendToCollection добавляет запись в коллекцию.
func (s *SQLiteStore) AppendToCollection(ctx context.Context, collection string, entry map[string]any) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return persistenceError("append", collection, err)
	}

	query := `INSERT INTO collection_entries (collection, data) VALUES (?, ?)`
	if _, err := s.conn.ExecContext(ctx, query, collection, string(data)); err != nil {
		return persistenceError("append", collection, err)
	}
	return nil
}

// WriteDocument выполняет upsert документа; merge через json_patch.
func (s *SQLiteStore) WriteDocument(ctx context.Context, collection, id string, data map[string]any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return persistenceError("write", collection+"/"+id, err)
	}

	query := `
		INSERT INTO documents (collection, id, data)
		VALUES (?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE
		SET data = json_patch(documents.data, excluded.data),
		    updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
	`
	if _, err := s.conn.ExecContext(ctx, query, collection, id, string(payload)); err != nil {
		return persistenceError("write", collection+"/"+id, err)
	}
	return nil
}

// GetDocument возвращает документ по ID.
func (s *SQLiteStore) GetDocument(ctx context.Context, collection, id string) (map[string]any, error) {
	var raw string
	err := s.conn.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, persistenceError("read", collection+"/"+id, err)
	}
	return decodeDocument([]byte(raw))
}

// ListCollection возвращает записи коллекции в порядке добавления.
func (s *SQLiteStore) ListCollection(ctx context.Context, collection string) ([]map[string]any, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT data FROM collection_entries WHERE collection = ? ORDER BY id`,
		collection,
	)
	if err != nil {
		return nil, persistenceError("read", collection, err)
	}
	defer rows.Close()

	result := make([]map[string]any, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, persistenceError("scan", collection, err)
		}
		entry, err := decodeDocument([]byte(raw))
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

// Close закрывает соединение с базой.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
