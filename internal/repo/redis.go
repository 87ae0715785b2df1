package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix — префикс ключей по умолчанию.
const DefaultRedisPrefix = "agentflow"

// RedisStore — хранилище на Redis.
//
// Коллекция — список <prefix>:<collection> (RPUSH JSON записей).
// Документ — hash <prefix>:<collection>:<id>, одно поле на ключ
// верхнего уровня, поэтому HSET даёт merge.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore создаёт хранилище поверх готового клиента.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// OpenRedisStore подключается к Redis и проверяет соединение.
func OpenRedisStore(ctx context.Context, addr, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisStore(client, prefix), nil
}

// AppendToCollection добавляет запись в конец списка.
func (s *RedisStore) AppendToCollection(ctx context.Context, collection string, entry map[string]any) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return persistenceError("append", collection, err)
	}
	if err := s.client.RPush(ctx, s.collectionKey(collection), data).Err(); err != nil {
		return persistenceError("append", collection, err)
	}
	return nil
}

// WriteDocument записывает поля документа в hash.
func (s *RedisStore) WriteDocument(ctx context.Context, collection, id string, data map[string]any) error {
	if len(data) == 0 {
		return nil
	}

	fields := make(map[string]any, len(data))
	for k, v := range data {
		encoded, err := json.Marshal(v)
		if err != nil {
			return persistenceError("write", collection+"/"+id, err)
		}
		fields[k] = string(encoded)
	}

	if err := s.client.HSet(ctx, s.documentKey(collection, id), fields).Err(); err != nil {
		return persistenceError("write", collection+"/"+id, err)
	}
	return nil
}

// GetDocument читает hash документа.
func (s *RedisStore) GetDocument(ctx context.Context, collection, id string) (map[string]any, error) {
	fields, err := s.client.HGetAll(ctx, s.documentKey(collection, id)).Result()
	if err != nil {
		return nil, persistenceError("read", collection+"/"+id, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	doc := make(map[string]any, len(fields))
	for k, raw := range fields {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, persistenceError("decode", collection+"/"+id, err)
		}
		doc[k] = v
	}
	return doc, nil
}

// ListCollection читает список коллекции.
func (s *RedisStore) ListCollection(ctx context.Context, collection string) ([]map[string]any, error) {
	items, err := s.client.LRange(ctx, s.collectionKey(collection), 0, -1).Result()
	if err != nil {
		return nil, persistenceError("read", collection, err)
	}

	result := make([]map[string]any, 0, len(items))
	for _, raw := range items {
		var entry map[string]any
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, persistenceError("decode", collection, err)
		}
		result = append(result, entry)
	}
	return result, nil
}

// Close закрывает клиент Redis.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) collectionKey(collection string) string {
	return s.prefix + ":" + collection
}

func (s *RedisStore) documentKey(collection, id string) string {
	return s.prefix + ":" + collection + ":" + id
}
