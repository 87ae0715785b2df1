package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
	"gopkg.in/yaml.v3"

	"github.com/shaiso/agentflow/internal/domain"

	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// Каталоги и имена файлов.
const (
	FlowsDir     = "flows"
	AgentsDir    = "agents"
	MetadataName = "metadata"
)

// extensions — поддерживаемые расширения в порядке поиска.
var extensions = []string{".json", ".yaml", ".yml"}

// Catalog — каталог flow и метаданных в blob-хранилище.
type Catalog struct {
	bucket *blob.Bucket
	prefix string
}

// Open открывает каталог по URL bucket'а (например, "file:///etc/agentflow").
func Open(ctx context.Context, bucketURL string) (*Catalog, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open catalog bucket: %w", err)
	}
	return New(bucket, ""), nil
}

// New создаёт каталог поверх открытого bucket'а.
// prefix добавляется ко всем ключам (например, "prod/").
func New(bucket *blob.Bucket, prefix string) *Catalog {
	return &Catalog{bucket: bucket, prefix: prefix}
}

// LoadFlow читает определение flow по ID.
func (c *Catalog) LoadFlow(ctx context.Context, flowID string) (*domain.FlowConfig, error) {
	if flowID == "" || strings.ContainsAny(flowID, `/\`) {
		return nil, fmt.Errorf("%w: flow %q", ErrConfigNotFound, flowID)
	}

	var cfg domain.FlowConfig
	key, err := c.read(ctx, path.Join(FlowsDir, flowID), &cfg)
	if err != nil {
		return nil, err
	}

	if cfg.ID == "" {
		cfg.ID = flowID
	}
	if cfg.ID != flowID {
		return nil, fmt.Errorf("%w: %s: id %q does not match file name", ErrInvalidConfig, key, cfg.ID)
	}

	return &cfg, nil
}

// LoadMetadata читает каталог метаданных агентов.
func (c *Catalog) LoadMetadata(ctx context.Context) (domain.Metadata, error) {
	meta := domain.Metadata{}
	if _, err := c.read(ctx, path.Join(AgentsDir, MetadataName), &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// ListFlows возвращает ID всех flow каталога.
func (c *Catalog) ListFlows(ctx context.Context) ([]string, error) {
	iter := c.bucket.List(&blob.ListOptions{Prefix: c.prefix + FlowsDir + "/"})

	seen := make(map[string]bool)
	ids := make([]string, 0)
	for {
		obj, err := iter.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("list flows: %w", err)
		}
		if obj.IsDir {
			continue
		}

		name := path.Base(obj.Key)
		ext := path.Ext(name)
		if !supported(ext) {
			continue
		}
		id := strings.TrimSuffix(name, ext)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// SaveFlow записывает определение flow в формате JSON.
func (c *Catalog) SaveFlow(ctx context.Context, cfg *domain.FlowConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal flow: %w", err)
	}
	return c.bucket.WriteAll(ctx, c.prefix+path.Join(FlowsDir, cfg.ID)+".json", data, nil)
}

// SaveMetadata записывает каталог метаданных в формате JSON.
func (c *Catalog) SaveMetadata(ctx context.Context, meta domain.Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	return c.bucket.WriteAll(ctx, c.prefix+path.Join(AgentsDir, MetadataName)+".json", data, nil)
}

// Close закрывает bucket.
func (c *Catalog) Close() error {
	return c.bucket.Close()
}

// read ищет файл base с одним из поддерживаемых расширений и
// декодирует его в v. Возвращает найденный ключ.
func (c *Catalog) read(ctx context.Context, base string, v any) (string, error) {
	for _, ext := range extensions {
		key := c.prefix + base + ext

		data, err := c.bucket.ReadAll(ctx, key)
		if err != nil {
			if gcerrors.Code(err) == gcerrors.NotFound {
				continue
			}
			return key, fmt.Errorf("read %s: %w", key, err)
		}

		if err := decode(ext, data, v); err != nil {
			return key, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
		}
		return key, nil
	}

	return "", fmt.Errorf("%w: %s", ErrConfigNotFound, c.prefix+base)
}

func decode(ext string, data []byte, v any) error {
	if ext == ".json" {
		return json.Unmarshal(data, v)
	}
	return yaml.Unmarshal(data, v)
}

func supported(ext string) bool {
	for _, e := range extensions {
		if e == ext {
			return true
		}
	}
	return false
}
