// Package config загружает конфигурацию сервисов agentflow.
//
// Источники в порядке приоритета:
//  1. Переменные окружения (API_PORT, STORE_DRIVER, ...).
//  2. YAML файл из AGENTFLOW_CONFIG (опционально).
//  3. Значения по умолчанию.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/shaiso/agentflow/internal/repo"
)

// EnvConfigFile — переменная окружения с путём к YAML файлу.
const EnvConfigFile = "AGENTFLOW_CONFIG"

// ErrInvalidConfig — конфигурация не прошла валидацию.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config — конфигурация сервиса.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Log      LogConfig      `mapstructure:"log"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Store    StoreConfig    `mapstructure:"store"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Engine   EngineConfig   `mapstructure:"engine"`
}

// APIConfig — HTTP API.
type APIConfig struct {
	Port int `mapstructure:"port"`
}

// LogConfig — логирование.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CatalogConfig — каталог flow и метаданных агентов.
type CatalogConfig struct {
	// URL — gocloud.dev blob URL (file://, mem://, s3://, gs://).
	URL string `mapstructure:"url"`

	// Metadata — выполнять шаги через Dependency Executor
	// по agents/metadata.*.
	Metadata bool `mapstructure:"metadata"`
}

// StoreConfig — хранилище состояния и журнала.
type StoreConfig struct {
	Driver      string `mapstructure:"driver"`
	RedisAddr   string `mapstructure:"redis_addr"`
	RedisPrefix string `mapstructure:"redis_prefix"`
	DBURL       string `mapstructure:"db_url"`
	SQLitePath  string `mapstructure:"sqlite_path"`
}

// RabbitMQConfig — брокер событий и асинхронных запусков.
// Пустой URL отключает RabbitMQ.
type RabbitMQConfig struct {
	URL string `mapstructure:"url"`
}

// EngineConfig — параметры выполнения flow.
type EngineConfig struct {
	// StepTimeout — таймаут шага по умолчанию, 0 — без таймаута.
	StepTimeout time.Duration `mapstructure:"step_timeout"`

	// FetchTimeout — таймаут HTTP запросов агента fetch.
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

// env — соответствие ключей конфигурации переменным окружения.
var env = map[string]string{
	"api.port":             "API_PORT",
	"log.level":            "LOG_LEVEL",
	"log.format":           "LOG_FORMAT",
	"catalog.url":          "CATALOG_URL",
	"catalog.metadata":     "CATALOG_METADATA",
	"store.driver":         "STORE_DRIVER",
	"store.redis_addr":     "REDIS_ADDR",
	"store.redis_prefix":   "REDIS_PREFIX",
	"store.db_url":         "DB_URL",
	"store.sqlite_path":    "SQLITE_PATH",
	"rabbitmq.url":         "RABBITMQ_URL",
	"engine.step_timeout":  "STEP_TIMEOUT",
	"engine.fetch_timeout": "FETCH_TIMEOUT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("catalog.url", "file:///var/lib/agentflow/catalog")
	v.SetDefault("catalog.metadata", false)
	v.SetDefault("store.driver", repo.DriverMemory)
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_prefix", "agentflow")
	v.SetDefault("store.db_url", repo.DefaultDBURL)
	v.SetDefault("store.sqlite_path", "agentflow.db")
	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("engine.step_timeout", 60*time.Second)
	v.SetDefault("engine.fetch_timeout", 30*time.Second)
}

// Load читает конфигурацию из значений по умолчанию, файла
// AGENTFLOW_CONFIG и переменных окружения.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if err := v.BindEnv("config_file", EnvConfigFile); err != nil {
		return nil, fmt.Errorf("binding %s: %w", EnvConfigFile, err)
	}
	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config from %s: %w", path, err)
		}
	}

	for key, name := range env {
		if err := v.BindEnv(key, name); err != nil {
			return nil, fmt.Errorf("binding %s: %w", name, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет значения конфигурации.
func (c *Config) Validate() error {
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("%w: api.port out of range: %d", ErrInvalidConfig, c.API.Port)
	}
	if c.Catalog.URL == "" {
		return fmt.Errorf("%w: catalog.url is required", ErrInvalidConfig)
	}

	switch c.Store.Driver {
	case repo.DriverMemory, repo.DriverRedis, repo.DriverPostgres, repo.DriverSQLite:
	default:
		return fmt.Errorf("%w: unknown store driver: %q", ErrInvalidConfig, c.Store.Driver)
	}

	if c.Engine.StepTimeout < 0 {
		return fmt.Errorf("%w: engine.step_timeout is negative", ErrInvalidConfig)
	}
	if c.Engine.FetchTimeout < 0 {
		return fmt.Errorf("%w: engine.fetch_timeout is negative", ErrInvalidConfig)
	}
	return nil
}

// Addr возвращает адрес HTTP сервера.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.API.Port)
}

// RepoConfig возвращает настройки хранилища для repo.Open.
func (c *Config) RepoConfig() repo.Config {
	return repo.Config{
		Driver:      c.Store.Driver,
		RedisAddr:   c.Store.RedisAddr,
		RedisPrefix: c.Store.RedisPrefix,
		DBURL:       c.Store.DBURL,
		SQLitePath:  c.Store.SQLitePath,
	}
}
