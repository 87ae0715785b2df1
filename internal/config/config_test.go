package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shaiso/agentflow/internal/repo"
)

// clearEnv сбрасывает переменные окружения конфигурации на время теста.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvConfigFile, "")
	for _, name := range env {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	os.Unsetenv(EnvConfigFile)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.API.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.API.Port)
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("expected addr :8080, got %s", cfg.Addr())
	}
	if cfg.Store.Driver != repo.DriverMemory {
		t.Errorf("expected memory driver, got %q", cfg.Store.Driver)
	}
	if cfg.Engine.StepTimeout != 60*time.Second {
		t.Errorf("expected step timeout 60s, got %v", cfg.Engine.StepTimeout)
	}
	if cfg.Engine.FetchTimeout != 30*time.Second {
		t.Errorf("expected fetch timeout 30s, got %v", cfg.Engine.FetchTimeout)
	}
	if cfg.RabbitMQ.URL != "" {
		t.Errorf("expected RabbitMQ disabled by default, got %q", cfg.RabbitMQ.URL)
	}
	if cfg.Catalog.Metadata {
		t.Error("expected metadata mode disabled by default")
	}
}

func TestLoad_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_PORT", "9090")
	t.Setenv("STORE_DRIVER", "Redis")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("STEP_TIMEOUT", "0")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("CATALOG_URL", "mem://")
	t.Setenv("CATALOG_METADATA", "true")
	t.Setenv("RABBITMQ_URL", "amqp://guest:guest@mq:5672/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.API.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.API.Port)
	}
	// Драйвер нормализуется к нижнему регистру
	if cfg.Store.Driver != repo.DriverRedis || cfg.Store.RedisAddr != "redis:6379" {
		t.Errorf("unexpected store config: %+v", cfg.Store)
	}
	if cfg.Engine.StepTimeout != 0 {
		t.Errorf("expected disabled step timeout, got %v", cfg.Engine.StepTimeout)
	}
	if cfg.Engine.FetchTimeout != 5*time.Second {
		t.Errorf("expected fetch timeout 5s, got %v", cfg.Engine.FetchTimeout)
	}
	if cfg.Catalog.URL != "mem://" || !cfg.Catalog.Metadata {
		t.Errorf("unexpected catalog config: %+v", cfg.Catalog)
	}
	if cfg.RabbitMQ.URL == "" {
		t.Error("expected RabbitMQ URL")
	}

	rc := cfg.RepoConfig()
	if rc.Driver != repo.DriverRedis || rc.RedisPrefix != "agentflow" {
		t.Errorf("unexpected repo config: %+v", rc)
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "agentflow.yaml")
	content := `
api:
  port: 7000
store:
  driver: sqlite
  sqlite_path: /tmp/state.db
engine:
  step_timeout: 2m
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvConfigFile, path)

	// Переменные окружения важнее файла
	t.Setenv("API_PORT", "7100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.API.Port != 7100 {
		t.Errorf("expected env override 7100, got %d", cfg.API.Port)
	}
	if cfg.Store.Driver != repo.DriverSQLite || cfg.Store.SQLitePath != "/tmp/state.db" {
		t.Errorf("unexpected store config: %+v", cfg.Store)
	}
	if cfg.Engine.StepTimeout != 2*time.Minute {
		t.Errorf("expected step timeout 2m, got %v", cfg.Engine.StepTimeout)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			API:     APIConfig{Port: 8080},
			Catalog: CatalogConfig{URL: "mem://"},
			Store:   StoreConfig{Driver: repo.DriverMemory},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"zero port", func(c *Config) { c.API.Port = 0 }, true},
		{"port too large", func(c *Config) { c.API.Port = 70000 }, true},
		{"empty catalog", func(c *Config) { c.Catalog.URL = "" }, true},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }, true},
		{"negative timeout", func(c *Config) { c.Engine.StepTimeout = -time.Second }, true},
		{"negative fetch timeout", func(c *Config) { c.Engine.FetchTimeout = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "mongo")

	if _, err := Load(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
