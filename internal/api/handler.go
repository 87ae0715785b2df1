package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/agentflow/internal/domain"
	"github.com/shaiso/agentflow/internal/executor"
	"github.com/shaiso/agentflow/internal/flow"
	"github.com/shaiso/agentflow/internal/mq"
	"github.com/shaiso/agentflow/internal/repo"
	"github.com/shaiso/agentflow/internal/units"
)

// Catalog — каталог flow и метаданных агентов. Реализуется *loader.Catalog.
type Catalog interface {
	LoadFlow(ctx context.Context, flowID string) (*domain.FlowConfig, error)
	ListFlows(ctx context.Context) ([]string, error)
	LoadMetadata(ctx context.Context) (domain.Metadata, error)
}

// RunQueue ставит запуски flow в очередь. Реализуется *mq.Publisher.
type RunQueue interface {
	PublishRunRequest(ctx context.Context, payload mq.RunRequestPayload) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	engine   *flow.Engine
	executor *executor.Executor
	registry *units.Registry
	catalog  Catalog
	states   repo.Reader
	queue    RunQueue
	logger   *slog.Logger
	newID    func() string
}

// Config — конфигурация для создания Handler.
type Config struct {
	// Engine — Flow Engine.
	Engine *flow.Engine

	// Catalog — каталог flow и метаданных.
	Catalog Catalog

	// States — чтение сохранённых FlowState.
	States repo.Reader

	// Queue — очередь асинхронных запусков (опционально).
	Queue RunQueue

	// Logger — логгер.
	Logger *slog.Logger

	// NewID — генератор ID асинхронных запусков.
	NewID func() string
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}

	exec := cfg.Engine.Executor()
	return &Handler{
		engine:   cfg.Engine,
		executor: exec,
		registry: exec.Registry(),
		catalog:  cfg.Catalog,
		states:   cfg.States,
		queue:    cfg.Queue,
		logger:   cfg.Logger,
		newID:    cfg.NewID,
	}
}
