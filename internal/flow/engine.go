package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/agentflow/internal/domain"
	"github.com/shaiso/agentflow/internal/executor"
	"github.com/shaiso/agentflow/internal/observer"
	"github.com/shaiso/agentflow/internal/repo"
	"github.com/shaiso/agentflow/internal/telemetry"
	"github.com/shaiso/agentflow/internal/units"
)

// AnonymousUser — пользователь запуска, если UserID не передан.
const AnonymousUser = "anonymous"

// FlowSource загружает конфигурацию flow. Реализуется *loader.Catalog.
type FlowSource interface {
	LoadFlow(ctx context.Context, flowID string) (*domain.FlowConfig, error)
}

// MetadataSource загружает метаданные агентов. Реализуется *loader.Catalog.
type MetadataSource interface {
	LoadMetadata(ctx context.Context) (domain.Metadata, error)
}

// Config — конфигурация Engine.
type Config struct {
	// Executor — Dependency Executor. Если nil, создаётся по Registry.
	Executor *executor.Executor

	// Registry — реестр агентов, используется если Executor не задан.
	Registry *units.Registry

	// Flows — источник конфигураций flow (нужен для Run).
	Flows FlowSource

	// Metadata — источник метаданных агентов (опционально).
	// Если задан, шаги выполняются через Dependency Executor.
	Metadata MetadataSource

	// Store — хранилище состояния и журнала (опционально).
	Store repo.Writer

	// Observer — получатель событий (опционально).
	Observer observer.Observer

	// Logger — логгер.
	Logger *slog.Logger

	// Metrics — Prometheus метрики (опционально).
	Metrics *telemetry.Metrics

	// StepTimeout — таймаут шага по умолчанию. 0 — без таймаута.
	// StepSpec.TimeoutSec переопределяет его для отдельного шага.
	StepTimeout time.Duration

	// Now — источник времени (для тестов).
	Now func() time.Time

	// NewID — генератор ID запусков (для тестов).
	NewID func() string
}

// RunRequest — запрос на запуск flow.
type RunRequest struct {
	// FlowID — ID flow.
	FlowID string `json:"flow_id"`

	// UserID — пользователь, запустивший flow.
	UserID string `json:"user_id"`

	// Input — вход flow, доступен шагам как $input.
	Input any `json:"input,omitempty"`

	// RunID — ID запуска. Если пуст, генерируется.
	RunID string `json:"run_id,omitempty"`
}

// Engine — Flow Engine.
//
// Engine не хранит состояние запусков: контекст выполнения и кэш
// Dependency Executor принадлежат одному запуску.
type Engine struct {
	executor    *executor.Executor
	flows       FlowSource
	metadata    MetadataSource
	store       repo.Writer
	observer    observer.Observer
	logger      *slog.Logger
	metrics     *telemetry.Metrics
	stepTimeout time.Duration
	now         func() time.Time
	newID       func() string
}

// New создаёт Engine.
func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Executor == nil {
		cfg.Executor = executor.New(executor.Config{
			Registry: cfg.Registry,
			Logger:   cfg.Logger,
			Metrics:  cfg.Metrics,
		})
	}
	if cfg.Observer == nil {
		cfg.Observer = observer.Nop
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}

	return &Engine{
		executor:    cfg.Executor,
		flows:       cfg.Flows,
		metadata:    cfg.Metadata,
		store:       cfg.Store,
		observer:    cfg.Observer,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		stepTimeout: cfg.StepTimeout,
		now:         cfg.Now,
		newID:       cfg.NewID,
	}
}

// Run загружает конфигурацию flow и выполняет её.
//
// Конфигурация и метаданные читаются заново при каждом запуске.
// Ошибка отсутствующего flow фатальна: состояние с заполненным
// Error сохраняется и возвращается вместе с ошибкой.
func (e *Engine) Run(ctx context.Context, req RunRequest) (*domain.FlowState, error) {
	if req.FlowID == "" {
		return nil, ErrEmptyFlowID
	}
	if e.flows == nil {
		return nil, ErrNoFlowSource
	}

	r := e.start(ctx, req)

	cfg, err := e.flows.LoadFlow(ctx, req.FlowID)
	if err != nil {
		return r.fail(ctx, err)
	}

	return r.execute(ctx, cfg)
}

// Execute выполняет уже загруженную конфигурацию flow.
//
// Возвращает (state, nil) при завершении цикла и при abort
// (Completed не установлен), (state, err) при фатальной ошибке.
func (e *Engine) Execute(ctx context.Context, cfg *domain.FlowConfig, req RunRequest) (*domain.FlowState, error) {
	if req.FlowID == "" && cfg != nil {
		req.FlowID = cfg.ID
	}
	return e.start(ctx, req).execute(ctx, cfg)
}

// Executor возвращает Dependency Executor движка.
func (e *Engine) Executor() *executor.Executor {
	return e.executor
}

// start создаёт состояние запуска и отправляет flow.started.
func (e *Engine) start(ctx context.Context, req RunRequest) *runner {
	runID := req.RunID
	if runID == "" {
		runID = e.newID()
	}
	userID := req.UserID
	if userID == "" {
		userID = AnonymousUser
	}

	state := domain.NewFlowState(runID, req.FlowID, userID, e.now())
	logger := telemetry.WithFlowID(telemetry.WithRunID(e.logger, runID), req.FlowID)

	r := &runner{
		engine: e,
		input:  req.Input,
		state:  state,
		logger: logger,
		recorder: &recorder{
			store:    e.store,
			observer: e.observer,
			logger:   logger,
			metrics:  e.metrics,
			now:      e.now,
			state:    state,
		},
	}

	logger.Info("flow started", "user_id", userID)
	r.recorder.emit(ctx, domain.EventFlowStarted, nil)
	return r
}
