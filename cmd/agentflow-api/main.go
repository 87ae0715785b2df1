// agentflow-api — HTTP сервис запуска flow и агентов.
//
// Конфигурация читается из файла $AGENTFLOW_CONFIG и переменных
// окружения (см. internal/config). При заданном RABBITMQ_URL сервис
// публикует события выполнения и обрабатывает асинхронные запуски
// из очереди flow.runs.requested.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/agentflow/internal/api"
	"github.com/shaiso/agentflow/internal/config"
	"github.com/shaiso/agentflow/internal/flow"
	"github.com/shaiso/agentflow/internal/loader"
	"github.com/shaiso/agentflow/internal/mq"
	"github.com/shaiso/agentflow/internal/observer"
	"github.com/shaiso/agentflow/internal/repo"
	"github.com/shaiso/agentflow/internal/telemetry"
	"github.com/shaiso/agentflow/internal/units"
)

var startTime = time.Now()

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLoggerWith(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	logger.Info("starting agentflow-api", "store", cfg.Store.Driver, "catalog", cfg.Catalog.URL)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("fatal error", "error", err)
		os.Exit(1)
	}

	logger.Info("stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	// Хранилище состояния и журнала
	store, err := repo.Open(ctx, cfg.RepoConfig())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	// Каталог flow и метаданных
	catalog, err := loader.Open(ctx, cfg.Catalog.URL)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer catalog.Close()

	registry := units.DefaultRegistry(units.Options{FetchTimeout: cfg.Engine.FetchTimeout})
	logger.Info("units registered", "count", registry.Count())

	observers := observer.Multi{observer.NewLog(logger), observer.NewMetrics(metrics)}

	// RabbitMQ (опционально)
	var (
		conn      *mq.Connection
		publisher *mq.Publisher
	)
	if cfg.RabbitMQ.URL != "" {
		conn, err = mq.NewConnection(mq.ConnectionConfig{URL: cfg.RabbitMQ.URL, Name: "agentflow-api"}, logger)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer conn.Close()

		if err := mq.SetupTopology(ctx, conn); err != nil {
			return fmt.Errorf("setup topology: %w", err)
		}

		publisher = mq.NewPublisher(conn, logger)
		observers = append(observers, observer.NewAMQP(publisher))
	}

	engineCfg := flow.Config{
		Registry:    registry,
		Flows:       catalog,
		Store:       store,
		Observer:    observers,
		Logger:      logger,
		Metrics:     metrics,
		StepTimeout: cfg.Engine.StepTimeout,
	}
	if cfg.Catalog.Metadata {
		engineCfg.Metadata = catalog
	}
	engine := flow.New(engineCfg)

	handlerCfg := api.Config{
		Engine:  engine,
		Catalog: catalog,
		States:  store,
		Logger:  logger,
		NewID:   uuid.NewString,
	}
	if publisher != nil {
		handlerCfg.Queue = publisher
	}
	handler := api.NewHandler(handlerCfg)

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	// Consumer асинхронных запусков
	if conn != nil {
		consumer := mq.NewConsumer(conn, logger, mq.ConsumerConfig{
			Queue:   mq.QueueRunRequests,
			Handler: engine.HandleRunRequest,
		})
		go func() {
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("consumer stopped", "error", err)
			}
		}()
	}

	// Создаём HTTP сервер с возможностью graceful shutdown
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Ожидаем сигнал завершения
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	return nil
}
