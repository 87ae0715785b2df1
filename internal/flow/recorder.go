package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaiso/agentflow/internal/domain"
	"github.com/shaiso/agentflow/internal/observer"
	"github.com/shaiso/agentflow/internal/repo"
	"github.com/shaiso/agentflow/internal/telemetry"
)

// Коллекции хранилища.
const (
	// LogCollection — журнал шагов и завершений всех запусков.
	LogCollection = "flowLogs"
)

// StateCollection возвращает коллекцию документов FlowState пользователя.
func StateCollection(userID string) string {
	return "users/" + userID + "/flowStates"
}

// recorder сохраняет состояние запуска и отправляет события.
//
// Все ошибки проглатываются: они логируются и считаются в метриках,
// выполнение flow продолжается.
type recorder struct {
	store    repo.Writer
	observer observer.Observer
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	now      func() time.Time
	state    *domain.FlowState
}

// step сохраняет состояние после терминального шага и отправляет событие.
func (r *recorder) step(ctx context.Context, typ domain.EventType, rec *domain.StepRecord) {
	r.persist(ctx, rec)
	r.emit(ctx, typ, rec)
}

// finish сохраняет итоговое состояние и отправляет событие завершения.
func (r *recorder) finish(ctx context.Context, typ domain.EventType) {
	ctx = context.WithoutCancel(ctx)

	r.writeState(ctx)
	r.appendLog(ctx, map[string]any{
		"event":     string(typ),
		"completed": r.state.Completed,
		"steps":     len(r.state.Steps),
		"succeeded": r.state.Succeeded(),
		"error":     r.state.Error,
	})
	r.emit(ctx, typ, nil)
}

// persist записывает документ состояния и запись журнала шага.
func (r *recorder) persist(ctx context.Context, rec *domain.StepRecord) {
	ctx = context.WithoutCancel(ctx)

	r.writeState(ctx)

	entry := map[string]any{
		"event":   "step",
		"stepId":  rec.ID,
		"agent":   rec.Agent,
		"success": rec.Success,
	}
	if rec.Error != "" {
		entry["error"] = rec.Error
	}
	if rec.Fallback != nil {
		entry["fallbackAgent"] = rec.Fallback.Agent
	}
	if rec.FallbackError != "" {
		entry["fallbackError"] = rec.FallbackError
	}
	r.appendLog(ctx, entry)
}

// emit отправляет событие наблюдателям.
func (r *recorder) emit(ctx context.Context, typ domain.EventType, rec *domain.StepRecord) {
	event := domain.Event{
		Type:      typ,
		RunID:     r.state.ID,
		FlowID:    r.state.FlowID,
		UserID:    r.state.UserID,
		Success:   r.state.Completed,
		Error:     r.state.Error,
		Timestamp: r.now(),
	}
	if rec != nil {
		event.StepID = rec.ID
		event.Agent = rec.Agent
		event.Success = rec.Success || rec.Fallback != nil
		event.Error = rec.Error
	}

	if err := r.observer.Notify(context.WithoutCancel(ctx), event); err != nil {
		r.metrics.ObserverError()
		r.logger.Warn("failed to deliver event", "event", typ, "error", err)
	}
}

func (r *recorder) writeState(ctx context.Context) {
	if r.store == nil {
		return
	}

	doc, err := r.state.Document()
	if err == nil {
		err = r.store.WriteDocument(ctx, StateCollection(r.state.UserID), r.state.ID, doc)
	}
	if err != nil {
		r.metrics.PersistenceError("write_state")
		r.logger.Warn("failed to persist flow state", "error", err)
	}
}

func (r *recorder) appendLog(ctx context.Context, entry map[string]any) {
	if r.store == nil {
		return
	}

	entry["runId"] = r.state.ID
	entry["flowId"] = r.state.FlowID
	entry["userId"] = r.state.UserID
	entry["timestamp"] = r.now().UTC().Format(time.RFC3339Nano)

	if err := r.store.AppendToCollection(ctx, LogCollection, entry); err != nil {
		r.metrics.PersistenceError("append_log")
		r.logger.Warn("failed to append flow log", "error", err)
	}
}
