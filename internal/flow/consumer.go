package flow

import (
	"context"
	"fmt"

	"github.com/shaiso/agentflow/internal/mq"
)

// HandleRunRequest — обработчик очереди flow.runs.requested.
//
// Запуск выполняется синхронно в горутине consumer, по одному.
// Фатальная ошибка запуска возвращается, и сообщение уходит в DLQ;
// состояние запуска к этому моменту уже сохранено.
func (e *Engine) HandleRunRequest(ctx context.Context, d *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.RunRequestPayload](&d.Message)
	if err != nil {
		return fmt.Errorf("parse run request: %w", err)
	}

	e.logger.Debug("received run request",
		"run_id", payload.RunID,
		"flow_id", payload.FlowID,
		"message_id", d.Message.ID,
	)

	_, err = e.Run(ctx, RunRequest{
		FlowID: payload.FlowID,
		UserID: payload.UserID,
		Input:  payload.Input,
		RunID:  payload.RunID,
	})
	if err != nil {
		return fmt.Errorf("run %s: %w", payload.RunID, err)
	}
	return nil
}
