package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/shaiso/agentflow/internal/flow"
	"github.com/shaiso/agentflow/internal/mq"
)

// RunFlow запускает flow.
//
// Синхронный запуск возвращает FlowState (200 и при abort).
// Фатальная ошибка возвращается вместе с сохранённым состоянием.
// При async=true запуск ставится в очередь (202).
//
// POST /api/v1/flows/{id}/runs
func (h *Handler) RunFlow(w http.ResponseWriter, r *http.Request) {
	flowID := r.PathValue("id")

	var req RunFlowRequest
	if err := decodeBody(r, &req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	userID := r.Header.Get(HeaderUserID)
	if userID == "" {
		userID = req.UserID
	}

	if req.Async {
		h.enqueueRun(w, r, flowID, userID, req.Input)
		return
	}

	state, err := h.engine.Run(r.Context(), flow.RunRequest{
		FlowID: flowID,
		UserID: userID,
		Input:  req.Input,
	})
	if err != nil {
		if state == nil {
			HandleError(w, h.logger, err)
			return
		}
		status, code := classify(err)
		JSON(w, status, FailedResponse{
			Data:  state,
			Error: ErrorDetail{Code: code, Message: err.Error()},
		})
		return
	}

	Success(w, state)
}

func (h *Handler) enqueueRun(w http.ResponseWriter, r *http.Request, flowID, userID string, input any) {
	if h.queue == nil {
		Unavailable(w, "async runs are not enabled")
		return
	}
	if userID == "" {
		userID = flow.AnonymousUser
	}

	payload := mq.RunRequestPayload{
		RunID:  h.newID(),
		FlowID: flowID,
		UserID: userID,
		Input:  input,
	}
	if err := h.queue.PublishRunRequest(r.Context(), payload); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	h.logger.Info("run queued", "run_id", payload.RunID, "flow_id", flowID)

	Accepted(w, QueuedRunResponse{
		RunID:  payload.RunID,
		FlowID: flowID,
		UserID: userID,
		Status: "queued",
	})
}

// GetRun возвращает сохранённый FlowState.
// Пользователь берётся из X-User-ID или query параметра user_id.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(HeaderUserID)
	if userID == "" {
		userID = r.URL.Query().Get("user_id")
	}
	if userID == "" {
		userID = flow.AnonymousUser
	}

	doc, err := h.states.GetDocument(r.Context(), flow.StateCollection(userID), r.PathValue("id"))
	if HandleError(w, h.logger, err) {
		return
	}
	Success(w, doc)
}

// decodeBody декодирует JSON тело запроса. Пустое тело допустимо.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
