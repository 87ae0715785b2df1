package api

import (
	"net/http"

	"github.com/shaiso/agentflow/internal/engine"
)

// ListFlows возвращает ID flow каталога.
// GET /api/v1/flows
func (h *Handler) ListFlows(w http.ResponseWriter, r *http.Request) {
	ids, err := h.catalog.ListFlows(r.Context())
	if HandleError(w, h.logger, err) {
		return
	}
	List(w, ids, len(ids))
}

// GetFlow возвращает определение flow с результатом валидации.
// Проверяется структура и наличие агентов в реестре.
// GET /api/v1/flows/{id}
func (h *Handler) GetFlow(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.catalog.LoadFlow(r.Context(), r.PathValue("id"))
	if HandleError(w, h.logger, err) {
		return
	}

	resp := FlowResponse{Flow: cfg, Valid: true}

	err = engine.Validate(cfg)
	if err == nil {
		err = engine.ValidateAgents(cfg, h.registry.Has)
	}
	if err != nil {
		resp.Valid = false
		resp.Error = err.Error()
	}

	Success(w, resp)
}
