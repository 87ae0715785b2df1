package api

import (
	"errors"
	"net/http"
	"sort"

	"github.com/shaiso/agentflow/internal/domain"
	"github.com/shaiso/agentflow/internal/engine"
	"github.com/shaiso/agentflow/internal/loader"
)

// ListAgents возвращает агентов реестра и метаданных.
// GET /api/v1/agents
func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	meta, err := h.metadata(r)
	if HandleError(w, h.logger, err) {
		return
	}

	names := make(map[string]bool)
	for _, name := range h.registry.Names() {
		names[name] = true
	}
	for id := range meta {
		names[id] = true
	}

	result := make([]AgentResponse, 0, len(names))
	for name := range names {
		resp := AgentResponse{Name: name, Registered: h.registry.Has(name)}
		if m, ok := meta.Get(name); ok {
			resp.Enabled = m.Enabled
			resp.DependsOn = m.DependsOn
			resp.Description = m.Description
		} else if meta == nil {
			// Без метаданных агенты вызываются напрямую
			resp.Enabled = resp.Registered
		}
		result = append(result, resp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	List(w, result, len(result))
}

// RunAgent вызывает агента.
// С метаданными вызов идёт через Dependency Executor, иначе напрямую.
// POST /api/v1/agents/{name}/runs
func (h *Handler) RunAgent(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req RunAgentRequest
	if err := decodeBody(r, &req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.Input == nil {
		req.Input = map[string]any{}
	}

	meta, err := h.metadata(r)
	if HandleError(w, h.logger, err) {
		return
	}

	var res *domain.Result
	if meta != nil {
		res, err = h.executor.Run(r.Context(), meta, name, req.Input)
	} else {
		res, err = h.executor.Invoke(r.Context(), name, req.Input)
	}
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, RunAgentResponse{
		Agent:       name,
		Output:      res.Output,
		Explanation: res.Explanation,
		WithDeps:    meta != nil,
	})
}

// PlanAgent возвращает порядок выполнения агента с пререквизитами.
// GET /api/v1/agents/{name}/plan
func (h *Handler) PlanAgent(w http.ResponseWriter, r *http.Request) {
	meta, err := h.catalog.LoadMetadata(r.Context())
	if HandleError(w, h.logger, err) {
		return
	}

	graph, err := engine.BuildGraph(meta)
	if HandleError(w, h.logger, err) {
		return
	}

	name := r.PathValue("name")
	plan, err := graph.Plan(name)
	if HandleError(w, h.logger, err) {
		return
	}

	Success(w, PlanResponse{Agent: name, Plan: plan})
}

// metadata загружает метаданные агентов. Отсутствие каталога
// метаданных не ошибка: возвращается nil.
func (h *Handler) metadata(r *http.Request) (domain.Metadata, error) {
	meta, err := h.catalog.LoadMetadata(r.Context())
	if errors.Is(err, loader.ErrConfigNotFound) {
		return nil, nil
	}
	return meta, err
}
