package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Flows
	mux.Handle("GET /api/v1/flows", chain(http.HandlerFunc(h.ListFlows)))
	mux.Handle("GET /api/v1/flows/{id}", chain(http.HandlerFunc(h.GetFlow)))

	// Runs
	mux.Handle("POST /api/v1/flows/{id}/runs", chain(http.HandlerFunc(h.RunFlow)))
	mux.Handle("GET /api/v1/runs/{id}", chain(http.HandlerFunc(h.GetRun)))

	// Agents
	mux.Handle("GET /api/v1/agents", chain(http.HandlerFunc(h.ListAgents)))
	mux.Handle("POST /api/v1/agents/{name}/runs", chain(http.HandlerFunc(h.RunAgent)))
	mux.Handle("GET /api/v1/agents/{name}/plan", chain(http.HandlerFunc(h.PlanAgent)))
}
