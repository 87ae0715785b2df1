package api

import (
	"github.com/shaiso/agentflow/internal/domain"
)

// HeaderUserID — заголовок с ID пользователя.
const HeaderUserID = "X-User-ID"

// Flow DTOs

// FlowResponse — определение flow и результат его валидации.
type FlowResponse struct {
	Flow  *domain.FlowConfig `json:"flow"`
	Valid bool               `json:"valid"`
	Error string             `json:"error,omitempty"`
}

// Run DTOs

// RunFlowRequest — запрос на запуск flow.
type RunFlowRequest struct {
	// UserID используется, если не передан заголовок X-User-ID.
	UserID string `json:"user_id,omitempty"`

	// Input — вход flow.
	Input any `json:"input,omitempty"`

	// Async ставит запуск в очередь RabbitMQ вместо синхронного выполнения.
	Async bool `json:"async,omitempty"`
}

// QueuedRunResponse — ответ на асинхронный запуск.
type QueuedRunResponse struct {
	RunID  string `json:"run_id"`
	FlowID string `json:"flow_id"`
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// Agent DTOs

// AgentResponse — агент реестра и его метаданные.
type AgentResponse struct {
	Name        string   `json:"name"`
	Registered  bool     `json:"registered"`
	Enabled     bool     `json:"enabled"`
	DependsOn   []string `json:"depends_on,omitempty"`
	Description string   `json:"description,omitempty"`
}

// RunAgentRequest — запрос на вызов агента.
type RunAgentRequest struct {
	Input map[string]any `json:"input,omitempty"`
}

// RunAgentResponse — результат вызова агента.
type RunAgentResponse struct {
	Agent       string `json:"agent"`
	Output      any    `json:"output"`
	Explanation string `json:"explanation,omitempty"`
	WithDeps    bool   `json:"with_dependencies"`
}

// PlanResponse — порядок выполнения агента с пререквизитами.
type PlanResponse struct {
	Agent string   `json:"agent"`
	Plan  []string `json:"plan"`
}
