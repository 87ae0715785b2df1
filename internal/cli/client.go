package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// FlowResponse — определение flow и результат валидации.
type FlowResponse struct {
	Flow  FlowConfig `json:"flow"`
	Valid bool       `json:"valid"`
	Error string     `json:"error,omitempty"`
}

// FlowConfig — определение flow.
type FlowConfig struct {
	ID          string     `json:"id"`
	Name        string     `json:"name,omitempty"`
	Description string     `json:"description,omitempty"`
	Steps       []StepSpec `json:"steps"`
}

// StepSpec — шаг flow.
type StepSpec struct {
	ID            string `json:"id"`
	Agent         string `json:"agent"`
	Input         any    `json:"input,omitempty"`
	OnError       string `json:"onError,omitempty"`
	FallbackAgent string `json:"fallbackAgent,omitempty"`
	TimeoutSec    int    `json:"timeoutSec,omitempty"`
}

// FlowState — состояние запуска flow.
type FlowState struct {
	ID        string       `json:"id"`
	FlowID    string       `json:"flowId"`
	UserID    string       `json:"userId"`
	Started   string       `json:"started"`
	Steps     []StepRecord `json:"steps"`
	Completed bool         `json:"completed,omitempty"`
	Finished  string       `json:"finished,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// StepRecord — запись шага.
type StepRecord struct {
	ID            string    `json:"id"`
	Agent         string    `json:"agent"`
	Output        any       `json:"output,omitempty"`
	Explanation   string    `json:"explanation,omitempty"`
	Success       bool      `json:"success"`
	Error         string    `json:"error,omitempty"`
	Fallback      *Fallback `json:"fallback,omitempty"`
	FallbackError string    `json:"fallbackError,omitempty"`
}

// Fallback — результат fallback-агента.
type Fallback struct {
	Agent  string `json:"agent"`
	Output any    `json:"output,omitempty"`
}

// QueuedRun — ответ на асинхронный запуск.
type QueuedRun struct {
	RunID  string `json:"run_id"`
	FlowID string `json:"flow_id"`
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// AgentResponse — агент из API.
type AgentResponse struct {
	Name        string   `json:"name"`
	Registered  bool     `json:"registered"`
	Enabled     bool     `json:"enabled"`
	DependsOn   []string `json:"depends_on,omitempty"`
	Description string   `json:"description,omitempty"`
}

// AgentResult — результат вызова агента.
type AgentResult struct {
	Agent       string `json:"agent"`
	Output      any    `json:"output"`
	Explanation string `json:"explanation,omitempty"`
	WithDeps    bool   `json:"with_dependencies"`
}

// PlanResponse — порядок выполнения агента.
type PlanResponse struct {
	Agent string   `json:"agent"`
	Plan  []string `json:"plan"`
}

// --- Request types ---

// RunFlowRequest — запуск flow.
type RunFlowRequest struct {
	Input any  `json:"input,omitempty"`
	Async bool `json:"async,omitempty"`
}

// RunAgentRequest — вызов агента.
type RunAgentRequest struct {
	Input map[string]any `json:"input,omitempty"`
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError — ошибка API. State заполнен для фатально
// завершившегося запуска flow.
type APIError struct {
	Status  int
	Code    string
	Message string
	State   *FlowState
}

// Error реализует интерфейс error.
func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error: HTTP %d", e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// --- Client ---

// Client — HTTP-клиент для agentflow API.
type Client struct {
	baseURL    string
	userID     string
	httpClient *http.Client
}

// NewClient создаёт клиент для API. userID передаётся в X-User-ID.
func NewClient(baseURL, userID string) *Client {
	return &Client{
		baseURL: baseURL,
		userID:  userID,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// --- Flows ---

// ListFlows возвращает ID flow каталога.
func (c *Client) ListFlows() ([]string, error) {
	var ids []string
	err := c.list("/api/v1/flows", nil, &ids)
	return ids, err
}

// GetFlow возвращает определение flow.
func (c *Client) GetFlow(id string) (*FlowResponse, error) {
	var flow FlowResponse
	err := c.get("/api/v1/flows/"+url.PathEscape(id), &flow)
	return &flow, err
}

// RunFlow синхронно запускает flow.
func (c *Client) RunFlow(id string, input any) (*FlowState, error) {
	var state FlowState
	err := c.post("/api/v1/flows/"+url.PathEscape(id)+"/runs", RunFlowRequest{Input: input}, &state)
	return &state, err
}

// QueueFlow ставит запуск flow в очередь.
func (c *Client) QueueFlow(id string, input any) (*QueuedRun, error) {
	var run QueuedRun
	err := c.post("/api/v1/flows/"+url.PathEscape(id)+"/runs", RunFlowRequest{Input: input, Async: true}, &run)
	return &run, err
}

// --- Runs ---

// GetRun возвращает сохранённое состояние запуска.
func (c *Client) GetRun(id string) (*FlowState, error) {
	var state FlowState
	err := c.get("/api/v1/runs/"+url.PathEscape(id), &state)
	return &state, err
}

// --- Agents ---

// ListAgents возвращает агентов.
func (c *Client) ListAgents() ([]AgentResponse, error) {
	var agents []AgentResponse
	err := c.list("/api/v1/agents", nil, &agents)
	return agents, err
}

// RunAgent вызывает агента.
func (c *Client) RunAgent(name string, input map[string]any) (*AgentResult, error) {
	var res AgentResult
	err := c.post("/api/v1/agents/"+url.PathEscape(name)+"/runs", RunAgentRequest{Input: input}, &res)
	return &res, err
}

// PlanAgent возвращает порядок выполнения агента.
func (c *Client) PlanAgent(name string) (*PlanResponse, error) {
	var plan PlanResponse
	err := c.get("/api/v1/agents/"+url.PathEscape(name)+"/plan", &plan)
	return &plan, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	apiErr := &APIError{Status: resp.StatusCode}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return apiErr
	}

	apiErr.Code = er.Error.Code
	apiErr.Message = er.Error.Message
	if len(er.Data) > 0 && string(er.Data) != "null" {
		var state FlowState
		if json.Unmarshal(er.Data, &state) == nil {
			apiErr.State = &state
		}
	}
	return apiErr
}
