package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
)

// recorded — запросы, полученные тестовым сервером.
type recorded struct {
	mu      sync.Mutex
	headers []http.Header
	bodies  []map[string]any
}

func (r *recorded) add(h http.Header, body map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.headers = append(r.headers, h.Clone())
	r.bodies = append(r.bodies, body)
}

func (r *recorded) last() (http.Header, map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.headers)
	return r.headers[n-1], r.bodies[n-1]
}

// newTestServer поднимает сервер с фиксированными ответами API.
func newTestServer(t *testing.T) (*httptest.Server, *recorded) {
	t.Helper()

	rec := &recorded{}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/flows", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": []string{"greet", "report"}, "total": 2})
	})

	mux.HandleFunc("GET /api/v1/flows/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "greet" {
			writeJSON(w, http.StatusNotFound, map[string]any{
				"error": map[string]any{"code": "NOT_FOUND", "message": "config not found"},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"flow": map[string]any{
				"id": "greet",
				"steps": []map[string]any{
					{"id": "hello", "agent": "echo", "onError": "continue", "timeoutSec": 5},
				},
			},
			"valid": true,
		}})
	})

	mux.HandleFunc("POST /api/v1/flows/{id}/runs", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		rec.add(r.Header, body)

		switch r.PathValue("id") {
		case "broken":
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"data":  map[string]any{"id": "run-9", "flowId": "broken", "error": "unit not found: ghost"},
				"error": map[string]any{"code": "INVALID_CONFIG", "message": "unit not found: ghost"},
			})
		default:
			if body["async"] == true {
				writeJSON(w, http.StatusAccepted, map[string]any{"data": map[string]any{
					"run_id": "run-2", "flow_id": "greet", "user_id": r.Header.Get("X-User-ID"), "status": "queued",
				}})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
				"id":        "run-1",
				"flowId":    "greet",
				"userId":    r.Header.Get("X-User-ID"),
				"completed": true,
				"steps": []map[string]any{
					{"id": "hello", "agent": "echo", "success": true, "output": map[string]any{"name": "go"}},
				},
			}})
		}
	})

	mux.HandleFunc("GET /api/v1/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		rec.add(r.Header, nil)
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"id": r.PathValue("id"), "flowId": "greet", "userId": "alice", "steps": []any{},
		}})
	})

	mux.HandleFunc("GET /api/v1/agents", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{
			{"name": "echo", "registered": true, "enabled": true},
			{"name": "report", "registered": true, "enabled": true, "depends_on": []string{"collect"}},
		}, "total": 2})
	})

	mux.HandleFunc("POST /api/v1/agents/{name}/runs", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"agent": r.PathValue("name"), "output": body["input"], "with_dependencies": false,
		}})
	})

	mux.HandleFunc("GET /api/v1/agents/{name}/plan", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"agent": r.PathValue("name"), "plan": []string{"collect", r.PathValue("name")},
		}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, rec
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_Flows(t *testing.T) {
	srv, _ := newTestServer(t)
	client := NewClient(srv.URL, "")

	t.Run("list", func(t *testing.T) {
		ids, err := client.ListFlows()
		if err != nil {
			t.Fatalf("ListFlows() error = %v", err)
		}
		if len(ids) != 2 || ids[0] != "greet" {
			t.Errorf("ListFlows() = %v", ids)
		}
	})

	t.Run("get", func(t *testing.T) {
		resp, err := client.GetFlow("greet")
		if err != nil {
			t.Fatalf("GetFlow() error = %v", err)
		}
		if !resp.Valid || len(resp.Flow.Steps) != 1 {
			t.Fatalf("GetFlow() = %+v", resp)
		}
		if resp.Flow.Steps[0].OnError != "continue" || resp.Flow.Steps[0].TimeoutSec != 5 {
			t.Errorf("step = %+v", resp.Flow.Steps[0])
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := client.GetFlow("missing")
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("error = %v, want *APIError", err)
		}
		if apiErr.Status != http.StatusNotFound || apiErr.Code != "NOT_FOUND" {
			t.Errorf("APIError = %+v", apiErr)
		}
		if apiErr.State != nil {
			t.Error("State должен быть nil без data")
		}
	})
}

func TestClient_RunFlow(t *testing.T) {
	srv, rec := newTestServer(t)
	client := NewClient(srv.URL, "alice")

	state, err := client.RunFlow("greet", map[string]any{"name": "go"})
	if err != nil {
		t.Fatalf("RunFlow() error = %v", err)
	}
	if state.ID != "run-1" || !state.Completed || state.UserID != "alice" {
		t.Errorf("state = %+v", state)
	}

	// Пользователь передаётся заголовком
	header, body := rec.last()
	if got := header.Get("X-User-ID"); got != "alice" {
		t.Errorf("X-User-ID = %q", got)
	}
	input, _ := body["input"].(map[string]any)
	if input["name"] != "go" {
		t.Errorf("input = %v", body["input"])
	}
	if _, ok := body["async"]; ok {
		t.Error("async не должен отправляться для синхронного запуска")
	}

	t.Run("queue", func(t *testing.T) {
		run, err := client.QueueFlow("greet", nil)
		if err != nil {
			t.Fatalf("QueueFlow() error = %v", err)
		}
		if run.RunID != "run-2" || run.Status != "queued" {
			t.Errorf("run = %+v", run)
		}
	})

	t.Run("fatal with state", func(t *testing.T) {
		_, err := client.RunFlow("broken", nil)
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("error = %v, want *APIError", err)
		}
		if apiErr.Code != "INVALID_CONFIG" {
			t.Errorf("Code = %q", apiErr.Code)
		}
		if apiErr.State == nil || apiErr.State.ID != "run-9" {
			t.Errorf("State = %+v", apiErr.State)
		}
	})
}

func TestClient_Agents(t *testing.T) {
	srv, _ := newTestServer(t)
	client := NewClient(srv.URL, "")

	agents, err := client.ListAgents()
	if err != nil {
		t.Fatalf("ListAgents() error = %v", err)
	}
	if len(agents) != 2 || agents[1].DependsOn[0] != "collect" {
		t.Errorf("agents = %+v", agents)
	}

	res, err := client.RunAgent("echo", map[string]any{"x": float64(1)})
	if err != nil {
		t.Fatalf("RunAgent() error = %v", err)
	}
	out, _ := res.Output.(map[string]any)
	if res.Agent != "echo" || out["x"] != float64(1) {
		t.Errorf("result = %+v", res)
	}

	plan, err := client.PlanAgent("report")
	if err != nil {
		t.Fatalf("PlanAgent() error = %v", err)
	}
	if strings.Join(plan.Plan, ",") != "collect,report" {
		t.Errorf("plan = %v", plan.Plan)
	}
}

func TestBuildInput(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		raw     string
		want    map[string]any
		wantErr bool
	}{
		{
			name: "empty",
			want: map[string]any{},
		},
		{
			name:  "pairs",
			pairs: []string{"topic=go", "limit=5", "flag=true", "list=[1,2]"},
			want:  map[string]any{"topic": "go", "limit": float64(5), "flag": true, "list": []any{float64(1), float64(2)}},
		},
		{
			name:  "pairs override json",
			raw:   `{"topic":"rust","depth":2}`,
			pairs: []string{"topic=go"},
			want:  map[string]any{"topic": "go", "depth": float64(2)},
		},
		{
			name:  "value with equals",
			pairs: []string{"query=a=b"},
			want:  map[string]any{"query": "a=b"},
		},
		{
			name:    "missing equals",
			pairs:   []string{"topic"},
			wantErr: true,
		},
		{
			name:    "invalid json",
			raw:     `{"topic":`,
			wantErr: true,
		},
		{
			name:    "json not object",
			raw:     `[1,2]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildInput(tt.pairs, tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("buildInput() = %v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildInput() error = %v", err)
			}
			gotJSON, _ := json.Marshal(got)
			wantJSON, _ := json.Marshal(tt.want)
			if string(gotJSON) != string(wantJSON) {
				t.Errorf("buildInput() = %s, want %s", gotJSON, wantJSON)
			}
		})
	}
}

// runCLI выполняет команду с тестовым сервером и возвращает stdout и stderr.
func runCLI(t *testing.T, srvURL string, jsonMode bool, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	clientFn := func() *Client { return NewClient(srvURL, "alice") }
	outputFn := func() *Output { return NewOutputTo(&stdout, &stderr, jsonMode) }

	root := &cobra.Command{Use: "agentflow", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(
		NewFlowCmd(clientFn, outputFn),
		NewRunCmd(clientFn, outputFn),
		NewAgentCmd(clientFn, outputFn),
	)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCommands(t *testing.T) {
	srv, rec := newTestServer(t)

	t.Run("flow list", func(t *testing.T) {
		out, _, err := runCLI(t, srv.URL, false, "flow", "list")
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		if !strings.Contains(out, "greet") || !strings.Contains(out, "report") {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("flow show", func(t *testing.T) {
		out, _, err := runCLI(t, srv.URL, false, "flow", "show", "greet")
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		for _, want := range []string{"hello", "echo", "continue", "5s"} {
			if !strings.Contains(out, want) {
				t.Errorf("output не содержит %q: %q", want, out)
			}
		}
	})

	t.Run("flow run json", func(t *testing.T) {
		out, _, err := runCLI(t, srv.URL, true, "flow", "run", "greet", "--input", "name=go")
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		var state FlowState
		if err := json.Unmarshal([]byte(out), &state); err != nil {
			t.Fatalf("invalid JSON output: %v\n%s", err, out)
		}
		if state.ID != "run-1" {
			t.Errorf("state = %+v", state)
		}
		_, last := rec.last()
		if input, _ := last["input"].(map[string]any); input["name"] != "go" {
			t.Errorf("input = %v", last["input"])
		}
	})

	t.Run("flow run async", func(t *testing.T) {
		_, errOut, err := runCLI(t, srv.URL, false, "flow", "run", "greet", "--async")
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		if !strings.Contains(errOut, "run-2") {
			t.Errorf("stderr = %q", errOut)
		}
	})

	t.Run("flow run fatal prints state", func(t *testing.T) {
		out, _, err := runCLI(t, srv.URL, false, "flow", "run", "broken")
		if err == nil {
			t.Fatal("ожидалась ошибка")
		}
		if !strings.Contains(out, "run-9") {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("run show", func(t *testing.T) {
		out, _, err := runCLI(t, srv.URL, false, "run", "show", "run-7")
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		if !strings.Contains(out, "run-7") || !strings.Contains(out, "alice") {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("agent plan", func(t *testing.T) {
		out, _, err := runCLI(t, srv.URL, false, "agent", "plan", "report")
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		if strings.Index(out, "collect") > strings.Index(out, "report") {
			t.Errorf("порядок плана нарушен: %q", out)
		}
	})
}
