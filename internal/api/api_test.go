package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"gocloud.dev/blob/memblob"

	"github.com/shaiso/agentflow/internal/domain"
	"github.com/shaiso/agentflow/internal/flow"
	"github.com/shaiso/agentflow/internal/loader"
	"github.com/shaiso/agentflow/internal/mq"
	"github.com/shaiso/agentflow/internal/repo"
	"github.com/shaiso/agentflow/internal/units"
)

type fakeQueue struct {
	payloads []mq.RunRequestPayload
	err      error
}

func (q *fakeQueue) PublishRunRequest(_ context.Context, p mq.RunRequestPayload) error {
	q.payloads = append(q.payloads, p)
	return q.err
}

type testServer struct {
	*httptest.Server
	catalog *loader.Catalog
	store   *repo.MemoryStore
	queue   *fakeQueue
}

func newTestServer(t *testing.T, withMetadata bool) *testServer {
	t.Helper()
	ctx := context.Background()

	catalog := loader.New(memblob.OpenBucket(nil), "")
	t.Cleanup(func() { catalog.Close() })

	mustSave := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	mustSave(catalog.SaveFlow(ctx, &domain.FlowConfig{ID: "greet", Steps: []domain.StepSpec{
		{ID: "hello", Agent: units.NameEcho, Input: map[string]any{"value": "$input.name"}},
		{ID: "again", Agent: units.NameEcho, Input: map[string]any{"prev": "$steps.hello.output"}},
	}}))
	mustSave(catalog.SaveFlow(ctx, &domain.FlowConfig{ID: "broken", Steps: []domain.StepSpec{
		{ID: "s1", Agent: "ghost"},
	}}))
	if withMetadata {
		mustSave(catalog.SaveMetadata(ctx, domain.Metadata{
			units.NameEcho:  {Enabled: true},
			units.NameMerge: {Enabled: true, DependsOn: []string{units.NameEcho}},
			"off":           {Enabled: false},
		}))
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repo.NewMemoryStore()
	queue := &fakeQueue{}

	eng := flow.New(flow.Config{
		Registry: units.DefaultRegistry(units.Options{}),
		Flows:    catalog,
		Store:    store,
		Logger:   logger,
		NewID:    func() string { return "run-1" },
	})

	h := NewHandler(Config{
		Engine:  eng,
		Catalog: catalog,
		States:  store,
		Queue:   queue,
		Logger:  logger,
		NewID:   func() string { return "queued-1" },
	})

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, catalog: catalog, store: store, queue: queue}
}

func (s *testServer) do(t *testing.T, method, path, userID string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if userID != "" {
		req.Header.Set(HeaderUserID, userID)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, out
}

func TestRunFlow(t *testing.T) {
	s := newTestServer(t, false)

	resp, out := s.do(t, http.MethodPost, "/api/v1/flows/greet/runs", "u1", RunFlowRequest{
		Input: map[string]any{"name": "gopher"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, out)
	}

	state := out["data"].(map[string]any)
	if state["completed"] != true || state["userId"] != "u1" {
		t.Errorf("unexpected state: %v", state)
	}
	steps := state["steps"].([]any)
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if got := steps[0].(map[string]any)["output"]; got != "gopher" {
		t.Errorf("expected gopher, got %v", got)
	}

	// Состояние доступно через GET /runs/{id}
	resp, out = s.do(t, http.MethodGet, "/api/v1/runs/run-1", "u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if out["data"].(map[string]any)["id"] != "run-1" {
		t.Errorf("unexpected run: %v", out)
	}
}

func TestRunFlow_UserFromBody(t *testing.T) {
	s := newTestServer(t, false)

	resp, _ := s.do(t, http.MethodPost, "/api/v1/flows/greet/runs", "", RunFlowRequest{UserID: "u9"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	resp, _ = s.do(t, http.MethodGet, "/api/v1/runs/run-1?user_id=u9", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected state under u9, got %d", resp.StatusCode)
	}
}

func TestRunFlow_Errors(t *testing.T) {
	s := newTestServer(t, false)

	t.Run("flow not found", func(t *testing.T) {
		resp, out := s.do(t, http.MethodPost, "/api/v1/flows/missing/runs", "u1", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", resp.StatusCode)
		}
		// Состояние фатального запуска возвращается вместе с ошибкой
		if out["data"] == nil || out["error"] == nil {
			t.Errorf("expected state and error, got %v", out)
		}
	})

	t.Run("unknown agent", func(t *testing.T) {
		resp, out := s.do(t, http.MethodPost, "/api/v1/flows/broken/runs", "u1", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("expected 404, got %d: %v", resp.StatusCode, out)
		}
	})

	t.Run("run not found", func(t *testing.T) {
		resp, _ := s.do(t, http.MethodGet, "/api/v1/runs/nope", "u1", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}
	})
}

func TestRunFlow_Async(t *testing.T) {
	s := newTestServer(t, false)

	resp, out := s.do(t, http.MethodPost, "/api/v1/flows/greet/runs", "u1", RunFlowRequest{
		Input: map[string]any{"name": "x"},
		Async: true,
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if out["data"].(map[string]any)["run_id"] != "queued-1" {
		t.Errorf("unexpected response: %v", out)
	}
	if len(s.queue.payloads) != 1 || s.queue.payloads[0].FlowID != "greet" || s.queue.payloads[0].UserID != "u1" {
		t.Errorf("unexpected queued payloads: %+v", s.queue.payloads)
	}

	s.queue.err = errors.New("broker down")
	resp, _ = s.do(t, http.MethodPost, "/api/v1/flows/greet/runs", "u1", RunFlowRequest{Async: true})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}
}

func TestFlows(t *testing.T) {
	s := newTestServer(t, false)

	resp, out := s.do(t, http.MethodGet, "/api/v1/flows", "", nil)
	if resp.StatusCode != http.StatusOK || out["total"] != 2.0 {
		t.Fatalf("unexpected list: %d %v", resp.StatusCode, out)
	}

	_, out = s.do(t, http.MethodGet, "/api/v1/flows/greet", "", nil)
	if out["data"].(map[string]any)["valid"] != true {
		t.Errorf("expected valid flow: %v", out)
	}

	_, out = s.do(t, http.MethodGet, "/api/v1/flows/broken", "", nil)
	data := out["data"].(map[string]any)
	if data["valid"] != false || data["error"] == "" {
		t.Errorf("expected invalid flow: %v", out)
	}

	resp, _ = s.do(t, http.MethodGet, "/api/v1/flows/missing", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestAgents(t *testing.T) {
	t.Run("without metadata", func(t *testing.T) {
		s := newTestServer(t, false)

		_, out := s.do(t, http.MethodGet, "/api/v1/agents", "", nil)
		if int(out["total"].(float64)) != len(units.DefaultCatalog(units.Options{})) {
			t.Errorf("unexpected agents: %v", out)
		}

		resp, out := s.do(t, http.MethodPost, "/api/v1/agents/echo/runs", "", RunAgentRequest{
			Input: map[string]any{"value": 7},
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		data := out["data"].(map[string]any)
		if data["output"] != 7.0 || data["with_dependencies"] != false {
			t.Errorf("unexpected result: %v", data)
		}

		resp, _ = s.do(t, http.MethodGet, "/api/v1/agents/merge/plan", "", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("plan without metadata: expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("with metadata", func(t *testing.T) {
		s := newTestServer(t, true)

		resp, out := s.do(t, http.MethodPost, "/api/v1/agents/merge/runs", "", RunAgentRequest{
			Input: map[string]any{"value": "v"},
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d: %v", resp.StatusCode, out)
		}
		data := out["data"].(map[string]any)
		deps := data["output"].(map[string]any)
		if deps[units.NameEcho] != "v" || data["with_dependencies"] != true {
			t.Errorf("unexpected result: %v", data)
		}

		_, out = s.do(t, http.MethodGet, "/api/v1/agents/merge/plan", "", nil)
		plan := out["data"].(map[string]any)["plan"].([]any)
		if len(plan) != 2 || plan[0] != units.NameEcho || plan[1] != units.NameMerge {
			t.Errorf("unexpected plan: %v", plan)
		}

		resp, _ = s.do(t, http.MethodPost, "/api/v1/agents/off/runs", "", nil)
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Errorf("disabled agent: expected 422, got %d", resp.StatusCode)
		}

		resp, _ = s.do(t, http.MethodGet, "/api/v1/agents/ghost/plan", "", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("unknown agent plan: expected 404, got %d", resp.StatusCode)
		}
	})

	t.Run("unit failure", func(t *testing.T) {
		s := newTestServer(t, false)

		resp, out := s.do(t, http.MethodPost, "/api/v1/agents/fetch/runs", "", RunAgentRequest{})
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", resp.StatusCode)
		}
		if out["error"].(map[string]any)["code"] != string(ErrCodeUnitFailed) {
			t.Errorf("unexpected error: %v", out)
		}
	})
}

func TestRecovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Chain(Recovery(logger), Logging(logger))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
