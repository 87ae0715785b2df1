package domain

import (
	"errors"
	"testing"
	"time"
)

func TestStepSpec_Policy(t *testing.T) {
	tests := []struct {
		onError ErrorPolicy
		want    ErrorPolicy
	}{
		{"", PolicyAbort},
		{PolicyAbort, PolicyAbort},
		{PolicyWarn, PolicyWarn},
		{PolicyFallback, PolicyFallback},
		{PolicyContinue, PolicyContinue},
	}

	for _, tt := range tests {
		t.Run(string(tt.onError), func(t *testing.T) {
			step := StepSpec{ID: "s", Agent: "echo", OnError: tt.onError}
			if got := step.Policy(); got != tt.want {
				t.Errorf("Policy() = %q, want %q", got, tt.want)
			}
		})
	}

	if ErrorPolicy("retry").IsValid() {
		t.Error("неизвестная политика не должна быть валидной")
	}
}

func TestResult_Succeeded(t *testing.T) {
	// Success не задан — успех
	if !Ok("x", "").Succeeded() {
		t.Error("Ok().Succeeded() = false")
	}
	if Failed(nil, "no data").Succeeded() {
		t.Error("Failed().Succeeded() = true")
	}
	yes := true
	if !(&Result{Success: &yes}).Succeeded() {
		t.Error("Success=true должен давать успех")
	}
}

func TestFlowState(t *testing.T) {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	state := NewFlowState("run-1", "demo", "alice", started)

	i := state.BeginStep("a", "echo", started)
	state.Step(i).Succeed(Ok(map[string]any{"v": 1}, "done"), started.Add(time.Second))

	j := state.BeginStep("b", "fetch", started)
	state.Step(j).Fail(errors.New("boom"), started.Add(2*time.Second))

	if state.Succeeded() != 1 {
		t.Errorf("Succeeded() = %d, want 1", state.Succeeded())
	}

	doc, err := state.Document()
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}

	// completed не устанавливается до завершения
	if _, ok := doc["completed"]; ok {
		t.Error("completed не должен попадать в документ до MarkCompleted")
	}
	if _, ok := doc["finished"]; ok {
		t.Error("finished не должен попадать в документ до MarkCompleted")
	}
	if doc["flowId"] != "demo" || doc["userId"] != "alice" {
		t.Errorf("document = %v", doc)
	}

	steps, _ := doc["steps"].([]any)
	if len(steps) != 2 {
		t.Fatalf("steps = %v", doc["steps"])
	}
	second, _ := steps[1].(map[string]any)
	if second["success"] != false || second["error"] != "boom" {
		t.Errorf("step b = %v", second)
	}

	state.MarkCompleted(started.Add(3 * time.Second))
	doc, _ = state.Document()
	if doc["completed"] != true || doc["finished"] == nil {
		t.Errorf("document после MarkCompleted = %v", doc)
	}
}

func TestMetadata_Get(t *testing.T) {
	meta := Metadata{
		"report": {Enabled: true, DependsOn: []string{"collect"}},
	}

	got, ok := meta.Get("report")
	if !ok || got.ID != "report" || !got.Enabled {
		t.Errorf("Get(report) = %+v, %v", got, ok)
	}

	if _, ok := meta.Get("missing"); ok {
		t.Error("Get(missing) должен вернуть false")
	}
}
