package observer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/shaiso/agentflow/internal/domain"
	"github.com/shaiso/agentflow/internal/telemetry"
)

func TestMulti_Notify(t *testing.T) {
	var got []string
	record := func(name string, err error) Observer {
		return Func(func(_ context.Context, e domain.Event) error {
			got = append(got, name)
			return err
		})
	}

	errA := errors.New("a failed")
	errC := errors.New("c failed")
	m := Multi{record("a", errA), nil, record("b", nil), record("c", errC)}

	err := m.Notify(context.Background(), domain.Event{Type: domain.EventFlowStarted})

	// Все наблюдатели вызваны несмотря на ошибки
	if strings.Join(got, ",") != "a,b,c" {
		t.Errorf("expected a,b,c, got %v", got)
	}
	if !errors.Is(err, errA) || !errors.Is(err, errC) {
		t.Errorf("expected joined errors, got %v", err)
	}
}

func TestMulti_Empty(t *testing.T) {
	if err := (Multi{}).Notify(context.Background(), domain.Event{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Nop.Notify(context.Background(), domain.Event{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLog_Notify(t *testing.T) {
	tests := []struct {
		name  string
		event domain.Event
		level string
	}{
		{"started", domain.Event{Type: domain.EventFlowStarted, RunID: "r1"}, "level=INFO"},
		{"warned", domain.Event{Type: domain.EventStepWarned, StepID: "s1", Agent: "echo"}, "level=WARN"},
		{"failed", domain.Event{Type: domain.EventStepFailed, StepID: "s1", Error: "boom"}, "level=ERROR"},
		{"aborted", domain.Event{Type: domain.EventFlowAborted}, "level=WARN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			if err := NewLog(logger).Notify(context.Background(), tt.event); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			out := buf.String()
			if !strings.Contains(out, tt.level) {
				t.Errorf("expected %s in %q", tt.level, out)
			}
			if !strings.Contains(out, "event="+string(tt.event.Type)) {
				t.Errorf("expected event type in %q", out)
			}
			if tt.event.Error != "" && !strings.Contains(out, "error="+tt.event.Error) {
				t.Errorf("expected error in %q", out)
			}
		})
	}
}

func TestMetrics_Notify(t *testing.T) {
	m := telemetry.NewMetrics(prometheus.NewRegistry())
	o := NewMetrics(m)
	ctx := context.Background()

	o.Notify(ctx, domain.Event{Type: domain.EventStepSucceeded, Agent: "echo"})
	o.Notify(ctx, domain.Event{Type: domain.EventStepSucceeded, Agent: "echo"})
	o.Notify(ctx, domain.Event{Type: domain.EventStepFailed, Agent: "fetch"})
	o.Notify(ctx, domain.Event{Type: domain.EventFlowAborted, FlowID: "demo"})
	o.Notify(ctx, domain.Event{Type: domain.EventFlowStarted, FlowID: "demo"})

	if got := testutil.ToFloat64(m.StepResults.WithLabelValues("echo", telemetry.OutcomeSuccess)); got != 2 {
		t.Errorf("expected 2 echo successes, got %v", got)
	}
	if got := testutil.ToFloat64(m.StepResults.WithLabelValues("fetch", telemetry.OutcomeFailure)); got != 1 {
		t.Errorf("expected 1 fetch failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.FlowRuns.WithLabelValues("demo", telemetry.OutcomeAborted)); got != 1 {
		t.Errorf("expected 1 aborted run, got %v", got)
	}
	// flow.started не считается запуском
	if got := testutil.CollectAndCount(m.FlowRuns); got != 1 {
		t.Errorf("expected 1 flow series, got %d", got)
	}
}

type fakePublisher struct {
	events []domain.Event
	err    error
}

func (p *fakePublisher) PublishEvent(_ context.Context, e domain.Event) error {
	p.events = append(p.events, e)
	return p.err
}

func TestAMQP_Notify(t *testing.T) {
	t.Run("publishes", func(t *testing.T) {
		pub := &fakePublisher{}
		event := domain.Event{Type: domain.EventFlowCompleted, RunID: "r1"}

		if err := NewAMQP(pub).Notify(context.Background(), event); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(pub.events) != 1 || pub.events[0].RunID != "r1" {
			t.Errorf("unexpected events: %+v", pub.events)
		}
	})

	t.Run("wraps error", func(t *testing.T) {
		errBroker := errors.New("broker down")
		pub := &fakePublisher{err: errBroker}

		err := NewAMQP(pub).Notify(context.Background(), domain.Event{Type: domain.EventStepFailed})
		if !errors.Is(err, errBroker) {
			t.Errorf("expected broker error, got %v", err)
		}
		if !strings.Contains(err.Error(), "step.failed") {
			t.Errorf("expected event type in error, got %v", err)
		}
	})
}
