package telemetry

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_ObserveUnit(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveUnit("echo", 10*time.Millisecond, nil)
	m.ObserveUnit("echo", 10*time.Millisecond, errors.New("x"))
	m.ObserveUnit("echo", 10*time.Millisecond, nil)

	if got := testutil.ToFloat64(m.UnitInvocations.WithLabelValues("echo", OutcomeSuccess)); got != 2 {
		t.Errorf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(m.UnitInvocations.WithLabelValues("echo", OutcomeFailure)); got != 1 {
		t.Errorf("expected 1 failure, got %v", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	// Не должно паниковать
	m.ObserveUnit("echo", time.Second, nil)
	m.ObserveStep("echo", true)
	m.ObserveFlow("f", OutcomeCompleted)
	m.PersistenceError("write")
	m.ObserverError()
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetupLoggerWith_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLoggerWith("info", "text", &buf)

	WithRunID(logger, "r1").Info("hello")

	if out := buf.String(); !strings.Contains(out, "run_id=r1") {
		t.Errorf("expected run_id in output, got %q", out)
	}
}
