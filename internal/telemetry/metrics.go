package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "agentflow"

// Исходы для меток outcome.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeAborted   = "aborted"
	OutcomeCompleted = "completed"
	OutcomeFatal     = "fatal"
)

// Metrics — Prometheus коллекторы сервиса.
//
// Все методы безопасны для nil receiver: компоненты без метрик
// просто не передают *Metrics.
type Metrics struct {
	FlowRuns          *prometheus.CounterVec
	StepResults       *prometheus.CounterVec
	UnitInvocations   *prometheus.CounterVec
	UnitDuration      *prometheus.HistogramVec
	PersistenceErrors *prometheus.CounterVec
	ObserverErrors    prometheus.Counter
}

// NewMetrics создаёт коллекторы и регистрирует их в reg.
// Если reg == nil, используется prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		FlowRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flow_runs_total",
			Help:      "Flow runs by flow and outcome.",
		}, []string{"flow", "outcome"}),

		StepResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_results_total",
			Help:      "Flow step results by agent and outcome.",
		}, []string{"agent", "outcome"}),

		UnitInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unit_invocations_total",
			Help:      "Unit invocations by unit and outcome.",
		}, []string{"unit", "outcome"}),

		UnitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "unit_duration_seconds",
			Help:      "Unit invocation duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"unit"}),

		PersistenceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_errors_total",
			Help:      "Failed best-effort persistence writes by operation.",
		}, []string{"op"}),

		ObserverErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observer_errors_total",
			Help:      "Observability events that failed to deliver.",
		}),
	}

	reg.MustRegister(
		m.FlowRuns,
		m.StepResults,
		m.UnitInvocations,
		m.UnitDuration,
		m.PersistenceErrors,
		m.ObserverErrors,
	)

	return m
}

// ObserveUnit записывает вызов агента.
func (m *Metrics) ObserveUnit(unit string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.UnitInvocations.WithLabelValues(unit, outcome(err)).Inc()
	m.UnitDuration.WithLabelValues(unit).Observe(d.Seconds())
}

// ObserveStep записывает результат шага flow.
func (m *Metrics) ObserveStep(agent string, success bool) {
	if m == nil {
		return
	}
	o := OutcomeSuccess
	if !success {
		o = OutcomeFailure
	}
	m.StepResults.WithLabelValues(agent, o).Inc()
}

// ObserveFlow записывает завершение запуска flow.
func (m *Metrics) ObserveFlow(flow, outcome string) {
	if m == nil {
		return
	}
	m.FlowRuns.WithLabelValues(flow, outcome).Inc()
}

// PersistenceError увеличивает счётчик ошибок сохранения.
func (m *Metrics) PersistenceError(op string) {
	if m == nil {
		return
	}
	m.PersistenceErrors.WithLabelValues(op).Inc()
}

// ObserverError увеличивает счётчик недоставленных событий.
func (m *Metrics) ObserverError() {
	if m == nil {
		return
	}
	m.ObserverErrors.Inc()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
