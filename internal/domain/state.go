package domain

import (
	"encoding/json"
	"time"
)

// FlowState — состояние одного запуска flow.
//
// FlowState — канонический журнал выполнения: шаги появляются в Steps
// в момент начала выполнения и в порядке выполнения. Документ
// сохраняется после каждого шага и после завершения flow.
type FlowState struct {
	// ID — идентификатор запуска.
	ID string `json:"id"`

	// FlowID — идентификатор выполняемого flow.
	FlowID string `json:"flowId"`

	// UserID — пользователь, запустивший flow.
	UserID string `json:"userId"`

	// Started — время начала.
	Started time.Time `json:"started"`

	// Steps — записи шагов в порядке выполнения.
	Steps []StepRecord `json:"steps"`

	// Completed — true, если цикл по шагам прошёл до конца.
	// При abort остаётся неустановленным.
	Completed bool `json:"completed,omitempty"`

	// Finished — время завершения. Nil, если flow не дошёл до конца.
	Finished *time.Time `json:"finished,omitempty"`

	// Error — фатальная ошибка (конфигурация, структура), прервавшая flow.
	Error string `json:"error,omitempty"`
}

// StepRecord — запись о выполнении одного шага.
type StepRecord struct {
	ID            string          `json:"id"`
	Agent         string          `json:"agent"`
	Started       time.Time       `json:"started"`
	Output        any             `json:"output,omitempty"`
	Explanation   string          `json:"explanation,omitempty"`
	Success       bool            `json:"success"`
	Error         string          `json:"error,omitempty"`
	Fallback      *FallbackRecord `json:"fallback,omitempty"`
	FallbackError string          `json:"fallbackError,omitempty"`
	Finished      *time.Time      `json:"finished,omitempty"`
}

// FallbackRecord — результат fallback-агента.
type FallbackRecord struct {
	Agent  string `json:"agent"`
	Output any    `json:"output,omitempty"`
}

// NewFlowState создаёт состояние нового запуска.
func NewFlowState(id, flowID, userID string, started time.Time) *FlowState {
	return &FlowState{
		ID:      id,
		FlowID:  flowID,
		UserID:  userID,
		Started: started,
		Steps:   []StepRecord{},
	}
}

// BeginStep добавляет запись начатого шага и возвращает её индекс.
func (s *FlowState) BeginStep(id, agent string, started time.Time) int {
	s.Steps = append(s.Steps, StepRecord{ID: id, Agent: agent, Started: started})
	return len(s.Steps) - 1
}

// Step возвращает запись шага по индексу.
func (s *FlowState) Step(i int) *StepRecord {
	return &s.Steps[i]
}

// MarkCompleted отмечает успешное прохождение всех шагов.
func (s *FlowState) MarkCompleted(at time.Time) {
	s.Completed = true
	s.Finished = &at
}

// MarkFailed записывает фатальную ошибку. Completed не устанавливается.
func (s *FlowState) MarkFailed(err string) {
	s.Error = err
}

// Succeeded возвращает число успешных шагов.
func (s *FlowState) Succeeded() int {
	n := 0
	for _, step := range s.Steps {
		if step.Success {
			n++
		}
	}
	return n
}

// Document возвращает состояние в виде документа для хранилища.
func (s *FlowState) Document() (map[string]any, error) {
	return toDocument(s)
}

// Succeed записывает успешный результат агента.
func (r *StepRecord) Succeed(res *Result, at time.Time) {
	r.Success = true
	r.Output = res.Output
	r.Explanation = res.Explanation
	r.Finished = &at
}

// Fail записывает ошибку агента.
func (r *StepRecord) Fail(err error, at time.Time) {
	r.Success = false
	r.Error = err.Error()
	r.Finished = &at
}

func toDocument(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
