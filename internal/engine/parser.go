package engine

import (
	"fmt"

	"github.com/shaiso/agentflow/internal/domain"
)

// Validate выполняет валидацию FlowConfig.
//
// Проверяет:
// - Наличие шагов
// - Уникальность ID шагов
// - Наличие агента у каждого шага
// - Корректность политики onError и таймаута
//
// Существование агентов в реестре не проверяется: неизвестный агент
// обнаруживается при выполнении шага.
func Validate(cfg *domain.FlowConfig) error {
	if cfg == nil || len(cfg.Steps) == 0 {
		return ErrEmptySteps
	}

	stepIDs := make(map[string]bool, len(cfg.Steps))
	for i := range cfg.Steps {
		if err := ValidateStep(&cfg.Steps[i], stepIDs); err != nil {
			return err
		}
	}

	return nil
}

// ValidateStep валидирует один шаг.
// stepIDs — уже встреченные ID шагов (для проверки уникальности).
func ValidateStep(step *domain.StepSpec, stepIDs map[string]bool) error {
	if step.ID == "" {
		return NewValidationError("", "id", "step has empty ID", ErrEmptyStepID)
	}

	if stepIDs[step.ID] {
		return NewValidationError(step.ID, "id",
			fmt.Sprintf("duplicate step ID: %s", step.ID), ErrDuplicateStepID)
	}
	stepIDs[step.ID] = true

	if step.Agent == "" {
		return NewValidationError(step.ID, "agent", "step has empty agent", ErrEmptyAgent)
	}

	if !step.OnError.IsValid() {
		return NewValidationError(step.ID, "onError",
			fmt.Sprintf("unknown error policy: %s", step.OnError), ErrUnknownPolicy)
	}

	if step.TimeoutSec < 0 {
		return NewValidationError(step.ID, "timeoutSec",
			fmt.Sprintf("negative timeout: %d", step.TimeoutSec), ErrInvalidTimeout)
	}

	return nil
}

// ValidateAgents проверяет, что все агенты flow (включая fallback)
// известны. has — функция проверки наличия агента в реестре.
func ValidateAgents(cfg *domain.FlowConfig, has func(name string) bool) error {
	for _, step := range cfg.Steps {
		if !has(step.Agent) {
			return NewValidationError(step.ID, "agent",
				fmt.Sprintf("unknown agent: %s", step.Agent), ErrUnknownUnit)
		}
		if step.FallbackAgent != "" && !has(step.FallbackAgent) {
			return NewValidationError(step.ID, "fallbackAgent",
				fmt.Sprintf("unknown agent: %s", step.FallbackAgent), ErrUnknownUnit)
		}
	}
	return nil
}

// ValidateMetadata проверяет каталог метаданных: пререквизиты должны
// ссылаться на описанных агентов, агент не может зависеть от себя.
//
// Циклы длиннее одного шага обнаруживает BuildGraph.
func ValidateMetadata(meta domain.Metadata) error {
	for id, unit := range meta {
		for _, dep := range unit.DependsOn {
			if dep == id {
				return NewValidationError("", "dependsOn",
					fmt.Sprintf("unit %s depends on itself", id), ErrCyclicDependency)
			}
			if _, ok := meta[dep]; !ok {
				return NewValidationError("", "dependsOn",
					fmt.Sprintf("unit %s depends on unknown unit: %s", id, dep), ErrMissingDependency)
			}
		}
	}
	return nil
}
