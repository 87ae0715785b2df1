package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shaiso/agentflow/internal/engine"
	"github.com/shaiso/agentflow/internal/executor"
	"github.com/shaiso/agentflow/internal/flow"
	"github.com/shaiso/agentflow/internal/loader"
	"github.com/shaiso/agentflow/internal/repo"
	"github.com/shaiso/agentflow/internal/units"
)

// ErrorCode — код ошибки API.
type ErrorCode string

const (
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	ErrCodeUnitFailed    ErrorCode = "UNIT_FAILED"
	ErrCodeUnavailable   ErrorCode = "UNAVAILABLE"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ErrorResponse — структура ответа с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — детали ошибки.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// DataResponse — структура успешного ответа.
type DataResponse struct {
	Data any `json:"data"`
}

// ListResponse — структура ответа со списком.
type ListResponse struct {
	Data  any `json:"data"`
	Total int `json:"total"`
}

// FailedResponse — ответ фатально завершившегося запуска:
// ошибка и сохранённое состояние.
type FailedResponse struct {
	Data  any         `json:"data,omitempty"`
	Error ErrorDetail `json:"error"`
}

// JSON отправляет JSON ответ.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Success отправляет успешный ответ с данными.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, DataResponse{Data: data})
}

// Accepted отправляет ответ 202 о постановке в очередь.
func Accepted(w http.ResponseWriter, data any) {
	JSON(w, http.StatusAccepted, DataResponse{Data: data})
}

// List отправляет ответ со списком.
func List(w http.ResponseWriter, data any, total int) {
	JSON(w, http.StatusOK, ListResponse{Data: data, Total: total})
}

// Error отправляет ответ с ошибкой.
func Error(w http.ResponseWriter, status int, code ErrorCode, message string) {
	JSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// BadRequest отправляет ошибку 400.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// NotFound отправляет ошибку 404.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// Unavailable отправляет ошибку 503.
func Unavailable(w http.ResponseWriter, message string) {
	Error(w, http.StatusServiceUnavailable, ErrCodeUnavailable, message)
}

// InternalError отправляет ошибку 500.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
}

// classify возвращает HTTP статус и код для ошибки ядра.
func classify(err error) (int, ErrorCode) {
	switch {
	case errors.Is(err, repo.ErrNotFound),
		errors.Is(err, loader.ErrConfigNotFound),
		errors.Is(err, units.ErrUnitNotFound),
		errors.Is(err, engine.ErrUnknownUnit):
		return http.StatusNotFound, ErrCodeNotFound

	case errors.Is(err, loader.ErrInvalidConfig),
		errors.Is(err, flow.ErrInvalidFlow),
		errors.Is(err, units.ErrInvalidUnit),
		errors.Is(err, executor.ErrUnitDisabled),
		errors.Is(err, engine.ErrCyclicDependency),
		errors.Is(err, engine.ErrMissingDependency):
		return http.StatusUnprocessableEntity, ErrCodeInvalidConfig

	case errors.Is(err, units.ErrUnitExecution),
		errors.Is(err, flow.ErrStepTimeout):
		return http.StatusUnprocessableEntity, ErrCodeUnitFailed
	}
	return http.StatusInternalServerError, ErrCodeInternalError
}

// HandleError преобразует ошибку в HTTP ответ. Возвращает false для nil.
func HandleError(w http.ResponseWriter, logger *slog.Logger, err error) bool {
	if err == nil {
		return false
	}

	status, code := classify(err)
	if status == http.StatusInternalServerError {
		InternalError(w, logger, err)
		return true
	}
	Error(w, status, code, err.Error())
	return true
}
