// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go       — Handler с DI (движок flow, каталог, хранилище, очередь)
//   - routes.go        — регистрация маршрутов
//   - middleware.go    — middleware (logging, recovery)
//   - response.go      — унифицированные JSON-ответы и обработка ошибок
//   - dto.go           — Data Transfer Objects (request/response)
//   - flow_handler.go  — обработчики для /flows
//   - run_handler.go   — обработчики для запусков flow
//   - agent_handler.go — обработчики для /agents
package api
