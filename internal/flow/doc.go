// Package flow реализует Flow Engine — последовательный интерпретатор flow.
//
// Для каждого шага движок:
//  1. Разрешает плейсхолдеры входа против {input, steps}.
//  2. Вызывает агента: через Dependency Executor, если задан источник
//     метаданных, иначе напрямую через реестр.
//  3. При успехе записывает выход в контекст, иначе применяет политику
//     шага (abort, warn, fallback, continue).
//  4. Сохраняет FlowState и отправляет событие наблюдателям.
//
// Сохранение и события best-effort: их ошибки логируются и
// считаются в метриках, но не влияют на выполнение.
//
// Структура:
//   - engine.go   — Engine, Run, Execute
//   - runner.go   — выполнение одного запуска
//   - recorder.go — сохранение состояния, журнал и события
//   - consumer.go — обработчик очереди запросов на запуск
package flow
