// Package engine содержит чистые функции движка flow.
//
// Включает:
//   - resolver.go — подстановка плейсхолдеров ("$input.x", "$steps.id.output")
//   - parser.go   — валидация FlowConfig и каталога метаданных
//   - graph.go    — граф зависимостей агентов, топологический порядок, поиск циклов
//
// Пакет не выполняет агентов и не имеет побочных эффектов.
package engine
