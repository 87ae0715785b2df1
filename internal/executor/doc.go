// Package executor реализует Dependency Executor.
//
// Executor вызывает агента после его пререквизитов, описанных
// в метаданных (dependsOn). В рамках одного верхнеуровневого вызова
// каждый агент выполняется не более одного раза (кэш результатов),
// а стек вызовов обнаруживает циклы: A -> B -> A.
package executor
