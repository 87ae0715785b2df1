// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — соединение с автоматическим переподключением
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация запросов на запуск и событий flow
//   - consumer.go   — потребление очереди запросов на запуск
//
// Типы сообщений:
//   - flow.run.requested — запрос на асинхронный запуск flow
//   - flow.event         — событие выполнения flow (routing key = тип события)
//
// Exchanges:
//   - agentflow.flows  — запросы на запуск
//   - agentflow.events — события flow (topic)
//   - agentflow.dlq    — dead letter queue
package mq
