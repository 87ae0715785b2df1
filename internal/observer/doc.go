// Package observer доставляет события выполнения flow наблюдателям.
//
// Наблюдатели:
//   - Log     — пишет события в slog
//   - Metrics — считает события в Prometheus
//   - AMQP    — публикует события в RabbitMQ (agentflow.events)
//   - Multi   — рассылает событие нескольким наблюдателям
//
// Доставка fire-and-forget: ошибка наблюдателя возвращается вызывающему,
// но движок flow её только логирует.
package observer
