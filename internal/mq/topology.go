package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeFlows  Exchange = "agentflow.flows"
	ExchangeEvents Exchange = "agentflow.events"
	ExchangeDLQ    Exchange = "agentflow.dlq"
)

// Queues — имена очередей.
const (
	QueueRunRequests Queue = "flow.runs.requested"
	QueueEvents      Queue = "flow.events"
	QueueDLQRuns     Queue = "dlq.runs"
)

// Routing keys.
const (
	RoutingKeyRequested  RoutingKey = "requested"
	RoutingKeyFlowEvents RoutingKey = "flow.#"
	RoutingKeyStepEvents RoutingKey = "step.#"
	RoutingKeyDLQRuns    RoutingKey = "runs"
)

type exchangeDecl struct {
	name Exchange
	kind string
}

type queueDecl struct {
	name Queue
	args amqp.Table
}

type bindingDecl struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
}

// Topology — набор объявлений RabbitMQ.
type Topology struct {
	exchanges []exchangeDecl
	queues    []queueDecl
	bindings  []bindingDecl
}

// DefaultTopology возвращает топологию сервиса:
//
//	agentflow.flows (direct)
//	└── flow.runs.requested [routing: requested], DLQ: dlq.runs
//	agentflow.events (topic)
//	└── flow.events [routing: flow.#, step.#]
//	agentflow.dlq (direct)
//	└── dlq.runs [routing: runs]
func DefaultTopology() *Topology {
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQRuns),
	}

	return &Topology{
		exchanges: []exchangeDecl{
			{ExchangeFlows, amqp.ExchangeDirect},
			{ExchangeEvents, amqp.ExchangeTopic},
			{ExchangeDLQ, amqp.ExchangeDirect},
		},
		queues: []queueDecl{
			{QueueRunRequests, dlqArgs},
			{QueueEvents, nil},
			{QueueDLQRuns, nil},
		},
		bindings: []bindingDecl{
			{QueueRunRequests, RoutingKeyRequested, ExchangeFlows},
			{QueueEvents, RoutingKeyFlowEvents, ExchangeEvents},
			{QueueEvents, RoutingKeyStepEvents, ExchangeEvents},
			{QueueDLQRuns, RoutingKeyDLQRuns, ExchangeDLQ},
		},
	}
}

// Queues возвращает имена объявляемых очередей.
func (t *Topology) Queues() []Queue {
	names := make([]Queue, len(t.queues))
	for i, q := range t.queues {
		names[i] = q.name
	}
	return names
}

// SetupTopology объявляет обменники, очереди и привязки.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return DefaultTopology().Declare(ctx, conn)
}

// Declare объявляет топологию на текущем канале соединения.
func (t *Topology) Declare(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, ex := range t.exchanges {
			if err := ch.ExchangeDeclare(string(ex.name), ex.kind, true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex.name, err)
			}
		}

		for _, q := range t.queues {
			if _, err := ch.QueueDeclare(string(q.name), true, false, false, false, q.args); err != nil {
				return fmt.Errorf("declare queue %s: %w", q.name, err)
			}
		}

		for _, b := range t.bindings {
			if err := ch.QueueBind(string(b.queue), string(b.routingKey), string(b.exchange), false, nil); err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
			}
		}

		return nil
	})
}
