package mq

import "errors"

// Ошибки брокера.
var (
	// ErrNoChannel — AMQP канал недоступен (нет соединения).
	ErrNoChannel = errors.New("no amqp channel available")
)
