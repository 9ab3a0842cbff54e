// See https://www.rabbitmq.com/tutorials/amqp-concepts-tutorial.html
package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Connection struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

// NewConnection dials the broker, opens a channel and declares the
// configured queue.
func NewConnection(config ConnectionConfig) (*Connection, error) {
	if config.QueueConfig == nil || config.QueueConfig.Name == "" {
		return nil, fmt.Errorf("queue name is required")
	}

	conn, err := amqp.Dial(config.URI)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	queueConfig := config.QueueConfig
	if _, err = ch.QueueDeclare(
		queueConfig.Name,
		queueConfig.Durable,
		queueConfig.AutoDelete,
		queueConfig.Exclusive,
		queueConfig.NoWait,
		declareArgs(queueConfig),
	); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &Connection{conn, ch}, nil
}

func declareArgs(cfg *Config) amqp.Table {
	args := amqp.Table{}
	for k, v := range cfg.Args {
		args[k] = v
	}
	if cfg.Type != "" {
		args["x-queue-type"] = string(cfg.Type)
	}
	return args
}

func (c *Connection) Close() error {
	return c.Conn.Close()
}
