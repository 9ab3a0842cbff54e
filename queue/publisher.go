package queue

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Publisher interface {
	Publish(ctx context.Context, body []byte) error
	Close() error
}

type publisher struct {
	ch     *amqp.Channel
	config PublishConfig
}

func NewPublisher(ch *amqp.Channel, config PublishConfig) Publisher {
	if config.ContentType == "" {
		config.ContentType = "application/json"
	}
	return &publisher{ch, config}
}

// Publish publishes a message to the specified exchange and routing key.
func (p *publisher) Publish(ctx context.Context, body []byte) error {
	message := amqp.Publishing{
		ContentType:  p.config.ContentType,
		Body:         body,
		DeliveryMode: p.config.DeliveryMode,
	}

	return p.ch.PublishWithContext(
		ctx,                 // context
		p.config.Exchange,   // exchange
		p.config.RoutingKey, // routing key
		false,               // mandatory
		false,               // immediate
		message,
	)
}

// Close closes the underlying channel.
func (p *publisher) Close() error {
	return p.ch.Close()
}
