package queue

type ConnectionConfig struct {
	// URI: The RabbitMQ connection URI, which includes the address, port, and authentication credentials if necessary
	URI string
	// QueueConfig: The configuration of the queue associated with the connection
	QueueConfig *Config
}

type Config struct {
	// Name: The name of the queue to be declared and used for message exchange.
	Name string
	// Type: classic, quorum or stream. Empty leaves the broker default.
	Type QueueType
	// Durable: Indicates whether the queue should be durable (persistent) or not.
	Durable bool
	// AutoDelete: Indicates whether the queue should be automatically deleted when it is no longer in use.
	AutoDelete bool
	// Exclusive: Indicates whether the queue should be exclusive to the connection that declares it.
	Exclusive bool
	// NoWait: Indicates whether the queue declaration should not wait for a response from the server.
	NoWait bool
	// Args: Additional arguments used when declaring the queue (x-message-ttl, x-max-length, ...).
	Args map[string]interface{}
}

type PublishConfig struct {
	// Exchange: The name of the exchange to be used for message publishing.
	Exchange string
	// RoutingKey: The routing key to be used for message publishing.
	RoutingKey string
	// ContentType: The content type of the message to be published.
	ContentType string
	// DeliveryMode: 1 = non-persistent, 2 = persistent
	DeliveryMode uint8
}
