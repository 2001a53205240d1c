package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher é o pedaço do canal AMQP que o producer usa.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type RabbitMQProducer struct {
	Ch Publisher
}

func NewProducer(ch Publisher) *RabbitMQProducer {
	return &RabbitMQProducer{Ch: ch}
}

func (p *RabbitMQProducer) PublishActivation(ctx context.Context, payload ActivationPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("erro ao converter payload: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Type:         "subscription.activated",
		},
	)
	if err != nil {
		return fmt.Errorf("falha ao publicar no RabbitMQ: %w", err)
	}
	return nil
}

// NoopProducer é usado quando RABBITMQ_URL não está configurada.
type NoopProducer struct{}

func (NoopProducer) PublishActivation(context.Context, ActivationPayload) error { return nil }
