package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// ActivationSubscriber recebe cada ativação consumida da fila (email, Telegram).
type ActivationSubscriber interface {
	Name() string
	HandleActivation(ctx context.Context, payload ActivationPayload) error
}

type Worker struct {
	Channel     *amqp.Channel
	Subscribers []ActivationSubscriber
}

func NewWorker(ch *amqp.Channel, subscribers ...ActivationSubscriber) *Worker {
	return &Worker{
		Channel:     ch,
		Subscribers: subscribers,
	}
}

// Start consome até o ctx ser cancelado ou o canal fechar.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.ConsumeWithContext(ctx,
		queueName,
		"",    // consumer
		false, // auto-ack desligado, ack manual
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("falha ao registrar consumidor RabbitMQ: %w", err)
	}

	log.Info().Str("queue", queueName).Msg("👷 worker de ativações aguardando mensagens")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("canal de consumo fechado")
			}
			w.handleDelivery(ctx, d)
		}
	}
}

func (w *Worker) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var payload ActivationPayload
	if err := json.Unmarshal(d.Body, &payload); err != nil {
		log.Error().Err(err).Msg("❌ [WORKER] JSON inválido, mandando pra DLQ")
		d.Nack(false, false)
		return
	}

	if err := w.process(ctx, payload); err != nil {
		log.Error().Err(err).Str("tenant_id", payload.TenantID).Msg("❌ [WORKER] falha ao notificar ativação")
		d.Nack(false, false)
		return
	}

	log.Info().Str("tenant_id", payload.TenantID).Str("origin", payload.Origin).Msg("✅ [WORKER] ativação notificada")
	d.Ack(false)
}

// process roda todos os subscribers; um que falha não impede os outros.
func (w *Worker) process(ctx context.Context, payload ActivationPayload) error {
	var errs []error
	for _, s := range w.Subscribers {
		if err := s.HandleActivation(ctx, payload); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
