package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============ PRODUCER ============

type fakePublisher struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
}

func (f *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func TestPublishActivation_PersistentJSON(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(pub)

	err := p.PublishActivation(context.Background(), ActivationPayload{
		TenantID:      "tenant-1",
		Email:         "dono@padaria.com.br",
		PlanType:      "advanced",
		PlanLabel:     "Avançado",
		BillingPeriod: "monthly",
		PaymentMethod: "pix",
		Origin:        "WEBHOOK_ABACATEPAY",
	})
	require.NoError(t, err)

	assert.Equal(t, ExchangeName, pub.exchange)
	assert.Equal(t, RoutingKey, pub.key)
	assert.Equal(t, amqp.Persistent, pub.msg.DeliveryMode)
	assert.Equal(t, "application/json", pub.msg.ContentType)

	var got ActivationPayload
	require.NoError(t, json.Unmarshal(pub.msg.Body, &got))
	assert.Equal(t, "tenant-1", got.TenantID)
	assert.Equal(t, "WEBHOOK_ABACATEPAY", got.Origin)
	assert.Nil(t, got.CurrentPeriodEnd)
}

func TestPublishActivation_BrokerError(t *testing.T) {
	p := NewProducer(&fakePublisher{err: amqp.ErrClosed})

	err := p.PublishActivation(context.Background(), ActivationPayload{TenantID: "tenant-1"})
	assert.ErrorIs(t, err, amqp.ErrClosed)
}

func TestNoopProducer(t *testing.T) {
	assert.NoError(t, NoopProducer{}.PublishActivation(context.Background(), ActivationPayload{}))
}

// ============ WORKER ============

type recordingSubscriber struct {
	name  string
	err   error
	calls int
}

func (s *recordingSubscriber) Name() string { return s.name }

func (s *recordingSubscriber) HandleActivation(context.Context, ActivationPayload) error {
	s.calls++
	return s.err
}

func TestWorkerProcess_OneFailureDoesNotStopOthers(t *testing.T) {
	email := &recordingSubscriber{name: "email", err: errors.New("smtp fora")}
	tg := &recordingSubscriber{name: "telegram"}
	w := NewWorker(nil, email, tg)

	err := w.process(context.Background(), ActivationPayload{TenantID: "tenant-1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "email: smtp fora")
	assert.Equal(t, 1, email.calls)
	assert.Equal(t, 1, tg.calls)
}

func TestWorkerProcess_AllOK(t *testing.T) {
	tg := &recordingSubscriber{name: "telegram"}
	w := NewWorker(nil, tg)

	assert.NoError(t, w.process(context.Background(), ActivationPayload{}))
	assert.Equal(t, 1, tg.calls)
}
