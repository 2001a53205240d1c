package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/colaai-billing/internal/infra/queue"
	"github.com/xavierca1/colaai-billing/internal/usecase"
)

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "R$ 79,00", FormatBRL(7900))
	assert.Equal(t, "R$ 0,05", FormatBRL(5))
	assert.Equal(t, "R$ 1490,00", FormatBRL(149000))
}

func TestSendMessage_NotConfigured(t *testing.T) {
	c := NewClient("", "", "")
	assert.False(t, c.Configured())
	assert.ErrorIs(t, c.SendMessage(context.Background(), "oi"), ErrNotConfigured)

	// subscriber sem config não derruba o worker
	assert.NoError(t, c.HandleActivation(context.Background(), queue.ActivationPayload{}))
}

func TestNotifyPixPayment(t *testing.T) {
	var got sendMessageRequest
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient("123:abc", "-100200", srv.URL)
	err := c.NotifyPixPayment(context.Background(), queue.PixNotification{
		Kind:          queue.PixSubscriptionCreated,
		TenantID:      "tenant-1",
		Email:         "dono@padaria.com.br",
		PlanLabel:     "Básico",
		BillingPeriod: "monthly",
		AmountCents:   7900,
		TrialDays:     7,
		At:            time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t, "/bot123:abc/sendMessage", path)
	assert.Equal(t, "-100200", got.ChatID)
	assert.Equal(t, "Markdown", got.ParseMode)
	assert.Contains(t, got.Text, "NOVA ASSINATURA PIX")
	assert.Contains(t, got.Text, "R$ 79,00")
	assert.Contains(t, got.Text, "10/03/2026 12:00")
	assert.Contains(t, got.Text, "Teste grátis de 7 dias")
}

func TestNotifyPixPayment_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	c := NewClient("123:abc", "-1", srv.URL)
	err := c.NotifyPixPayment(context.Background(), queue.PixNotification{Kind: queue.PixManualPayment})

	var gw *usecase.GatewayError
	require.ErrorAs(t, err, &gw)
	assert.Contains(t, err.Error(), "chat not found")
}
