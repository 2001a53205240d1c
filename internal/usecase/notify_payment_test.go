package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/colaai-billing/internal/infra/queue"
)

func TestNotifyPayment(t *testing.T) {
	ctx := context.Background()
	notifier := new(MockNotifier)
	notifier.On("NotifyPixPayment", ctx, mock.MatchedBy(func(n queue.PixNotification) bool {
		return n.Kind == queue.PixManualPayment &&
			n.AmountCents == 7900 &&
			n.PlanLabel == "Avançado" &&
			n.BillingPeriod == "Mensal" &&
			n.Name == "Padaria do Zé"
	})).Return(nil)

	uc := NewNotifyPaymentUseCase(notifier)
	uc.Now = clock

	require.NoError(t, uc.Execute(ctx, testTenant, NotifyPaymentInput{PlanType: "avancado", Amount: 79.00}))
	notifier.AssertExpectations(t)
}

func TestNotifyPayment_RejectsInvalidAmount(t *testing.T) {
	notifier := new(MockNotifier)
	err := NewNotifyPaymentUseCase(notifier).Execute(context.Background(), testTenant, NotifyPaymentInput{PlanType: "basic", Amount: -1})

	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "VALIDATION_ERROR", de.Code)
	notifier.AssertNotCalled(t, "NotifyPixPayment", mock.Anything, mock.Anything)
}
