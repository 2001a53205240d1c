package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/colaai-billing/internal/entity"
	"github.com/xavierca1/colaai-billing/internal/infra/queue"
)

func TestPixSubscription_InvoiceCollectedAndPending(t *testing.T) {
	ctx := context.Background()
	subs := newFakeSubscriptions()
	trials := newFakeTrials()
	trials.Record(ctx, entity.UsedTrial{TenantID: "tenant-1", PlanType: entity.PlanAdvanced})

	card := new(MockCardGateway).catalog()
	card.On("GetOrCreateCustomer", ctx, mock.Anything).Return("cus_1", nil)
	card.On("ListLiveSubscriptions", ctx, "cus_1").Return([]entity.CardSubscription{}, nil)
	card.On("CreateSubscription", ctx, mock.MatchedBy(func(in CardSubscriptionInput) bool {
		return in.Invoice && in.Metadata["paymentMethod"] == "pix"
	})).Return(&entity.CardSubscription{Ref: "sub_pix", Status: "active", PriceRef: "price_advanced"}, nil)

	notifier := new(MockNotifier)
	notifier.On("NotifyPixPayment", ctx, mock.MatchedBy(func(n queue.PixNotification) bool {
		return n.Kind == queue.PixSubscriptionCreated && n.AmountCents == 79000 && n.Status == "pending_pix"
	})).Return(errors.New("telegram fora"))

	uc := NewPixSubscriptionUseCase(subs, card, newTestTrialPolicy(7, trials), notifier)
	uc.replacer.now = clock
	uc.Now = clock

	out, err := uc.Execute(ctx, testTenant, PlanRequest{PlanType: "advanced", BillingPeriod: "anual"})

	require.NoError(t, err)
	assert.Equal(t, int64(79000), out.AmountCents)
	assert.Equal(t, "pending_pix", out.Status)

	row := subs.get("tenant-1")
	assert.Equal(t, entity.StatusPendingPix, row.Status)
	assert.Equal(t, entity.PaymentPix, row.PaymentMethod)
	assert.Equal(t, entity.PeriodAnnual, row.BillingPeriod)
	assert.Equal(t, "sub_pix", row.CardSubscriptionRef)
	notifier.AssertExpectations(t)
}

func TestPixSubscription_TrialingBecomesTrial(t *testing.T) {
	ctx := context.Background()
	subs := newFakeSubscriptions()

	card := new(MockCardGateway).catalog()
	card.On("GetOrCreateCustomer", ctx, mock.Anything).Return("cus_1", nil)
	card.On("ListLiveSubscriptions", ctx, "cus_1").Return([]entity.CardSubscription{}, nil)
	card.On("CreateSubscription", ctx, mock.Anything).
		Return(&entity.CardSubscription{Ref: "sub_pix", Status: "trialing", TrialEnd: entity.Ptr(fixedNow.AddDate(0, 0, 7))}, nil)

	notifier := new(MockNotifier)
	notifier.On("NotifyPixPayment", ctx, mock.Anything).Return(nil)

	uc := NewPixSubscriptionUseCase(subs, card, newTestTrialPolicy(7, newFakeTrials()), notifier)
	uc.replacer.now = clock

	out, err := uc.Execute(ctx, testTenant, PlanRequest{PlanType: "basic"})

	require.NoError(t, err)
	assert.True(t, out.HasTrial)
	assert.Equal(t, entity.StatusTrial, subs.get("tenant-1").Status)
}
