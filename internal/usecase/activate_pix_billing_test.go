package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/colaai-billing/internal/entity"
	"github.com/xavierca1/colaai-billing/internal/infra/queue"
)

func newActivator(subs *fakeSubscriptions, employees *fakeEmployees, producer QueueProducerInterface) *ActivatePixBillingUseCase {
	uc := NewActivatePixBillingUseCase(subs, employees, producer)
	uc.Now = clock
	return uc
}

func TestActivatePixBilling_ActivatesPendingRow(t *testing.T) {
	ctx := context.Background()
	subs := newFakeSubscriptions(entity.Subscription{
		TenantID:      "tenant-1",
		PlanType:      entity.PlanBasic,
		Status:        entity.StatusPendingPix,
		PaymentMethod: entity.PaymentPix,
		PixBillingRef: "bill_123",
		TrialEndsAt:   entity.Ptr(fixedNow),
	})
	employees := &fakeEmployees{}
	producer := new(MockQueueProducer)
	producer.On("PublishActivation", ctx, mock.MatchedBy(func(p queue.ActivationPayload) bool {
		return p.TenantID == "tenant-1" &&
			p.PlanType == "advanced" &&
			p.Origin == "WEBHOOK_ABACATEPAY" &&
			p.EmployeeCreated
	})).Return(nil)

	uc := newActivator(subs, employees, producer)
	res, err := uc.Execute(ctx, entity.BillingPaid{
		BillingRef:  "bill_123",
		TenantID:    "tenant-1",
		PlanLabel:   "Avançado",
		AmountCents: 7900,
	}, "WEBHOOK_ABACATEPAY")

	require.NoError(t, err)
	assert.True(t, res.Activated)

	row := subs.get("tenant-1")
	assert.Equal(t, entity.StatusActive, row.Status)
	assert.Equal(t, entity.PlanAdvanced, row.PlanType)
	assert.Equal(t, entity.PaymentPix, row.PaymentMethod)
	assert.Equal(t, entity.SyncLocal, row.SyncSource)
	assert.Nil(t, row.TrialEndsAt)
	require.NotNil(t, row.CurrentPeriodEnd)
	assert.Equal(t, fixedNow.AddDate(0, 0, 30), *row.CurrentPeriodEnd)
	assert.Equal(t, 1, employees.created)
	producer.AssertExpectations(t)
}

func TestActivatePixBilling_IdempotentOnRedelivery(t *testing.T) {
	ctx := context.Background()
	subs := newFakeSubscriptions(entity.Subscription{
		TenantID:      "tenant-1",
		PlanType:      entity.PlanBasic,
		Status:        entity.StatusPendingPix,
		PixBillingRef: "bill_123",
	})
	employees := &fakeEmployees{}
	producer := new(MockQueueProducer)
	producer.On("PublishActivation", ctx, mock.Anything).Return(nil).Once()

	uc := newActivator(subs, employees, producer)
	ev := entity.BillingPaid{BillingRef: "bill_123", AmountCents: 4900}

	first, err := uc.Execute(ctx, ev, "WEBHOOK_ABACATEPAY")
	require.NoError(t, err)
	assert.True(t, first.Activated)
	endAfterFirst := *subs.get("tenant-1").CurrentPeriodEnd

	second, err := uc.Execute(ctx, ev, "POLL_CHECK_STATUS")
	require.NoError(t, err)
	assert.False(t, second.Activated)
	assert.Equal(t, "already_active", second.Reason)

	assert.Equal(t, 1, subs.upserts)
	assert.Equal(t, endAfterFirst, *subs.get("tenant-1").CurrentPeriodEnd)
	assert.Equal(t, 1, employees.created)
	producer.AssertNumberOfCalls(t, "PublishActivation", 1)
}

func TestActivatePixBilling_ConcurrentWebhookAndPollActivateOnce(t *testing.T) {
	ctx := context.Background()
	subs := newFakeSubscriptions(entity.Subscription{
		TenantID:      "tenant-1",
		PlanType:      entity.PlanBasic,
		Status:        entity.StatusPendingPix,
		PixBillingRef: "bill_123",
	})
	producer := new(MockQueueProducer)
	producer.On("PublishActivation", ctx, mock.Anything).Return(nil)

	uc := newActivator(subs, &fakeEmployees{}, producer)
	ev := entity.BillingPaid{BillingRef: "bill_123", TenantID: "tenant-1", AmountCents: 4900}

	var wg sync.WaitGroup
	results := make([]*ActivationResult, 2)
	for i, origin := range []string{"WEBHOOK_ABACATEPAY", "POLL_CHECK_STATUS"} {
		wg.Add(1)
		go func(i int, origin string) {
			defer wg.Done()
			res, err := uc.Execute(ctx, ev, origin)
			assert.NoError(t, err)
			results[i] = res
		}(i, origin)
	}
	wg.Wait()

	activated := 0
	for _, r := range results {
		if r != nil && r.Activated {
			activated++
		}
	}
	assert.Equal(t, 1, activated)
	assert.Equal(t, 1, subs.upserts)
	producer.AssertNumberOfCalls(t, "PublishActivation", 1)
}

func TestActivatePixBilling_ActivateSkippedWhenRowTurnedActive(t *testing.T) {
	ctx := context.Background()
	subs := &racingSubscriptions{fakeSubscriptions: newFakeSubscriptions(entity.Subscription{
		TenantID: "tenant-1", Status: entity.StatusPendingPix, PixBillingRef: "bill_123",
	})}
	producer := new(MockQueueProducer)

	uc := NewActivatePixBillingUseCase(subs, &fakeEmployees{}, producer)
	uc.Now = clock
	res, err := uc.Execute(ctx, entity.BillingPaid{BillingRef: "bill_123", TenantID: "tenant-1"}, "POLL_CHECK_STATUS")

	require.NoError(t, err)
	assert.False(t, res.Activated)
	assert.Equal(t, "already_active", res.Reason)
	producer.AssertNotCalled(t, "PublishActivation", mock.Anything, mock.Anything)
}

// racingSubscriptions simula outra entrega ativando entre a leitura e a escrita.
type racingSubscriptions struct {
	*fakeSubscriptions
}

func (r *racingSubscriptions) Activate(ctx context.Context, tenantID string, fields entity.SubscriptionFields) (*entity.Subscription, error) {
	if _, err := r.fakeSubscriptions.Upsert(ctx, tenantID, entity.SubscriptionFields{Status: entity.Ptr(entity.StatusActive)}); err != nil {
		return nil, err
	}
	return r.fakeSubscriptions.Activate(ctx, tenantID, fields)
}

func TestActivatePixBilling_UnresolvedTenantIsDropped(t *testing.T) {
	subs := newFakeSubscriptions()
	producer := new(MockQueueProducer)

	res, err := newActivator(subs, &fakeEmployees{}, producer).Execute(context.Background(),
		entity.BillingPaid{BillingRef: "bill_unknown"}, "WEBHOOK_ABACATEPAY")

	require.NoError(t, err)
	assert.False(t, res.Activated)
	assert.Equal(t, "unresolved", res.Reason)
	assert.Equal(t, 0, subs.upserts)
	producer.AssertNotCalled(t, "PublishActivation", mock.Anything, mock.Anything)
}

func TestActivatePixBilling_QueueFailureStillActivates(t *testing.T) {
	ctx := context.Background()
	subs := newFakeSubscriptions()
	producer := new(MockQueueProducer)
	producer.On("PublishActivation", ctx, mock.Anything).Return(errors.New("broker down"))

	res, err := newActivator(subs, &fakeEmployees{}, producer).Execute(ctx,
		entity.BillingPaid{TenantID: "tenant-9", BillingRef: "bill_9", PlanLabel: "professional", BillingPeriod: "annual"}, "WEBHOOK_ABACATEPAY")

	require.NoError(t, err)
	assert.True(t, res.Activated)
	row := subs.get("tenant-9")
	assert.Equal(t, entity.StatusActive, row.Status)
	assert.Equal(t, entity.PeriodAnnual, row.BillingPeriod)
	assert.Equal(t, fixedNow.AddDate(0, 0, 365), *row.CurrentPeriodEnd)
}

func TestActivatePixBilling_DBErrorIsTechnical(t *testing.T) {
	subs := newFakeSubscriptions()
	subs.upsertErr = errors.New("connection reset")

	_, err := newActivator(subs, &fakeEmployees{}, new(MockQueueProducer)).Execute(context.Background(),
		entity.BillingPaid{TenantID: "tenant-1"}, "WEBHOOK_ABACATEPAY")

	assert.True(t, IsTechnicalError(err))
}

func TestResolvePixPlan(t *testing.T) {
	existing := &entity.Subscription{PlanType: entity.PlanProfessional, BillingPeriod: entity.PeriodAnnual}

	t.Run("metadata vence", func(t *testing.T) {
		plan, period := resolvePixPlan(entity.BillingPaid{PlanLabel: "Básico", BillingPeriod: "mensal", AmountCents: 79000}, existing)
		assert.Equal(t, entity.PlanBasic, plan)
		assert.Equal(t, entity.PeriodMonthly, period)
	})

	t.Run("valor antes da linha", func(t *testing.T) {
		plan, period := resolvePixPlan(entity.BillingPaid{AmountCents: 79000}, existing)
		assert.Equal(t, entity.PlanAdvanced, plan)
		assert.Equal(t, entity.PeriodAnnual, period)
	})

	t.Run("linha gravada", func(t *testing.T) {
		plan, period := resolvePixPlan(entity.BillingPaid{AmountCents: 1}, existing)
		assert.Equal(t, entity.PlanProfessional, plan)
		assert.Equal(t, entity.PeriodAnnual, period)
	})

	t.Run("sem nada cai no básico mensal", func(t *testing.T) {
		plan, period := resolvePixPlan(entity.BillingPaid{}, nil)
		assert.Equal(t, entity.PlanBasic, plan)
		assert.Equal(t, entity.PeriodMonthly, period)
	})
}
