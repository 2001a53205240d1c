package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/colaai-billing/internal/entity"
)

func newChangePlan(subs *fakeSubscriptions, card *MockCardGateway, trials *fakeTrials, days int64) *ChangePlanUseCase {
	uc := NewChangePlanUseCase(subs, card, newTestTrialPolicy(days, trials))
	uc.replacer.now = clock
	return uc
}

func TestChangePlan_CancelsLiveBeforeCreating(t *testing.T) {
	ctx := context.Background()
	subs := newFakeSubscriptions(entity.Subscription{
		TenantID:            "tenant-1",
		PlanType:            entity.PlanBasic,
		Status:              entity.StatusActive,
		CardCustomerRef:     "cus_1",
		CardSubscriptionRef: "sub_old",
	})
	trials := newFakeTrials()
	trials.Record(ctx, entity.UsedTrial{TenantID: "tenant-1", PlanType: entity.PlanAdvanced})

	card := new(MockCardGateway).catalog()
	card.On("GetOrCreateCustomer", ctx, mock.MatchedBy(func(in CardCustomerInput) bool {
		return in.KnownRef == "cus_1"
	})).Return("cus_1", nil)
	card.On("ListLiveSubscriptions", ctx, "cus_1").Return([]entity.CardSubscription{
		{Ref: "sub_old", Status: "active"},
		{Ref: "sub_dup", Status: "trialing"},
	}, nil)

	var order []string
	card.On("CancelSubscription", ctx, mock.Anything).Run(func(args mock.Arguments) {
		order = append(order, "cancel:"+args.String(1))
	}).Return(nil)
	card.On("CreateSubscription", ctx, mock.MatchedBy(func(in CardSubscriptionInput) bool {
		return in.PriceRef == "price_advanced" && in.TrialDays == 0 && !in.Invoice &&
			in.Metadata["userId"] == "tenant-1" && in.Metadata["planType"] == "advanced"
	})).Run(func(mock.Arguments) {
		order = append(order, "create")
	}).Return(&entity.CardSubscription{
		Ref:         "sub_new",
		CustomerRef: "cus_1",
		Status:      "active",
		PriceRef:    "price_advanced",
	}, nil)

	out, err := newChangePlan(subs, card, trials, 7).Execute(ctx, testTenant, PlanRequest{PlanType: "Avançado"})

	require.NoError(t, err)
	assert.Equal(t, []string{"cancel:sub_old", "cancel:sub_dup", "create"}, order)
	assert.Equal(t, "sub_new", out.SubscriptionID)
	assert.False(t, out.HasTrial)

	row := subs.get("tenant-1")
	assert.Equal(t, entity.PlanAdvanced, row.PlanType)
	assert.Equal(t, "sub_new", row.CardSubscriptionRef)
	assert.Equal(t, entity.StatusActive, row.Status)
	assert.Equal(t, entity.SyncStripe, row.SyncSource)
	assert.Equal(t, entity.PaymentCard, row.PaymentMethod)
}

func TestChangePlan_AbortsWhenCancelFails(t *testing.T) {
	ctx := context.Background()
	subs := newFakeSubscriptions()
	card := new(MockCardGateway).catalog()
	card.On("GetOrCreateCustomer", ctx, mock.Anything).Return("cus_1", nil)
	card.On("ListLiveSubscriptions", ctx, "cus_1").Return([]entity.CardSubscription{{Ref: "sub_old", Status: "active"}}, nil)
	card.On("CancelSubscription", ctx, "sub_old").Return(&GatewayError{Provider: "stripe", Op: "cancel", Err: errors.New("boom")})

	_, err := newChangePlan(subs, card, newFakeTrials(), 7).Execute(ctx, testTenant, PlanRequest{PlanType: "basic"})

	assert.True(t, IsGatewayError(err))
	card.AssertNotCalled(t, "CreateSubscription", mock.Anything, mock.Anything)
	assert.Equal(t, 0, subs.upserts)
}

func TestChangePlan_TrialGrantedOncePerPlan(t *testing.T) {
	ctx := context.Background()
	subs := newFakeSubscriptions()
	trials := newFakeTrials()

	card := new(MockCardGateway).catalog()
	card.On("GetOrCreateCustomer", ctx, mock.Anything).Return("cus_1", nil)
	card.On("ListLiveSubscriptions", ctx, "cus_1").Return([]entity.CardSubscription{}, nil)
	card.On("CancelSubscription", ctx, mock.Anything).Return(nil)
	card.On("CreateSubscription", ctx, mock.MatchedBy(func(in CardSubscriptionInput) bool { return in.TrialDays == 7 })).
		Return(&entity.CardSubscription{Ref: "sub_trial", Status: "trialing", TrialEnd: entity.Ptr(fixedNow.AddDate(0, 0, 7))}, nil).Once()
	card.On("CreateSubscription", ctx, mock.MatchedBy(func(in CardSubscriptionInput) bool { return in.TrialDays == 0 })).
		Return(&entity.CardSubscription{Ref: "sub_paid", Status: "active"}, nil).Once()

	uc := newChangePlan(subs, card, trials, 7)

	first, err := uc.Execute(ctx, testTenant, PlanRequest{PlanType: "basic"})
	require.NoError(t, err)
	assert.True(t, first.HasTrial)
	assert.Equal(t, int64(7), first.TrialDays)
	assert.Equal(t, entity.StatusTrial, subs.get("tenant-1").Status)

	used := trials.rows[trialKey("tenant-1", entity.PlanBasic)]
	assert.Equal(t, "sub_trial", used.SubscriptionRef)

	second, err := uc.Execute(ctx, testTenant, PlanRequest{PlanType: "basic"})
	require.NoError(t, err)
	assert.False(t, second.HasTrial)
	assert.Equal(t, entity.StatusActive, subs.get("tenant-1").Status)
	assert.Nil(t, subs.get("tenant-1").TrialEndsAt)
}

func TestChangePlan_CompensatesWhenUpsertFails(t *testing.T) {
	ctx := context.Background()
	subs := newFakeSubscriptions()
	subs.upsertErr = errors.New("db down")

	card := new(MockCardGateway).catalog()
	card.On("GetOrCreateCustomer", ctx, mock.Anything).Return("cus_1", nil)
	card.On("ListLiveSubscriptions", ctx, "cus_1").Return([]entity.CardSubscription{}, nil)
	card.On("CreateSubscription", ctx, mock.Anything).Return(&entity.CardSubscription{Ref: "sub_new", Status: "active"}, nil)
	card.On("CancelSubscription", ctx, "sub_new").Return(nil)

	_, err := newChangePlan(subs, card, newFakeTrials(), 0).Execute(ctx, testTenant, PlanRequest{PlanType: "professional"})

	assert.True(t, IsTechnicalError(err))
	card.AssertCalled(t, "CancelSubscription", ctx, "sub_new")
}

func TestChangePlan_UnconfiguredPriceFailsClosed(t *testing.T) {
	card := new(MockCardGateway)
	card.On("ResolvePrice", entity.PlanProfessional).Return("", entity.ErrPriceNotConfigured)

	_, err := newChangePlan(newFakeSubscriptions(), card, newFakeTrials(), 7).
		Execute(context.Background(), testTenant, PlanRequest{PlanType: "professional"})

	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "PLAN_NOT_AVAILABLE", de.Code)
	card.AssertNotCalled(t, "CreateSubscription", mock.Anything, mock.Anything)
}

func TestChangePlan_Validation(t *testing.T) {
	uc := newChangePlan(newFakeSubscriptions(), new(MockCardGateway), newFakeTrials(), 7)

	_, err := uc.Execute(context.Background(), entity.Tenant{}, PlanRequest{PlanType: "basic"})
	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "UNAUTHORIZED", de.Code)

	_, err = uc.Execute(context.Background(), testTenant, PlanRequest{})
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "VALIDATION_ERROR", de.Code)

	_, err = uc.Execute(context.Background(), testTenant, PlanRequest{PlanType: "gold"})
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "INVALID_PLAN", de.Code)
}
