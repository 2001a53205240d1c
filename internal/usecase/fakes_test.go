package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/xavierca1/colaai-billing/internal/entity"
	"github.com/xavierca1/colaai-billing/internal/infra/queue"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

var testTenant = entity.Tenant{ID: "tenant-1", Email: "dono@padaria.com.br", Name: "Padaria do Zé"}

// fakeSubscriptions guarda as linhas em memória com a mesma semântica de
// upsert do repositório real (só campos não-nil são gravados).
type fakeSubscriptions struct {
	mu        sync.Mutex
	rows      map[string]entity.Subscription
	upserts   int
	upsertErr error
	findErr   error
	synced    []entity.SyncSource
}

func newFakeSubscriptions(rows ...entity.Subscription) *fakeSubscriptions {
	f := &fakeSubscriptions{rows: map[string]entity.Subscription{}}
	for _, r := range rows {
		f.rows[r.TenantID] = r
	}
	return f
}

func (f *fakeSubscriptions) Upsert(_ context.Context, tenantID string, fields entity.SubscriptionFields) (*entity.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upsertLocked(tenantID, fields)
}

func (f *fakeSubscriptions) upsertLocked(tenantID string, fields entity.SubscriptionFields) (*entity.Subscription, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	f.upserts++
	row, ok := f.rows[tenantID]
	if !ok {
		row = entity.Subscription{ID: "sub-" + tenantID, TenantID: tenantID, CreatedAt: fixedNow}
	}
	row = fields.Apply(row)
	row.UpdatedAt = fixedNow
	f.rows[tenantID] = row
	out := row
	return &out, nil
}

// Activate reproduz o ON CONFLICT ... WHERE status <> 'active'.
func (f *fakeSubscriptions) Activate(_ context.Context, tenantID string, fields entity.SubscriptionFields) (*entity.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.rows[tenantID]; ok && row.Status == entity.StatusActive {
		return nil, entity.ErrAlreadyActive
	}
	return f.upsertLocked(tenantID, fields)
}

func (f *fakeSubscriptions) find(match func(entity.Subscription) bool) (*entity.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, r := range f.rows {
		if match(r) {
			out := r
			return &out, nil
		}
	}
	return nil, entity.ErrSubscriptionNotFound
}

func (f *fakeSubscriptions) FindByTenant(_ context.Context, tenantID string) (*entity.Subscription, error) {
	return f.find(func(r entity.Subscription) bool { return r.TenantID == tenantID })
}

func (f *fakeSubscriptions) FindByPixBillingRef(_ context.Context, ref string) (*entity.Subscription, error) {
	return f.find(func(r entity.Subscription) bool { return ref != "" && r.PixBillingRef == ref })
}

func (f *fakeSubscriptions) FindByCardCustomerRef(_ context.Context, ref string) (*entity.Subscription, error) {
	return f.find(func(r entity.Subscription) bool { return ref != "" && r.CardCustomerRef == ref })
}

func (f *fakeSubscriptions) MarkSyncSource(_ context.Context, tenantID string, source entity.SyncSource, at *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[tenantID]
	if !ok {
		return entity.ErrSubscriptionNotFound
	}
	row.SyncSource = source
	row.LastSyncedAt = at
	f.rows[tenantID] = row
	f.synced = append(f.synced, source)
	return nil
}

func (f *fakeSubscriptions) ExpireLapsed(_ context.Context, now, pendingPixCutoff time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for id, r := range f.rows {
		if r.Lapsed(now, pendingPixCutoff) {
			r.Status = entity.StatusExpired
			f.rows[id] = r
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeSubscriptions) get(tenantID string) entity.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[tenantID]
}

// fakeTrials reproduz o ON CONFLICT do used_trials.
type fakeTrials struct {
	mu   sync.Mutex
	rows map[string]entity.UsedTrial
}

func newFakeTrials() *fakeTrials {
	return &fakeTrials{rows: map[string]entity.UsedTrial{}}
}

func trialKey(tenantID string, plan entity.PlanType) string {
	return tenantID + "|" + string(plan)
}

func (f *fakeTrials) Record(_ context.Context, t entity.UsedTrial) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := trialKey(t.TenantID, t.PlanType)
	if cur, ok := f.rows[key]; ok {
		if cur.SubscriptionRef == "" {
			cur.SubscriptionRef = t.SubscriptionRef
			f.rows[key] = cur
		}
		return false, nil
	}
	f.rows[key] = t
	return true, nil
}

func (f *fakeTrials) Exists(_ context.Context, tenantID string, plan entity.PlanType) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[trialKey(tenantID, plan)]
	return ok, nil
}

type fakeEmployees struct {
	mu      sync.Mutex
	admins  map[string]bool
	created int
}

func (f *fakeEmployees) EnsureFixedAdmin(_ context.Context, e *entity.Employee) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.admins == nil {
		f.admins = map[string]bool{}
	}
	if f.admins[e.TenantID] {
		return false, nil
	}
	f.admins[e.TenantID] = true
	f.created++
	return true, nil
}

// MockCardGateway
type MockCardGateway struct {
	mock.Mock
}

func (m *MockCardGateway) ResolvePrice(plan entity.PlanType) (string, error) {
	args := m.Called(plan)
	return args.String(0), args.Error(1)
}

func (m *MockCardGateway) PlanForPrice(priceRef string) (entity.PlanType, bool) {
	args := m.Called(priceRef)
	return args.Get(0).(entity.PlanType), args.Bool(1)
}

func (m *MockCardGateway) GetOrCreateCustomer(ctx context.Context, input CardCustomerInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

func (m *MockCardGateway) FindCustomer(ctx context.Context, tenantID, email string) (string, error) {
	args := m.Called(ctx, tenantID, email)
	return args.String(0), args.Error(1)
}

func (m *MockCardGateway) CreateSubscription(ctx context.Context, input CardSubscriptionInput) (*entity.CardSubscription, error) {
	args := m.Called(ctx, input)
	sub, _ := args.Get(0).(*entity.CardSubscription)
	return sub, args.Error(1)
}

func (m *MockCardGateway) CancelSubscription(ctx context.Context, ref string) error {
	return m.Called(ctx, ref).Error(0)
}

func (m *MockCardGateway) GetSubscription(ctx context.Context, ref string) (*entity.CardSubscription, error) {
	args := m.Called(ctx, ref)
	sub, _ := args.Get(0).(*entity.CardSubscription)
	return sub, args.Error(1)
}

func (m *MockCardGateway) ListSubscriptions(ctx context.Context, customerRef string) ([]entity.CardSubscription, error) {
	args := m.Called(ctx, customerRef)
	subs, _ := args.Get(0).([]entity.CardSubscription)
	return subs, args.Error(1)
}

func (m *MockCardGateway) ListLiveSubscriptions(ctx context.Context, customerRef string) ([]entity.CardSubscription, error) {
	args := m.Called(ctx, customerRef)
	subs, _ := args.Get(0).([]entity.CardSubscription)
	return subs, args.Error(1)
}

func (m *MockCardGateway) ChangeSubscriptionPrice(ctx context.Context, subRef, itemRef, priceRef string) (*entity.CardSubscription, error) {
	args := m.Called(ctx, subRef, itemRef, priceRef)
	sub, _ := args.Get(0).(*entity.CardSubscription)
	return sub, args.Error(1)
}

func (m *MockCardGateway) CreateCheckoutSession(ctx context.Context, input CheckoutSessionInput) (*CheckoutSession, error) {
	args := m.Called(ctx, input)
	s, _ := args.Get(0).(*CheckoutSession)
	return s, args.Error(1)
}

func (m *MockCardGateway) CreatePortalSession(ctx context.Context, customerRef, returnURL string) (string, error) {
	args := m.Called(ctx, customerRef, returnURL)
	return args.String(0), args.Error(1)
}

// catalog configura ResolvePrice/PlanForPrice para os três planos.
func (m *MockCardGateway) catalog() *MockCardGateway {
	prices := map[entity.PlanType]string{
		entity.PlanBasic:        "price_basic",
		entity.PlanAdvanced:     "price_advanced",
		entity.PlanProfessional: "price_pro",
	}
	for plan, price := range prices {
		m.On("ResolvePrice", plan).Return(price, nil).Maybe()
		m.On("PlanForPrice", price).Return(plan, true).Maybe()
	}
	m.On("PlanForPrice", mock.Anything).Return(entity.PlanType(""), false).Maybe()
	return m
}

// MockPixGateway
type MockPixGateway struct {
	mock.Mock
}

func (m *MockPixGateway) CreateBilling(ctx context.Context, input PixBillingInput) (*PixBilling, error) {
	args := m.Called(ctx, input)
	b, _ := args.Get(0).(*PixBilling)
	return b, args.Error(1)
}

func (m *MockPixGateway) GetBilling(ctx context.Context, ref string) (*PixBilling, error) {
	args := m.Called(ctx, ref)
	b, _ := args.Get(0).(*PixBilling)
	return b, args.Error(1)
}

// MockQueueProducer
type MockQueueProducer struct {
	mock.Mock
}

func (m *MockQueueProducer) PublishActivation(ctx context.Context, payload queue.ActivationPayload) error {
	return m.Called(ctx, payload).Error(0)
}

// MockNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyPixPayment(ctx context.Context, n queue.PixNotification) error {
	return m.Called(ctx, n).Error(0)
}

func newTestTrialPolicy(days int64, trials entity.UsedTrialRepository) *TrialPolicy {
	p := NewTrialPolicy(days, trials)
	p.Now = clock
	return p
}
