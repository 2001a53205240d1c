package entity

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSubscriptionNotFound = errors.New("assinatura não encontrada")
	ErrAlreadyActive        = errors.New("assinatura já está ativa")
)

type Status string

const (
	StatusTrial      Status = "trial"
	StatusPendingPix Status = "pending_pix"
	StatusActive     Status = "active"
	StatusExpired    Status = "expired"
	StatusCancelled  Status = "cancelled"
)

// Live indica status que ainda dão acesso (ou vão dar, no caso do trial).
func (s Status) Live() bool {
	return s == StatusActive || s == StatusTrial
}

type PaymentMethod string

const (
	PaymentCard   PaymentMethod = "card"
	PaymentPix    PaymentMethod = "pix"
	PaymentManual PaymentMethod = "manual"
)

// SyncSource marca a origem da última escrita. "stripe" significa que o
// provedor de cartão já reflete a linha e o reverse-sync não deve agir.
type SyncSource string

const (
	SyncLocal  SyncSource = "local"
	SyncStripe SyncSource = "stripe"
)

type Subscription struct {
	ID                   string        `json:"id"`
	TenantID             string        `json:"user_id"`
	PlanType             PlanType      `json:"plan_type"`
	Status               Status        `json:"status"`
	BillingPeriod        BillingPeriod `json:"billing_period"`
	PaymentMethod        PaymentMethod `json:"payment_method"`
	CardCustomerRef      string        `json:"stripe_customer_id,omitempty"`
	CardSubscriptionRef  string        `json:"stripe_subscription_id,omitempty"`
	CardPriceRef         string        `json:"stripe_price_id,omitempty"`
	PixBillingRef        string        `json:"abacatepay_billing_id,omitempty"`
	TrialEndsAt          *time.Time    `json:"trial_ends_at,omitempty"`
	CurrentPeriodStart   *time.Time    `json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time    `json:"current_period_end,omitempty"`
	CardCurrentPeriodEnd *time.Time    `json:"stripe_current_period_end,omitempty"`
	SyncSource           SyncSource    `json:"sync_source"`
	LastSyncedAt         *time.Time    `json:"last_synced_at,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// Lapsed diz se o worker de expiração deve marcar a linha como expired.
// Cartão fica com o Stripe; pending_pix antigo só expira sem período pago vigente.
func (s Subscription) Lapsed(now, pendingPixCutoff time.Time) bool {
	periodOver := s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.Before(now)
	switch {
	case s.Status.Live():
		return s.PaymentMethod != PaymentCard && periodOver
	case s.Status == StatusPendingPix:
		return s.UpdatedAt.Before(pendingPixCutoff) && (s.CurrentPeriodEnd == nil || periodOver)
	}
	return false
}

// SubscriptionFields é o patch do upsert: só os campos não-nil são gravados.
// ClearTrialEndsAt zera trial_ends_at explicitamente.
type SubscriptionFields struct {
	PlanType             *PlanType
	Status               *Status
	BillingPeriod        *BillingPeriod
	PaymentMethod        *PaymentMethod
	CardCustomerRef      *string
	CardSubscriptionRef  *string
	CardPriceRef         *string
	PixBillingRef        *string
	TrialEndsAt          *time.Time
	ClearTrialEndsAt     bool
	CurrentPeriodStart   *time.Time
	CurrentPeriodEnd     *time.Time
	CardCurrentPeriodEnd *time.Time
	SyncSource           *SyncSource
	LastSyncedAt         *time.Time
}

// Apply aplica o patch numa cópia; usado pelos fakes e pelo preview das respostas.
func (f SubscriptionFields) Apply(sub Subscription) Subscription {
	if f.PlanType != nil {
		sub.PlanType = *f.PlanType
	}
	if f.Status != nil {
		sub.Status = *f.Status
	}
	if f.BillingPeriod != nil {
		sub.BillingPeriod = *f.BillingPeriod
	}
	if f.PaymentMethod != nil {
		sub.PaymentMethod = *f.PaymentMethod
	}
	if f.CardCustomerRef != nil {
		sub.CardCustomerRef = *f.CardCustomerRef
	}
	if f.CardSubscriptionRef != nil {
		sub.CardSubscriptionRef = *f.CardSubscriptionRef
	}
	if f.CardPriceRef != nil {
		sub.CardPriceRef = *f.CardPriceRef
	}
	if f.PixBillingRef != nil {
		sub.PixBillingRef = *f.PixBillingRef
	}
	if f.ClearTrialEndsAt {
		sub.TrialEndsAt = nil
	}
	if f.TrialEndsAt != nil {
		sub.TrialEndsAt = f.TrialEndsAt
	}
	if f.CurrentPeriodStart != nil {
		sub.CurrentPeriodStart = f.CurrentPeriodStart
	}
	if f.CurrentPeriodEnd != nil {
		sub.CurrentPeriodEnd = f.CurrentPeriodEnd
	}
	if f.CardCurrentPeriodEnd != nil {
		sub.CardCurrentPeriodEnd = f.CardCurrentPeriodEnd
	}
	if f.SyncSource != nil {
		sub.SyncSource = *f.SyncSource
	}
	if f.LastSyncedAt != nil {
		sub.LastSyncedAt = f.LastSyncedAt
	}
	return sub
}

// ActivationWindow recalcula o período a partir de "agora"; nunca confia em
// datas vindas do cliente.
func ActivationWindow(now time.Time, period BillingPeriod) (time.Time, time.Time) {
	start := now.UTC()
	return start, start.AddDate(0, 0, period.Days())
}

type SubscriptionRepository interface {
	Upsert(ctx context.Context, tenantID string, fields SubscriptionFields) (*Subscription, error)
	// Activate é o Upsert que não mexe numa linha já active (ErrAlreadyActive).
	Activate(ctx context.Context, tenantID string, fields SubscriptionFields) (*Subscription, error)
	FindByTenant(ctx context.Context, tenantID string) (*Subscription, error)
	FindByPixBillingRef(ctx context.Context, billingRef string) (*Subscription, error)
	FindByCardCustomerRef(ctx context.Context, customerRef string) (*Subscription, error)
	MarkSyncSource(ctx context.Context, tenantID string, source SyncSource, syncedAt *time.Time) error
	ExpireLapsed(ctx context.Context, now time.Time, pendingPixCutoff time.Time) ([]string, error)
}

func Ptr[T any](v T) *T {
	return &v
}
