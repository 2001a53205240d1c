package entity

import "time"

// BillingEvent é o conjunto fechado de eventos que os webhooks dos provedores
// produzem depois de verificados e decodificados.
type BillingEvent interface {
	EventID() string
	Kind() string
}

// CardSubscription é a visão normalizada de uma assinatura no provedor de cartão.
type CardSubscription struct {
	Ref                string
	CustomerRef        string
	Status             string // status cru do provedor: active, trialing, canceled...
	PriceRef           string
	ItemRef            string
	TrialEnd           *time.Time
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	Metadata           map[string]string
}

func (c CardSubscription) TenantID() string {
	return c.Metadata["userId"]
}

type CheckoutCompleted struct {
	ID              string
	SessionRef      string
	TenantID        string
	PlanLabel       string
	CustomerRef     string
	SubscriptionRef string
}

func (e CheckoutCompleted) EventID() string { return e.ID }
func (e CheckoutCompleted) Kind() string    { return "checkout.session.completed" }

type SubscriptionUpdated struct {
	ID           string
	Subscription CardSubscription
}

func (e SubscriptionUpdated) EventID() string { return e.ID }
func (e SubscriptionUpdated) Kind() string    { return "customer.subscription.updated" }

type SubscriptionDeleted struct {
	ID           string
	Subscription CardSubscription
}

func (e SubscriptionDeleted) EventID() string { return e.ID }
func (e SubscriptionDeleted) Kind() string    { return "customer.subscription.deleted" }

type InvoicePaid struct {
	ID              string
	InvoiceRef      string
	CustomerRef     string
	SubscriptionRef string
}

func (e InvoicePaid) EventID() string { return e.ID }
func (e InvoicePaid) Kind() string    { return "invoice.paid" }

// BillingPaid vem do provedor PIX (webhook) ou do polling de status.
type BillingPaid struct {
	ID            string
	BillingRef    string
	TenantID      string
	PlanLabel     string
	BillingPeriod string
	Email         string
	AmountCents   int64
}

func (e BillingPaid) EventID() string { return e.ID }
func (e BillingPaid) Kind() string    { return "billing.paid" }

// IgnoredEvent cobre tipos que recebemos mas não tratamos; responde 200.
type IgnoredEvent struct {
	ID   string
	Type string
}

func (e IgnoredEvent) EventID() string { return e.ID }
func (e IgnoredEvent) Kind() string    { return e.Type }
