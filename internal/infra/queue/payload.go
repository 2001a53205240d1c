package queue

import "time"

// ActivationPayload é publicado depois que uma assinatura vira "active".
// Os consumidores só notificam (email, Telegram); nada aqui volta pro banco.
type ActivationPayload struct {
	TenantID         string     `json:"tenant_id"`
	Email            string     `json:"email"`
	Name             string     `json:"name,omitempty"`
	PlanType         string     `json:"plan_type"`
	PlanLabel        string     `json:"plan_label"`
	BillingPeriod    string     `json:"billing_period"`
	PaymentMethod    string     `json:"payment_method"`
	BillingRef       string     `json:"billing_ref,omitempty"`
	AmountCents      int64      `json:"amount_cents,omitempty"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	Origin           string     `json:"origin"` // WEBHOOK_ABACATEPAY, POLL_CHECK_STATUS...
	EmployeeCreated  bool       `json:"employee_created"`
}

type PixNotificationKind string

const (
	PixSubscriptionCreated PixNotificationKind = "subscription_created"
	PixManualPayment       PixNotificationKind = "manual_payment"
	PixPaymentConfirmed    PixNotificationKind = "payment_confirmed"
)

// PixNotification é o aviso pro admin sobre movimentação PIX.
type PixNotification struct {
	Kind          PixNotificationKind `json:"kind"`
	TenantID      string              `json:"tenant_id"`
	Email         string              `json:"email"`
	Name          string              `json:"name,omitempty"`
	PlanLabel     string              `json:"plan_label"`
	BillingPeriod string              `json:"billing_period"`
	AmountCents   int64               `json:"amount_cents"`
	Status        string              `json:"status,omitempty"`
	TrialDays     int64               `json:"trial_days,omitempty"`
	At            time.Time           `json:"at"`
}
