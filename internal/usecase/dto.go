package usecase

import "time"

type CardCustomerInput struct {
	TenantID string
	Email    string
	Name     string
	KnownRef string // stripe_customer_id já gravado, se houver
}

type CardSubscriptionInput struct {
	CustomerRef string
	PriceRef    string
	TrialDays   int64
	// Invoice troca a cobrança automática por fatura (send_invoice), usado
	// quando o tenant paga via PIX e não existe cartão.
	Invoice  bool
	Metadata map[string]string
}

type CheckoutSessionInput struct {
	CustomerRef string
	PriceRef    string
	TrialDays   int64
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

type CheckoutSession struct {
	ID  string
	URL string
}

type PixCustomer struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Cellphone string `json:"cellphone"`
	TaxID     string `json:"taxId,omitempty"`
}

type PixBillingInput struct {
	AmountCents   int64
	ProductName   string
	Description   string
	ExternalID    string
	ReturnURL     string
	CompletionURL string
	Customer      PixCustomer
	Metadata      map[string]string
}

type PixBilling struct {
	Ref          string            `json:"id"`
	URL          string            `json:"url"`
	Status       string            `json:"status"`
	AmountCents  int64             `json:"amount"`
	QRCode       string            `json:"qrCode,omitempty"`
	QRCodeBase64 string            `json:"qrCodeBase64,omitempty"`
	ExpiresAt    *time.Time        `json:"expiresAt,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

const PixStatusPaid = "PAID"

// PlanRequest é o corpo comum dos endpoints de checkout. O front antigo manda
// só priceId (ou newPriceId no change-plan); o plano sai do catálogo do servidor.
type PlanRequest struct {
	PlanType      string `json:"planType" validate:"required_without_all=PriceID NewPriceID"`
	BillingPeriod string `json:"billingPeriod" validate:"omitempty,oneof=monthly annual mensal anual"`
	PriceID       string `json:"priceId,omitempty"`
	NewPriceID    string `json:"newPriceId,omitempty"`
}

type CheckoutOutput struct {
	URL       string `json:"url"`
	TrialDays int64  `json:"trialDays"`
}

type PortalOutput struct {
	URL string `json:"url"`
}

type CardSubscriptionOutput struct {
	Success        bool       `json:"success"`
	Message        string     `json:"message"`
	SubscriptionID string     `json:"subscriptionId"`
	Status         string     `json:"status"`
	NewPlan        string     `json:"newPlan"`
	HasTrial       bool       `json:"hasTrial"`
	TrialDays      int64      `json:"trialDays"`
	TrialEnds      *time.Time `json:"trialEnds"`
	AmountCents    int64      `json:"amount,omitempty"`
}

type PixBillingOutput struct {
	Success     bool       `json:"success"`
	BillingID   string     `json:"billingId"`
	BillingURL  string     `json:"billingUrl"`
	Status      string     `json:"status"`
	Pix         *PixQRCode `json:"pix"`
	FallbackQR  string     `json:"fallbackQrCode"`
	AmountCents int64      `json:"amountCents"`
}

type PixQRCode struct {
	QRCode       string     `json:"qrCode"`
	QRCodeBase64 string     `json:"qrCodeBase64,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
}

type CheckStatusOutput struct {
	BillingID string `json:"billingId"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Activated bool   `json:"activated"`
}

type ActivationResult struct {
	TenantID  string
	Activated bool
	Reason    string
}

type SyncOutput struct {
	Message          string     `json:"message"`
	Status           string     `json:"status,omitempty"`
	PlanType         string     `json:"plan_type,omitempty"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
}

type NotifyPaymentInput struct {
	PlanType      string  `json:"planType" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	BillingPeriod string  `json:"billingPeriod" validate:"omitempty,oneof=monthly annual mensal anual"`
}

type AdminOverrideInput struct {
	Status        string `json:"status" validate:"required,oneof=trial pending_pix active expired cancelled"`
	PlanType      string `json:"planType,omitempty"`
	BillingPeriod string `json:"billingPeriod,omitempty" validate:"omitempty,oneof=monthly annual mensal anual"`
	PaymentMethod string `json:"paymentMethod,omitempty" validate:"omitempty,oneof=card pix manual"`
	// RestartPeriod recalcula o período a partir de agora.
	RestartPeriod    bool       `json:"restartPeriod"`
	CurrentPeriodEnd *time.Time `json:"currentPeriodEnd,omitempty"`
}
