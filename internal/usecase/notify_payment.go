package usecase

import (
	"context"
	"math"
	"time"

	"github.com/xavierca1/colaai-billing/internal/entity"
	"github.com/xavierca1/colaai-billing/internal/infra/queue"
)

// NotifyPaymentUseCase é o botão "já paguei" do PIX manual: só avisa o admin.
type NotifyPaymentUseCase struct {
	Notifier AdminNotifier
	Now      func() time.Time
}

func NewNotifyPaymentUseCase(notifier AdminNotifier) *NotifyPaymentUseCase {
	return &NotifyPaymentUseCase{Notifier: notifier, Now: time.Now}
}

func (uc *NotifyPaymentUseCase) Execute(ctx context.Context, tenant entity.Tenant, input NotifyPaymentInput) error {
	if err := requireTenant(tenant); err != nil {
		return err
	}
	if errs := ValidateStruct(input); len(errs) > 0 {
		return validationFailed(errs)
	}
	plan, err := entity.ParsePlanType(input.PlanType)
	if err != nil {
		return &DomainError{Code: "INVALID_PLAN", Message: "Tipo de plano inválido"}
	}
	period, err := entity.ParseBillingPeriod(input.BillingPeriod)
	if err != nil {
		return &DomainError{Code: "INVALID_PERIOD", Message: "Período de cobrança inválido"}
	}

	return uc.Notifier.NotifyPixPayment(ctx, queue.PixNotification{
		Kind:          queue.PixManualPayment,
		TenantID:      tenant.ID,
		Email:         tenant.Email,
		Name:          tenant.DisplayName(),
		PlanLabel:     plan.Label(),
		BillingPeriod: period.Label(),
		AmountCents:   int64(math.Round(input.Amount * 100)),
		At:            uc.Now(),
	})
}
