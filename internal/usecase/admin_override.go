package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xavierca1/colaai-billing/internal/entity"
)

// AdminOverrideUseCase é a alteração manual feita pelo suporte. Grava com
// sync_source=local pra o reverse-sync levar cancelamento/plano ao Stripe.
type AdminOverrideUseCase struct {
	Subs entity.SubscriptionRepository
	Now  func() time.Time
}

func NewAdminOverrideUseCase(subs entity.SubscriptionRepository) *AdminOverrideUseCase {
	return &AdminOverrideUseCase{Subs: subs, Now: time.Now}
}

func (uc *AdminOverrideUseCase) Execute(ctx context.Context, admin entity.Tenant, tenantID string, input AdminOverrideInput) (*entity.Subscription, error) {
	if tenantID == "" {
		return nil, &DomainError{Code: "VALIDATION_ERROR", Message: "tenantId é obrigatório"}
	}
	if errs := ValidateStruct(input); len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	existing, err := uc.Subs.FindByTenant(ctx, tenantID)
	if err != nil && !errors.Is(err, entity.ErrSubscriptionNotFound) {
		return nil, &TechnicalError{Code: "DB_ERROR", Message: "erro ao buscar assinatura", Err: err}
	}

	status := entity.Status(input.Status)
	fields := entity.SubscriptionFields{
		Status:     entity.Ptr(status),
		SyncSource: entity.Ptr(entity.SyncLocal),
	}

	if input.PlanType != "" {
		plan, err := entity.ParsePlanType(input.PlanType)
		if err != nil {
			return nil, &DomainError{Code: "INVALID_PLAN", Message: "Tipo de plano inválido"}
		}
		fields.PlanType = entity.Ptr(plan)
	} else if existing == nil {
		fields.PlanType = entity.Ptr(entity.PlanBasic)
	}

	period := entity.PeriodMonthly
	if existing != nil && existing.BillingPeriod != "" {
		period = existing.BillingPeriod
	}
	if input.BillingPeriod != "" {
		period, _ = entity.ParseBillingPeriod(input.BillingPeriod)
		fields.BillingPeriod = entity.Ptr(period)
	}
	if input.PaymentMethod != "" {
		fields.PaymentMethod = entity.Ptr(entity.PaymentMethod(input.PaymentMethod))
	} else if existing == nil {
		fields.PaymentMethod = entity.Ptr(entity.PaymentManual)
	}

	activating := status == entity.StatusActive && (existing == nil || existing.Status != entity.StatusActive)
	switch {
	case activating || input.RestartPeriod:
		// ativação sempre recalcula a partir de agora
		start, end := entity.ActivationWindow(uc.Now(), period)
		fields.CurrentPeriodStart = entity.Ptr(start)
		fields.CurrentPeriodEnd = entity.Ptr(end)
	case input.CurrentPeriodEnd != nil:
		fields.CurrentPeriodEnd = entity.Ptr(input.CurrentPeriodEnd.UTC())
	}
	if status != entity.StatusTrial {
		fields.ClearTrialEndsAt = true
	}

	row, err := uc.Subs.Upsert(ctx, tenantID, fields)
	if err != nil {
		return nil, &TechnicalError{Code: "DB_ERROR", Message: "erro ao salvar assinatura", Err: err}
	}

	log.Info().Str("admin", admin.Email).Str("tenant_id", tenantID).Str("status", string(status)).Msg("🛠️ assinatura alterada manualmente")
	return row, nil
}
