package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xavierca1/colaai-billing/internal/entity"
	"github.com/xavierca1/colaai-billing/internal/infra/queue"
)

// ActivatePixBillingUseCase aplica um "billing paid" do PIX, venha do webhook
// ou do polling. Reentregas do mesmo evento não estendem o período.
type ActivatePixBillingUseCase struct {
	Subs      entity.SubscriptionRepository
	Employees entity.EmployeeRepository
	Queue     QueueProducerInterface
	Now       func() time.Time
}

func NewActivatePixBillingUseCase(
	subs entity.SubscriptionRepository,
	employees entity.EmployeeRepository,
	producer QueueProducerInterface,
) *ActivatePixBillingUseCase {
	return &ActivatePixBillingUseCase{
		Subs:      subs,
		Employees: employees,
		Queue:     producer,
		Now:       time.Now,
	}
}

func (uc *ActivatePixBillingUseCase) Execute(ctx context.Context, ev entity.BillingPaid, origin string) (*ActivationResult, error) {
	tenantID, existing, err := uc.resolveTenant(ctx, ev)
	if err != nil {
		return nil, err
	}
	if tenantID == "" {
		log.Warn().Str("billing_id", ev.BillingRef).Msg("⚠️ pagamento PIX sem tenant resolvível, descartando")
		return &ActivationResult{Reason: "unresolved"}, nil
	}

	if existing != nil && existing.Status == entity.StatusActive {
		log.Info().Str("tenant_id", tenantID).Str("billing_id", ev.BillingRef).Msg("assinatura já ativa, nada a fazer")
		return &ActivationResult{TenantID: tenantID, Reason: "already_active"}, nil
	}

	plan, period := resolvePixPlan(ev, existing)
	start, end := entity.ActivationWindow(uc.Now(), period)

	fields := entity.SubscriptionFields{
		PlanType:           entity.Ptr(plan),
		Status:             entity.Ptr(entity.StatusActive),
		BillingPeriod:      entity.Ptr(period),
		PaymentMethod:      entity.Ptr(entity.PaymentPix),
		CurrentPeriodStart: entity.Ptr(start),
		CurrentPeriodEnd:   entity.Ptr(end),
		ClearTrialEndsAt:   true,
		SyncSource:         entity.Ptr(entity.SyncLocal),
	}
	if ev.BillingRef != "" {
		fields.PixBillingRef = entity.Ptr(ev.BillingRef)
	}

	row, err := uc.Subs.Activate(ctx, tenantID, fields)
	if errors.Is(err, entity.ErrAlreadyActive) {
		// outra entrega (webhook ou poll) ativou entre a leitura e a escrita
		log.Info().Str("tenant_id", tenantID).Str("billing_id", ev.BillingRef).Msg("assinatura já ativa, nada a fazer")
		return &ActivationResult{TenantID: tenantID, Reason: "already_active"}, nil
	}
	if err != nil {
		return nil, &TechnicalError{Code: "DB_ERROR", Message: "erro ao ativar assinatura", Err: err}
	}

	log.Info().
		Str("tenant_id", tenantID).
		Str("billing_id", ev.BillingRef).
		Str("plan", string(plan)).
		Time("current_period_end", end).
		Msg("✅ assinatura PIX ativada")

	created, err := uc.Employees.EnsureFixedAdmin(ctx, entity.NewFixedAdmin(tenantID))
	if err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID).Msg("❌ falha ao criar funcionário ADM")
	} else if created {
		log.Info().Str("tenant_id", tenantID).Msg("👤 funcionário ADM criado")
	}

	payload := queue.ActivationPayload{
		TenantID:         tenantID,
		Email:            ev.Email,
		PlanType:         string(plan),
		PlanLabel:        plan.Label(),
		BillingPeriod:    string(period),
		PaymentMethod:    string(entity.PaymentPix),
		BillingRef:       ev.BillingRef,
		AmountCents:      ev.AmountCents,
		CurrentPeriodEnd: row.CurrentPeriodEnd,
		Origin:           origin,
		EmployeeCreated:  created,
	}
	if err := uc.Queue.PublishActivation(ctx, payload); err != nil {
		// já está ativo no banco, a fila é só notificação
		log.Error().Err(err).Str("tenant_id", tenantID).Msg("⚠️ CRITICAL: ativado no banco, mas falha na fila")
	}

	return &ActivationResult{TenantID: tenantID, Activated: true, Reason: "activated"}, nil
}

func (uc *ActivatePixBillingUseCase) resolveTenant(ctx context.Context, ev entity.BillingPaid) (string, *entity.Subscription, error) {
	if ev.TenantID != "" {
		row, err := uc.Subs.FindByTenant(ctx, ev.TenantID)
		if errors.Is(err, entity.ErrSubscriptionNotFound) {
			return ev.TenantID, nil, nil
		}
		if err != nil {
			return "", nil, &TechnicalError{Code: "DB_ERROR", Message: "erro ao buscar assinatura", Err: err}
		}
		return ev.TenantID, row, nil
	}

	if ev.BillingRef == "" {
		return "", nil, nil
	}
	row, err := uc.Subs.FindByPixBillingRef(ctx, ev.BillingRef)
	if errors.Is(err, entity.ErrSubscriptionNotFound) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, &TechnicalError{Code: "DB_ERROR", Message: "erro ao buscar assinatura", Err: err}
	}
	return row.TenantID, row, nil
}

// resolvePixPlan: metadata > valor pago > linha gravada > Básico mensal.
// O valor vem antes da linha porque create-billing não troca o plano gravado.
func resolvePixPlan(ev entity.BillingPaid, existing *entity.Subscription) (entity.PlanType, entity.BillingPeriod) {
	amountPlan, amountPeriod, amountOK := entity.PlanForPixAmount(ev.AmountCents)

	plan, err := entity.ParsePlanType(ev.PlanLabel)
	if err != nil {
		switch {
		case amountOK:
			plan = amountPlan
		case existing != nil && existing.PlanType.Valid():
			plan = existing.PlanType
		default:
			log.Warn().Str("billing_id", ev.BillingRef).Str("plan_label", ev.PlanLabel).Msg("⚠️ plano não identificado no pagamento PIX, usando Básico")
			plan = entity.PlanBasic
		}
	}

	period, err := entity.ParseBillingPeriod(ev.BillingPeriod)
	if err != nil || ev.BillingPeriod == "" {
		switch {
		case amountOK:
			period = amountPeriod
		case existing != nil && existing.BillingPeriod != "":
			period = existing.BillingPeriod
		default:
			period = entity.PeriodMonthly
		}
	}
	return plan, period
}
