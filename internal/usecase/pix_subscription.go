package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xavierca1/colaai-billing/internal/entity"
	"github.com/xavierca1/colaai-billing/internal/infra/queue"
)

// PixSubscriptionUseCase cria no Stripe uma assinatura cobrada por fatura pra
// quem paga via PIX, assim o cliente fica num único cadastro.
type PixSubscriptionUseCase struct {
	replacer *cardReplacer
	Notifier AdminNotifier
	Now      func() time.Time
}

func NewPixSubscriptionUseCase(subs entity.SubscriptionRepository, card CardGateway, trials *TrialPolicy, notifier AdminNotifier) *PixSubscriptionUseCase {
	return &PixSubscriptionUseCase{
		replacer: &cardReplacer{subs: subs, card: card, trials: trials, now: time.Now},
		Notifier: notifier,
		Now:      time.Now,
	}
}

func (uc *PixSubscriptionUseCase) Execute(ctx context.Context, tenant entity.Tenant, input PlanRequest) (*CardSubscriptionOutput, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	plan, period, err := parsePlanRequest(input, uc.replacer.card)
	if err != nil {
		return nil, err
	}
	amount, err := entity.PixPriceCents(plan, period)
	if err != nil {
		return nil, &DomainError{Code: "INVALID_PLAN", Message: "Plano sem valor PIX definido"}
	}

	res, err := uc.replacer.replace(ctx, replaceRequest{
		tenant:  tenant,
		plan:    plan,
		period:  period,
		method:  entity.PaymentPix,
		invoice: true,
	})
	if err != nil {
		return nil, err
	}

	if uc.Notifier != nil {
		n := queue.PixNotification{
			Kind:          queue.PixSubscriptionCreated,
			TenantID:      tenant.ID,
			Email:         tenant.Email,
			Name:          tenant.DisplayName(),
			PlanLabel:     plan.Label(),
			BillingPeriod: period.Label(),
			AmountCents:   amount,
			Status:        string(res.row.Status),
			TrialDays:     res.trialDays,
			At:            uc.Now(),
		}
		if err := uc.Notifier.NotifyPixPayment(ctx, n); err != nil {
			log.Warn().Err(err).Str("tenant_id", tenant.ID).Msg("⚠️ falha ao avisar admin sobre assinatura PIX")
		}
	}

	msg := "Assinatura criada. Pague via PIX para ativar."
	if res.trialDays > 0 {
		msg = "Assinatura criada com teste grátis"
	}

	return &CardSubscriptionOutput{
		Success:        true,
		Message:        msg,
		SubscriptionID: res.card.Ref,
		Status:         string(res.row.Status),
		NewPlan:        plan.Label(),
		HasTrial:       res.trialDays > 0,
		TrialDays:      res.trialDays,
		TrialEnds:      res.card.TrialEnd,
		AmountCents:    amount,
	}, nil
}
