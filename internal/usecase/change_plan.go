package usecase

import (
	"context"
	"time"

	"github.com/xavierca1/colaai-billing/internal/entity"
)

type ChangePlanUseCase struct {
	replacer *cardReplacer
}

func NewChangePlanUseCase(subs entity.SubscriptionRepository, card CardGateway, trials *TrialPolicy) *ChangePlanUseCase {
	return &ChangePlanUseCase{
		replacer: &cardReplacer{subs: subs, card: card, trials: trials, now: time.Now},
	}
}

func (uc *ChangePlanUseCase) Execute(ctx context.Context, tenant entity.Tenant, input PlanRequest) (*CardSubscriptionOutput, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	plan, period, err := parsePlanRequest(input, uc.replacer.card)
	if err != nil {
		return nil, err
	}

	res, err := uc.replacer.replace(ctx, replaceRequest{
		tenant: tenant,
		plan:   plan,
		period: period,
		method: entity.PaymentCard,
	})
	if err != nil {
		return nil, err
	}

	msg := "Plano alterado para " + plan.Label()
	if res.trialDays > 0 {
		msg += " com teste grátis"
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
	}, nil
}
