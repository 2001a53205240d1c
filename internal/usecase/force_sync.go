package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xavierca1/colaai-billing/internal/entity"
)

// ForceSyncUseCase relê o Stripe e sobrescreve a linha local. Usado quando o
// webhook se perdeu.
type ForceSyncUseCase struct {
	Subs entity.SubscriptionRepository
	Card CardGateway
	Now  func() time.Time
}

func NewForceSyncUseCase(subs entity.SubscriptionRepository, card CardGateway) *ForceSyncUseCase {
	return &ForceSyncUseCase{Subs: subs, Card: card, Now: time.Now}
}

func (uc *ForceSyncUseCase) Execute(ctx context.Context, tenant entity.Tenant) (*SyncOutput, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}

	existing, err := uc.Subs.FindByTenant(ctx, tenant.ID)
	if err != nil && !errors.Is(err, entity.ErrSubscriptionNotFound) {
		return nil, &TechnicalError{Code: "DB_ERROR", Message: "erro ao buscar assinatura", Err: err}
	}

	customerRef := knownCustomerRef(existing)
	if customerRef == "" {
		customerRef, err = uc.Card.FindCustomer(ctx, tenant.ID, tenant.Email)
		if err != nil {
			return nil, err
		}
	}
	if customerRef == "" {
		return nil, &DomainError{Code: "CUSTOMER_NOT_FOUND", Message: "Nenhum cliente encontrado no Stripe"}
	}

	subs, err := uc.Card.ListSubscriptions(ctx, customerRef)
	if err != nil {
		return nil, err
	}
	chosen := pickSubscription(subs)
	if chosen == nil {
		return nil, &DomainError{Code: "SUBSCRIPTION_NOT_FOUND", Message: "Nenhuma assinatura encontrada no Stripe"}
	}

	plan, ok := resolveCardPlan(uc.Card, chosen.Metadata["planType"], chosen.PriceRef, existing)
	if !ok {
		return nil, &DomainError{Code: "PLAN_UNKNOWN", Message: "Não foi possível identificar o plano da assinatura"}
	}

	fields := cardFields(chosen, plan, uc.Now())
	if pixBilled(existing, *chosen) {
		restrictToPix(&fields)
	}
	fields.CardCustomerRef = entity.Ptr(customerRef)
	fields.LastSyncedAt = entity.Ptr(uc.Now())
	row, err := uc.Subs.Upsert(ctx, tenant.ID, fields)
	if err != nil {
		return nil, &TechnicalError{Code: "DB_ERROR", Message: "erro ao sincronizar assinatura", Err: err}
	}

	log.Info().Str("tenant_id", tenant.ID).Str("stripe_subscription_id", chosen.Ref).Msg("🔄 sincronização forçada concluída")

	return &SyncOutput{
		Message:          "Assinatura sincronizada",
		Status:           string(row.Status),
		PlanType:         string(row.PlanType),
		CurrentPeriodEnd: row.CurrentPeriodEnd,
	}, nil
}

// pickSubscription: active > trialing > a primeira (o Stripe lista da mais recente).
func pickSubscription(subs []entity.CardSubscription) *entity.CardSubscription {
	if len(subs) == 0 {
		return nil
	}
	for _, want := range []string{"active", "trialing"} {
		for i := range subs {
			if subs[i].Status == want {
				return &subs[i]
			}
		}
	}
	return &subs[0]
}
