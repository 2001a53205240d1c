package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/xavierca1/colaai-billing/internal/entity"
)

// SubscriptionSnapshot é a linha como o trigger do banco manda (record/old_record).
type SubscriptionSnapshot struct {
	ID                  string `json:"id"`
	TenantID            string `json:"user_id"`
	CardSubscriptionRef string `json:"stripe_subscription_id"`
	CardCustomerRef     string `json:"stripe_customer_id"`
	CardPriceRef        string `json:"stripe_price_id"`
	Status              string `json:"status"`
	PlanType            string `json:"plan_type"`
	SyncSource          string `json:"sync_source"`
}

type ChangeNotification struct {
	Type      string                `json:"type"` // INSERT, UPDATE, DELETE
	Table     string                `json:"table"`
	Schema    string                `json:"schema,omitempty"`
	Record    *SubscriptionSnapshot `json:"record"`
	OldRecord *SubscriptionSnapshot `json:"old_record"`
}

const (
	SyncActionIgnored       = "ignored"
	SyncActionNoCardSub     = "skipped_no_card_subscription"
	SyncActionLoop          = "skipped_sync_source"
	SyncActionNoChange      = "no_change"
	SyncActionCancelled     = "cancelled"
	SyncActionPlanChanged   = "plan_changed"
	SyncActionAlreadyInSync = "already_in_sync"
	SyncActionFailed        = "failed"
)

// ReverseSyncUseCase empurra pro Stripe mudanças feitas localmente
// (cancelamento e troca de plano). Nunca devolve erro: o trigger não reentrega.
type ReverseSyncUseCase struct {
	Subs entity.SubscriptionRepository
	Card CardGateway
	Now  func() time.Time
}

func NewReverseSyncUseCase(subs entity.SubscriptionRepository, card CardGateway) *ReverseSyncUseCase {
	return &ReverseSyncUseCase{Subs: subs, Card: card, Now: time.Now}
}

func (uc *ReverseSyncUseCase) Execute(ctx context.Context, n ChangeNotification) string {
	if n.Table != "subscriptions" || n.Record == nil {
		return SyncActionIgnored
	}
	rec := n.Record
	if rec.CardSubscriptionRef == "" {
		return SyncActionNoCardSub
	}
	// escrita causada pelo próprio Stripe: agir aqui fecharia o loop
	if rec.SyncSource == string(entity.SyncStripe) {
		return SyncActionLoop
	}

	old := SubscriptionSnapshot{}
	if n.OldRecord != nil {
		old = *n.OldRecord
	}

	logger := log.With().Str("tenant_id", rec.TenantID).Str("stripe_subscription_id", rec.CardSubscriptionRef).Logger()

	switch {
	case rec.Status == string(entity.StatusCancelled) && old.Status != string(entity.StatusCancelled):
		if err := uc.Card.CancelSubscription(ctx, rec.CardSubscriptionRef); err != nil {
			logger.Error().Err(err).Msg("❌ reverse-sync: falha ao cancelar no Stripe")
			return SyncActionFailed
		}
		uc.markSynced(ctx, rec.TenantID)
		logger.Info().Msg("🔁 reverse-sync: assinatura cancelada no Stripe")
		return SyncActionCancelled

	case rec.PlanType != old.PlanType && rec.PlanType != "":
		return uc.changePlan(ctx, rec, logger)
	}

	return SyncActionNoChange
}

func (uc *ReverseSyncUseCase) changePlan(ctx context.Context, rec *SubscriptionSnapshot, logger zerolog.Logger) string {
	plan, err := entity.ParsePlanType(rec.PlanType)
	if err != nil {
		logger.Error().Str("plan_type", rec.PlanType).Msg("❌ reverse-sync: plano inválido na linha")
		return SyncActionFailed
	}
	priceRef, err := uc.Card.ResolvePrice(plan)
	if err != nil {
		logger.Error().Err(err).Str("plan", string(plan)).Msg("❌ reverse-sync: plano sem price configurado")
		return SyncActionFailed
	}

	current, err := uc.Card.GetSubscription(ctx, rec.CardSubscriptionRef)
	if err != nil {
		logger.Error().Err(err).Msg("❌ reverse-sync: falha ao buscar assinatura no Stripe")
		return SyncActionFailed
	}
	if current.PriceRef == priceRef {
		uc.markSynced(ctx, rec.TenantID)
		return SyncActionAlreadyInSync
	}
	if current.ItemRef == "" {
		logger.Error().Msg("❌ reverse-sync: assinatura sem item")
		return SyncActionFailed
	}

	if _, err := uc.Card.ChangeSubscriptionPrice(ctx, rec.CardSubscriptionRef, current.ItemRef, priceRef); err != nil {
		logger.Error().Err(err).Msg("❌ reverse-sync: falha ao trocar price no Stripe")
		return SyncActionFailed
	}

	uc.markSynced(ctx, rec.TenantID)
	logger.Info().Str("plan", string(plan)).Msg("🔁 reverse-sync: plano atualizado no Stripe")
	return SyncActionPlanChanged
}

func (uc *ReverseSyncUseCase) markSynced(ctx context.Context, tenantID string) {
	now := uc.Now()
	if err := uc.Subs.MarkSyncSource(ctx, tenantID, entity.SyncStripe, &now); err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID).Msg("❌ reverse-sync: falha ao gravar sync_source")
	}
}
