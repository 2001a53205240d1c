package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xavierca1/colaai-billing/internal/entity"
)

// CardEventsUseCase aplica os eventos do webhook do Stripe. Erro devolvido
// vira 500 e o Stripe reentrega; evento sem tenant é logado e descartado.
type CardEventsUseCase struct {
	Subs   entity.SubscriptionRepository
	Card   CardGateway
	Trials *TrialPolicy
	Now    func() time.Time
}

func NewCardEventsUseCase(subs entity.SubscriptionRepository, card CardGateway, trials *TrialPolicy) *CardEventsUseCase {
	return &CardEventsUseCase{Subs: subs, Card: card, Trials: trials, Now: time.Now}
}

func (uc *CardEventsUseCase) Handle(ctx context.Context, ev entity.BillingEvent) error {
	logger := log.With().Str("event", ev.Kind()).Str("event_id", ev.EventID()).Logger()

	switch e := ev.(type) {
	case entity.CheckoutCompleted:
		return uc.checkoutCompleted(ctx, e)
	case entity.SubscriptionUpdated:
		return uc.subscriptionUpdated(ctx, e.Subscription)
	case entity.SubscriptionDeleted:
		return uc.subscriptionDeleted(ctx, e.Subscription)
	case entity.InvoicePaid:
		return uc.invoicePaid(ctx, e)
	default:
		logger.Debug().Msg("evento ignorado")
		return nil
	}
}

func (uc *CardEventsUseCase) checkoutCompleted(ctx context.Context, e entity.CheckoutCompleted) error {
	if e.SubscriptionRef == "" {
		log.Info().Str("session_id", e.SessionRef).Msg("checkout sem assinatura, ignorando")
		return nil
	}

	sub, err := uc.Card.GetSubscription(ctx, e.SubscriptionRef)
	if err != nil {
		return err
	}
	if sub.CustomerRef == "" {
		sub.CustomerRef = e.CustomerRef
	}

	tenantID := e.TenantID
	var existing *entity.Subscription
	if tenantID == "" {
		tenantID, existing, err = uc.resolveTenant(ctx, *sub)
	} else {
		existing, err = uc.findExisting(ctx, tenantID)
	}
	if err != nil {
		return err
	}
	if tenantID == "" {
		log.Warn().Str("stripe_subscription_id", sub.Ref).Msg("⚠️ checkout sem tenant resolvível, descartando")
		return nil
	}

	// nunca duas assinaturas vivas no mesmo cliente
	live, err := uc.Card.ListLiveSubscriptions(ctx, sub.CustomerRef)
	if err != nil {
		return err
	}
	for _, other := range live {
		if other.Ref == sub.Ref {
			continue
		}
		if err := uc.Card.CancelSubscription(ctx, other.Ref); err != nil {
			return err
		}
		log.Info().Str("tenant_id", tenantID).Str("stripe_subscription_id", other.Ref).Msg("🗑️ assinatura anterior cancelada no checkout")
	}

	label := e.PlanLabel
	if label == "" {
		label = sub.Metadata["planType"]
	}
	plan, ok := resolveCardPlan(uc.Card, label, sub.PriceRef, existing)
	if !ok {
		log.Error().Str("tenant_id", tenantID).Str("price", sub.PriceRef).Msg("❌ plano não identificado no checkout")
		return nil
	}

	fields := cardFields(sub, plan, uc.Now())
	fields.PaymentMethod = entity.Ptr(entity.PaymentCard)
	if period, err := entity.ParseBillingPeriod(sub.Metadata["billingPeriod"]); err == nil {
		fields.BillingPeriod = entity.Ptr(period)
	}
	if _, err := uc.Subs.Upsert(ctx, tenantID, fields); err != nil {
		return &TechnicalError{Code: "DB_ERROR", Message: "erro ao gravar assinatura do checkout", Err: err}
	}

	if sub.Status == "trialing" {
		uc.Trials.Confirm(ctx, tenantID, plan, sub.Ref)
	}

	log.Info().Str("tenant_id", tenantID).Str("stripe_subscription_id", sub.Ref).Str("status", sub.Status).Msg("✅ checkout concluído")
	return nil
}

func (uc *CardEventsUseCase) subscriptionUpdated(ctx context.Context, sub entity.CardSubscription) error {
	tenantID, existing, err := uc.resolveTenant(ctx, sub)
	if err != nil {
		return err
	}
	if tenantID == "" {
		log.Warn().Str("stripe_subscription_id", sub.Ref).Msg("⚠️ subscription.updated sem tenant, descartando")
		return nil
	}

	// evento atrasado da assinatura anterior (já trocada por outra)
	if existing != nil && existing.CardSubscriptionRef != "" && existing.CardSubscriptionRef != sub.Ref && !cardLive(sub.Status) {
		log.Info().Str("tenant_id", tenantID).Str("stripe_subscription_id", sub.Ref).Msg("evento de assinatura antiga, ignorando")
		return nil
	}

	return uc.apply(ctx, tenantID, existing, sub)
}

func (uc *CardEventsUseCase) subscriptionDeleted(ctx context.Context, sub entity.CardSubscription) error {
	tenantID, existing, err := uc.resolveTenant(ctx, sub)
	if err != nil {
		return err
	}
	if tenantID == "" || existing == nil || existing.CardSubscriptionRef != sub.Ref {
		log.Info().Str("stripe_subscription_id", sub.Ref).Msg("assinatura removida não é a atual, ignorando")
		return nil
	}

	if _, err := uc.Subs.Upsert(ctx, tenantID, entity.SubscriptionFields{
		Status:     entity.Ptr(entity.StatusCancelled),
		SyncSource: entity.Ptr(entity.SyncStripe),
	}); err != nil {
		return &TechnicalError{Code: "DB_ERROR", Message: "erro ao cancelar assinatura", Err: err}
	}

	log.Info().Str("tenant_id", tenantID).Str("stripe_subscription_id", sub.Ref).Msg("🚫 assinatura cancelada")
	return nil
}

// invoicePaid é a renovação: relê a assinatura pra pegar o novo período.
func (uc *CardEventsUseCase) invoicePaid(ctx context.Context, e entity.InvoicePaid) error {
	if e.SubscriptionRef == "" {
		return nil
	}
	sub, err := uc.Card.GetSubscription(ctx, e.SubscriptionRef)
	if err != nil {
		return err
	}
	if sub.CustomerRef == "" {
		sub.CustomerRef = e.CustomerRef
	}
	return uc.subscriptionUpdated(ctx, *sub)
}

func (uc *CardEventsUseCase) apply(ctx context.Context, tenantID string, existing *entity.Subscription, sub entity.CardSubscription) error {
	plan, ok := resolveCardPlan(uc.Card, "", sub.PriceRef, existing)
	if !ok {
		if p, err := entity.ParsePlanType(sub.Metadata["planType"]); err == nil {
			plan, ok = p, true
		}
	}
	if !ok {
		log.Error().Str("tenant_id", tenantID).Str("price", sub.PriceRef).Msg("❌ price desconhecido e sem plano gravado")
		return nil
	}

	fields := cardFields(&sub, plan, uc.Now())
	if pixBilled(existing, sub) {
		restrictToPix(&fields)
	}
	if _, err := uc.Subs.Upsert(ctx, tenantID, fields); err != nil {
		return &TechnicalError{Code: "DB_ERROR", Message: "erro ao atualizar assinatura", Err: err}
	}

	log.Info().Str("tenant_id", tenantID).Str("stripe_subscription_id", sub.Ref).Str("status", sub.Status).Str("plan", string(plan)).Msg("🔄 assinatura atualizada")
	return nil
}

// resolveTenant: metadata userId, senão a linha com o mesmo customer.
func (uc *CardEventsUseCase) resolveTenant(ctx context.Context, sub entity.CardSubscription) (string, *entity.Subscription, error) {
	if id := sub.TenantID(); id != "" {
		existing, err := uc.findExisting(ctx, id)
		return id, existing, err
	}
	if sub.CustomerRef == "" {
		return "", nil, nil
	}
	row, err := uc.Subs.FindByCardCustomerRef(ctx, sub.CustomerRef)
	if errors.Is(err, entity.ErrSubscriptionNotFound) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, &TechnicalError{Code: "DB_ERROR", Message: "erro ao buscar assinatura", Err: err}
	}
	return row.TenantID, row, nil
}

func (uc *CardEventsUseCase) findExisting(ctx context.Context, tenantID string) (*entity.Subscription, error) {
	row, err := uc.Subs.FindByTenant(ctx, tenantID)
	if errors.Is(err, entity.ErrSubscriptionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &TechnicalError{Code: "DB_ERROR", Message: "erro ao buscar assinatura", Err: err}
	}
	return row, nil
}
