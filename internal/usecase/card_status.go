package usecase

import (
	"time"

	"github.com/xavierca1/colaai-billing/internal/entity"
)

// MapCardStatus traduz o status do Stripe para o nosso. ok=false significa
// "não mexe no status" (incomplete e afins).
func MapCardStatus(raw string) (entity.Status, bool) {
	switch raw {
	case "trialing":
		return entity.StatusTrial, true
	case "active":
		return entity.StatusActive, true
	case "canceled", "cancelled":
		return entity.StatusCancelled, true
	case "past_due", "unpaid", "incomplete_expired":
		return entity.StatusExpired, true
	}
	return "", false
}

func cardLive(raw string) bool {
	return raw == "active" || raw == "trialing"
}

// cardFields monta o patch completo a partir da assinatura do provedor.
// Toda escrita vinda do Stripe sai marcada com sync_source=stripe.
func cardFields(sub *entity.CardSubscription, plan entity.PlanType, now time.Time) entity.SubscriptionFields {
	f := entity.SubscriptionFields{
		PlanType:            entity.Ptr(plan),
		CardSubscriptionRef: entity.Ptr(sub.Ref),
		SyncSource:          entity.Ptr(entity.SyncStripe),
	}
	if sub.CustomerRef != "" {
		f.CardCustomerRef = entity.Ptr(sub.CustomerRef)
	}
	if sub.PriceRef != "" {
		f.CardPriceRef = entity.Ptr(sub.PriceRef)
	}
	if status, ok := MapCardStatus(sub.Status); ok {
		f.Status = entity.Ptr(status)
	}
	if sub.TrialEnd != nil {
		f.TrialEndsAt = sub.TrialEnd
	} else {
		f.ClearTrialEndsAt = true
	}

	start := now.UTC()
	if sub.CurrentPeriodStart != nil {
		start = *sub.CurrentPeriodStart
	}
	end := start.AddDate(0, 0, entity.PeriodMonthly.Days())
	if sub.CurrentPeriodEnd != nil {
		end = *sub.CurrentPeriodEnd
	}
	f.CurrentPeriodStart = entity.Ptr(start)
	f.CurrentPeriodEnd = entity.Ptr(end)
	f.CardCurrentPeriodEnd = entity.Ptr(end)
	return f
}

// pixBilled: assinatura do Stripe que só emite fatura; quem libera acesso é o PIX.
func pixBilled(existing *entity.Subscription, sub entity.CardSubscription) bool {
	if sub.Metadata["paymentMethod"] == string(entity.PaymentPix) {
		return true
	}
	return existing != nil && existing.PaymentMethod == entity.PaymentPix
}

// restrictToPix tira do patch o que só o pagamento PIX pode mudar: active,
// expired e a janela de acesso. Ficam trial, cancelled, refs e price.
func restrictToPix(f *entity.SubscriptionFields) {
	if f.Status != nil && *f.Status != entity.StatusTrial && *f.Status != entity.StatusCancelled {
		f.Status = nil
	}
	if f.Status == nil || *f.Status != entity.StatusTrial {
		f.TrialEndsAt = nil
		f.ClearTrialEndsAt = false
	}
	f.CurrentPeriodStart = nil
	f.CurrentPeriodEnd = nil
}

// resolveCardPlan escolhe o plano: metadata > price > o que já estava gravado.
func resolveCardPlan(card CardGateway, label, priceRef string, existing *entity.Subscription) (entity.PlanType, bool) {
	if plan, err := entity.ParsePlanType(label); err == nil {
		return plan, true
	}
	if plan, ok := card.PlanForPrice(priceRef); ok {
		return plan, true
	}
	if existing != nil && existing.PlanType.Valid() {
		return existing.PlanType, true
	}
	return "", false
}
