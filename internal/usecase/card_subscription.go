package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xavierca1/colaai-billing/internal/entity"
)

// cardReplacer troca a assinatura de cartão do tenant por uma nova:
// cancela tudo que está vivo no cliente, reserva o trial, cria e grava.
type cardReplacer struct {
	subs   entity.SubscriptionRepository
	card   CardGateway
	trials *TrialPolicy
	now    func() time.Time
}

type replaceRequest struct {
	tenant  entity.Tenant
	plan    entity.PlanType
	period  entity.BillingPeriod
	method  entity.PaymentMethod
	invoice bool
}

type replaceResult struct {
	card      *entity.CardSubscription
	row       *entity.Subscription
	trialDays int64
}

func (r *cardReplacer) replace(ctx context.Context, req replaceRequest) (*replaceResult, error) {
	existing, err := r.subs.FindByTenant(ctx, req.tenant.ID)
	if err != nil && !errors.Is(err, entity.ErrSubscriptionNotFound) {
		return nil, &TechnicalError{Code: "DB_ERROR", Message: "erro ao buscar assinatura", Err: err}
	}

	priceRef, err := r.card.ResolvePrice(req.plan)
	if err != nil {
		return nil, &DomainError{Code: "PLAN_NOT_AVAILABLE", Message: "Plano indisponível para pagamento no momento"}
	}

	customerRef, err := r.card.GetOrCreateCustomer(ctx, CardCustomerInput{
		TenantID: req.tenant.ID,
		Email:    req.tenant.Email,
		Name:     req.tenant.DisplayName(),
		KnownRef: knownCustomerRef(existing),
	})
	if err != nil {
		return nil, err
	}

	if err := r.cancelLive(ctx, customerRef, existing); err != nil {
		return nil, err
	}

	trialDays, err := r.trials.Reserve(ctx, req.tenant.ID, req.plan, "")
	if err != nil {
		return nil, &TechnicalError{Code: "DB_ERROR", Message: "erro ao verificar trial", Err: err}
	}

	res := &replaceResult{trialDays: trialDays}
	tx := NewTransaction()
	tx.AddStep("create_card_subscription",
		func(ctx context.Context) error {
			created, err := r.card.CreateSubscription(ctx, CardSubscriptionInput{
				CustomerRef: customerRef,
				PriceRef:    priceRef,
				TrialDays:   trialDays,
				Invoice:     req.invoice,
				Metadata: map[string]string{
					"userId":        req.tenant.ID,
					"planType":      string(req.plan),
					"billingPeriod": string(req.period),
					"paymentMethod": string(req.method),
				},
			})
			res.card = created
			return err
		},
		func(ctx context.Context) error {
			return r.card.CancelSubscription(ctx, res.card.Ref)
		},
	)
	tx.AddStep("upsert_subscription",
		func(ctx context.Context) error {
			fields := cardFields(res.card, req.plan, r.now())
			fields.CardCustomerRef = entity.Ptr(customerRef)
			fields.CardPriceRef = entity.Ptr(priceRef)
			fields.BillingPeriod = entity.Ptr(req.period)
			fields.PaymentMethod = entity.Ptr(req.method)
			if req.invoice {
				// fatura em aberto não libera acesso: fica pending_pix até o PIX cair
				status := entity.StatusPendingPix
				if res.card.Status == "trialing" {
					status = entity.StatusTrial
				}
				fields.Status = entity.Ptr(status)
			}
			row, err := r.subs.Upsert(ctx, req.tenant.ID, fields)
			res.row = row
			return err
		},
		nil,
	)

	if err := tx.Execute(ctx); err != nil {
		if IsGatewayError(err) {
			return nil, err
		}
		return nil, &TechnicalError{Code: "DB_ERROR", Message: "erro ao salvar assinatura", Err: err}
	}

	if trialDays > 0 {
		r.trials.Confirm(ctx, req.tenant.ID, req.plan, res.card.Ref)
	}

	log.Info().
		Str("tenant_id", req.tenant.ID).
		Str("stripe_subscription_id", res.card.Ref).
		Str("plan", string(req.plan)).
		Int64("trial_days", trialDays).
		Msg("✅ assinatura de cartão criada")

	return res, nil
}

// cancelLive cancela as assinaturas active/trialing do cliente e a gravada na
// linha local. Qualquer falha aborta: nunca criamos a nova com outra viva.
func (r *cardReplacer) cancelLive(ctx context.Context, customerRef string, existing *entity.Subscription) error {
	live, err := r.card.ListLiveSubscriptions(ctx, customerRef)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(live))
	for _, s := range live {
		seen[s.Ref] = true
		if err := r.card.CancelSubscription(ctx, s.Ref); err != nil {
			return err
		}
		log.Info().Str("stripe_subscription_id", s.Ref).Msg("🗑️ assinatura anterior cancelada")
	}

	if existing != nil && existing.CardSubscriptionRef != "" && !seen[existing.CardSubscriptionRef] && existing.Status.Live() {
		if err := r.card.CancelSubscription(ctx, existing.CardSubscriptionRef); err != nil {
			return err
		}
	}
	return nil
}

func knownCustomerRef(existing *entity.Subscription) string {
	if existing == nil {
		return ""
	}
	return existing.CardCustomerRef
}
