package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xavierca1/colaai-billing/internal/entity"
)

// CardCheckoutUseCase abre a página hospedada de checkout e o portal de cobrança.
// A gravação da assinatura fica com o webhook checkout.session.completed.
type CardCheckoutUseCase struct {
	Subs   entity.SubscriptionRepository
	Card   CardGateway
	Trials *TrialPolicy
	AppURL string
}

func NewCardCheckoutUseCase(subs entity.SubscriptionRepository, card CardGateway, trials *TrialPolicy, appURL string) *CardCheckoutUseCase {
	return &CardCheckoutUseCase{
		Subs:   subs,
		Card:   card,
		Trials: trials,
		AppURL: strings.TrimRight(appURL, "/"),
	}
}

func (uc *CardCheckoutUseCase) Checkout(ctx context.Context, tenant entity.Tenant, input PlanRequest) (*CheckoutOutput, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	plan, period, err := parsePlanRequest(input, uc.Card)
	if err != nil {
		return nil, err
	}

	priceRef, err := uc.Card.ResolvePrice(plan)
	if err != nil {
		return nil, &DomainError{Code: "PLAN_NOT_AVAILABLE", Message: "Plano indisponível para pagamento no momento"}
	}

	existing, err := uc.Subs.FindByTenant(ctx, tenant.ID)
	if err != nil && !errors.Is(err, entity.ErrSubscriptionNotFound) {
		return nil, &TechnicalError{Code: "DB_ERROR", Message: "erro ao buscar assinatura", Err: err}
	}

	customerRef, err := uc.Card.GetOrCreateCustomer(ctx, CardCustomerInput{
		TenantID: tenant.ID,
		Email:    tenant.Email,
		Name:     tenant.DisplayName(),
		KnownRef: knownCustomerRef(existing),
	})
	if err != nil {
		return nil, err
	}

	// sessão abandonada também consome o trial
	trialDays, err := uc.Trials.Reserve(ctx, tenant.ID, plan, "")
	if err != nil {
		return nil, &TechnicalError{Code: "DB_ERROR", Message: "erro ao verificar trial", Err: err}
	}

	session, err := uc.Card.CreateCheckoutSession(ctx, CheckoutSessionInput{
		CustomerRef: customerRef,
		PriceRef:    priceRef,
		TrialDays:   trialDays,
		SuccessURL:  uc.AppURL + "/dashboard/assinatura?success=true&session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   uc.AppURL + "/dashboard/assinatura?canceled=true",
		Metadata: map[string]string{
			"userId":        tenant.ID,
			"planType":      string(plan),
			"billingPeriod": string(period),
		},
	})
	if err != nil {
		return nil, err
	}

	if trialDays > 0 {
		uc.Trials.Confirm(ctx, tenant.ID, plan, session.ID)
	}

	if existing != nil && existing.CardCustomerRef != customerRef {
		if _, err := uc.Subs.Upsert(ctx, tenant.ID, entity.SubscriptionFields{CardCustomerRef: entity.Ptr(customerRef)}); err != nil {
			log.Warn().Err(err).Str("tenant_id", tenant.ID).Msg("⚠️ não foi possível gravar stripe_customer_id")
		}
	}

	log.Info().Str("tenant_id", tenant.ID).Str("plan", string(plan)).Int64("trial_days", trialDays).Msg("🛒 checkout criado")

	return &CheckoutOutput{URL: session.URL, TrialDays: trialDays}, nil
}

func (uc *CardCheckoutUseCase) Portal(ctx context.Context, tenant entity.Tenant) (*PortalOutput, error) {
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
		return nil, &DomainError{Code: "CUSTOMER_NOT_FOUND", Message: "Nenhuma assinatura de cartão encontrada"}
	}

	url, err := uc.Card.CreatePortalSession(ctx, customerRef, uc.AppURL+"/dashboard/assinatura")
	if err != nil {
		return nil, err
	}
	return &PortalOutput{URL: url}, nil
}
