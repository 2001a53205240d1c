package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xavierca1/colaai-billing/internal/entity"
)

type PixBillingUseCase struct {
	Subs      entity.SubscriptionRepository
	Pix       PixGateway
	Activator *ActivatePixBillingUseCase
	AppURL    string
}

func NewPixBillingUseCase(subs entity.SubscriptionRepository, pix PixGateway, activator *ActivatePixBillingUseCase, appURL string) *PixBillingUseCase {
	return &PixBillingUseCase{
		Subs:      subs,
		Pix:       pix,
		Activator: activator,
		AppURL:    strings.TrimRight(appURL, "/"),
	}
}

// CreateBilling gera a cobrança PIX e grava pending_pix de forma otimista.
func (uc *PixBillingUseCase) CreateBilling(ctx context.Context, tenant entity.Tenant, input PlanRequest) (*PixBillingOutput, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	plan, period, err := parsePlanRequest(input, nil)
	if err != nil {
		return nil, err
	}
	amount, err := entity.PixPriceCents(plan, period)
	if err != nil {
		return nil, &DomainError{Code: "INVALID_PLAN", Message: "Plano sem valor PIX definido"}
	}

	existing, err := uc.Subs.FindByTenant(ctx, tenant.ID)
	if err != nil && !errors.Is(err, entity.ErrSubscriptionNotFound) {
		return nil, &TechnicalError{Code: "DB_ERROR", Message: "erro ao buscar assinatura", Err: err}
	}

	billing, err := uc.Pix.CreateBilling(ctx, PixBillingInput{
		AmountCents:   amount,
		ProductName:   fmt.Sprintf("Cola Aí - Plano %s", plan.Label()),
		Description:   fmt.Sprintf("Assinatura %s do plano %s", strings.ToLower(period.Label()), plan.Label()),
		ExternalID:    fmt.Sprintf("colaai-%s-%s-%s", tenant.ID, plan, period),
		ReturnURL:     uc.AppURL + "/dashboard/assinatura",
		CompletionURL: uc.AppURL + "/dashboard/assinatura?pix=success",
		Customer: PixCustomer{
			Name:      tenant.DisplayName(),
			Email:     tenant.Email,
			Cellphone: tenant.Phone,
			TaxID:     tenant.TaxID,
		},
		Metadata: map[string]string{
			"userId":        tenant.ID,
			"planType":      string(plan),
			"billingPeriod": string(period),
			"userEmail":     tenant.Email,
		},
	})
	if err != nil {
		return nil, err
	}

	fields := entity.SubscriptionFields{
		Status:        entity.Ptr(entity.StatusPendingPix),
		PaymentMethod: entity.Ptr(entity.PaymentPix),
		BillingPeriod: entity.Ptr(period),
		PixBillingRef: entity.Ptr(billing.Ref),
		SyncSource:    entity.Ptr(entity.SyncLocal),
	}
	if existing == nil {
		// plano só é trocado na confirmação; aqui vai só o insert inicial
		fields.PlanType = entity.Ptr(plan)
	}
	if _, err := uc.Subs.Upsert(ctx, tenant.ID, fields); err != nil {
		// a cobrança já existe no provedor; o webhook resolve pelo metadata
		log.Error().Err(err).Str("tenant_id", tenant.ID).Str("billing_id", billing.Ref).Msg("❌ falha ao gravar pending_pix")
	}

	out := &PixBillingOutput{
		Success:     true,
		BillingID:   billing.Ref,
		BillingURL:  billing.URL,
		Status:      billing.Status,
		FallbackQR:  billing.URL,
		AmountCents: amount,
	}
	if billing.QRCode != "" {
		out.Pix = &PixQRCode{
			QRCode:       billing.QRCode,
			QRCodeBase64: billing.QRCodeBase64,
			ExpiresAt:    billing.ExpiresAt,
		}
	}
	return out, nil
}

// CheckStatus é o fallback de polling: consulta o provedor e ativa se estiver pago.
func (uc *PixBillingUseCase) CheckStatus(ctx context.Context, tenant entity.Tenant, billingID string) (*CheckStatusOutput, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	billingID = strings.TrimSpace(billingID)
	if billingID == "" {
		return nil, &DomainError{Code: "VALIDATION_ERROR", Message: "billingId é obrigatório"}
	}

	row, err := uc.Subs.FindByPixBillingRef(ctx, billingID)
	if errors.Is(err, entity.ErrSubscriptionNotFound) || (err == nil && row.TenantID != tenant.ID) {
		return nil, ErrBillingNotFound
	}
	if err != nil {
		return nil, &TechnicalError{Code: "DB_ERROR", Message: "erro ao buscar cobrança", Err: err}
	}

	billing, err := uc.Pix.GetBilling(ctx, billingID)
	if err != nil {
		return nil, err
	}

	out := &CheckStatusOutput{
		BillingID: billingID,
		Status:    billing.Status,
		Amount:    billing.AmountCents,
		Activated: row.Status == entity.StatusActive,
	}

	if billing.Status == PixStatusPaid && row.Status != entity.StatusActive {
		res, err := uc.Activator.Execute(ctx, entity.BillingPaid{
			ID:            "poll:" + billingID,
			BillingRef:    billingID,
			TenantID:      tenant.ID,
			PlanLabel:     billing.Metadata["planType"],
			BillingPeriod: billing.Metadata["billingPeriod"],
			Email:         tenant.Email,
			AmountCents:   billing.AmountCents,
		}, "POLL_CHECK_STATUS")
		if err != nil {
			return nil, err
		}
		out.Activated = res.Activated || res.Reason == "already_active"
	}

	return out, nil
}
