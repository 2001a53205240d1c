package abacatepay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xavierca1/colaai-billing/internal/entity"
)

const SignatureHeader = "x-abacatepay-signature"

var ErrInvalidSignature = errors.New("assinatura do webhook inválida")

type SignatureResult int

const (
	SignatureValid SignatureResult = iota
	// SignatureSkipped: sem segredo configurado (dev). Quem chama deve logar.
	SignatureSkipped
)

// VerifySignature compara o HMAC-SHA256 hex do corpo cru em tempo constante.
func VerifySignature(body []byte, header, secret string) (SignatureResult, error) {
	if secret == "" {
		return SignatureSkipped, nil
	}
	got, err := hex.DecodeString(strings.TrimSpace(header))
	if err != nil || len(got) == 0 {
		return SignatureValid, ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return SignatureValid, ErrInvalidSignature
	}
	return SignatureValid, nil
}

// Sign é o inverso de VerifySignature; usado em testes e ferramentas.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ParseWebhook converte o corpo em BillingPaid ou IgnoredEvent.
func ParseWebhook(body []byte) (entity.BillingEvent, error) {
	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("webhook abacatepay inválido: %w", err)
	}

	kind := ev.Event
	if kind == "" {
		kind = ev.Type
	}
	if kind != "billing.paid" && kind != "BILLING_PAID" {
		return entity.IgnoredEvent{ID: ev.ID, Type: kind}, nil
	}

	b := ev.Data
	if b == nil {
		b = ev.Billing
	}
	if b == nil || b.ID == "" {
		return nil, errors.New("webhook billing.paid sem cobrança")
	}

	id := ev.ID
	if id == "" {
		id = "billing.paid:" + b.ID
	}
	md := b.Metadata
	return entity.BillingPaid{
		ID:            id,
		BillingRef:    b.ID,
		TenantID:      firstNonEmpty(md["userId"], md["tenantId"]),
		PlanLabel:     md["planType"],
		BillingPeriod: md["billingPeriod"],
		Email:         md["userEmail"],
		AmountCents:   b.Amount,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
