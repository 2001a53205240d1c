package stripe

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	stripesdk "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/xavierca1/colaai-billing/internal/entity"
)

const SignatureHeader = "Stripe-Signature"

var ErrInvalidSignature = errors.New("assinatura do webhook Stripe inválida")

// ParseEvent verifica a assinatura e devolve o evento tipado. Sem segredo
// configurado (dev) a verificação é pulada com warning.
func (c *Client) ParseEvent(payload []byte, signature string) (entity.BillingEvent, error) {
	var event stripesdk.Event
	if c.webhookSecret == "" {
		log.Warn().Msg("⚠️ STRIPE_WEBHOOK_SECRET vazio, verificação de assinatura pulada")
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("evento inválido: %w", err)
		}
	} else {
		var err error
		event, err = webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret, webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
	}
	return decodeEvent(event)
}

// Estruturas mínimas do payload; o campo customer pode vir como id ou objeto.
type ref struct {
	ID string
}

func (r *ref) UnmarshalJSON(b []byte) error {
	var id string
	if err := json.Unmarshal(b, &id); err == nil {
		r.ID = id
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	r.ID = obj.ID
	return nil
}

type subscriptionPayload struct {
	ID       string            `json:"id"`
	Customer ref               `json:"customer"`
	Status   string            `json:"status"`
	TrialEnd int64             `json:"trial_end"`
	Metadata map[string]string `json:"metadata"`
	// versões antigas da API mandam o período na raiz
	CurrentPeriodStart int64 `json:"current_period_start"`
	CurrentPeriodEnd   int64 `json:"current_period_end"`
	Items              struct {
		Data []struct {
			ID                 string `json:"id"`
			CurrentPeriodStart int64  `json:"current_period_start"`
			CurrentPeriodEnd   int64  `json:"current_period_end"`
			Price              ref    `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

type checkoutSessionPayload struct {
	ID                string            `json:"id"`
	Customer          ref               `json:"customer"`
	Subscription      ref               `json:"subscription"`
	ClientReferenceID string            `json:"client_reference_id"`
	Metadata          map[string]string `json:"metadata"`
}

type invoicePayload struct {
	ID           string `json:"id"`
	Customer     ref    `json:"customer"`
	Subscription ref    `json:"subscription"`
	Parent       struct {
		SubscriptionDetails struct {
			Subscription ref `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

func decodeEvent(event stripesdk.Event) (entity.BillingEvent, error) {
	if event.Data == nil {
		return entity.IgnoredEvent{ID: event.ID, Type: string(event.Type)}, nil
	}
	raw := event.Data.Raw

	switch event.Type {
	case "checkout.session.completed":
		var s checkoutSessionPayload
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("decode checkout.session: %w", err)
		}
		tenantID := s.Metadata["userId"]
		if tenantID == "" {
			tenantID = s.ClientReferenceID
		}
		return entity.CheckoutCompleted{
			ID:              event.ID,
			SessionRef:      s.ID,
			TenantID:        tenantID,
			PlanLabel:       s.Metadata["planType"],
			CustomerRef:     s.Customer.ID,
			SubscriptionRef: s.Subscription.ID,
		}, nil

	case "customer.subscription.updated", "customer.subscription.created":
		sub, err := decodeSubscription(raw)
		if err != nil {
			return nil, err
		}
		return entity.SubscriptionUpdated{ID: event.ID, Subscription: sub}, nil

	case "customer.subscription.deleted":
		sub, err := decodeSubscription(raw)
		if err != nil {
			return nil, err
		}
		return entity.SubscriptionDeleted{ID: event.ID, Subscription: sub}, nil

	case "invoice.paid":
		var inv invoicePayload
		if err := json.Unmarshal(raw, &inv); err != nil {
			return nil, fmt.Errorf("decode invoice: %w", err)
		}
		subRef := inv.Subscription.ID
		if subRef == "" {
			subRef = inv.Parent.SubscriptionDetails.Subscription.ID
		}
		return entity.InvoicePaid{
			ID:              event.ID,
			InvoiceRef:      inv.ID,
			CustomerRef:     inv.Customer.ID,
			SubscriptionRef: subRef,
		}, nil
	}

	return entity.IgnoredEvent{ID: event.ID, Type: string(event.Type)}, nil
}

func decodeSubscription(raw []byte) (entity.CardSubscription, error) {
	var s subscriptionPayload
	if err := json.Unmarshal(raw, &s); err != nil {
		return entity.CardSubscription{}, fmt.Errorf("decode subscription: %w", err)
	}

	out := entity.CardSubscription{
		Ref:                s.ID,
		CustomerRef:        s.Customer.ID,
		Status:             s.Status,
		TrialEnd:           unixPtr(s.TrialEnd),
		CurrentPeriodStart: unixPtr(s.CurrentPeriodStart),
		CurrentPeriodEnd:   unixPtr(s.CurrentPeriodEnd),
		Metadata:           s.Metadata,
	}
	if len(s.Items.Data) > 0 {
		item := s.Items.Data[0]
		out.ItemRef = item.ID
		out.PriceRef = item.Price.ID
		if item.CurrentPeriodEnd > 0 {
			out.CurrentPeriodStart = unixPtr(item.CurrentPeriodStart)
			out.CurrentPeriodEnd = unixPtr(item.CurrentPeriodEnd)
		}
	}
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	return out, nil
}
