package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/xavierca1/colaai-billing/internal/entity"
	"github.com/xavierca1/colaai-billing/internal/infra/http/middleware"
	"github.com/xavierca1/colaai-billing/internal/infra/integration/abacatepay"
	"github.com/xavierca1/colaai-billing/internal/infra/integration/stripe"
	"github.com/xavierca1/colaai-billing/internal/usecase"
)

const (
	OriginWebhookAbacatePay = "WEBHOOK_ABACATEPAY"
	ReverseSyncSecretHeader = "x-webhook-secret"
)

type CardEventParser interface {
	ParseEvent(payload []byte, signature string) (entity.BillingEvent, error)
}

type CardEventHandler interface {
	Handle(ctx context.Context, ev entity.BillingEvent) error
}

type PixActivator interface {
	Execute(ctx context.Context, ev entity.BillingPaid, origin string) (*usecase.ActivationResult, error)
}

type ReverseSyncer interface {
	Execute(ctx context.Context, n usecase.ChangeNotification) string
}

// StripeWebhookHandler: 400 para assinatura inválida (nada é gravado),
// 500 quando o processamento falha pra o Stripe reentregar.
type StripeWebhookHandler struct {
	Parser CardEventParser
	Events CardEventHandler
}

func NewStripeWebhookHandler(parser CardEventParser, events CardEventHandler) *StripeWebhookHandler {
	return &StripeWebhookHandler{Parser: parser, Events: events}
}

func (h *StripeWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := readBody(w, r)
	if err != nil {
		http.Error(w, "Bad body", http.StatusBadRequest)
		return
	}

	ev, err := h.Parser.ParseEvent(payload, r.Header.Get(stripe.SignatureHeader))
	if err != nil {
		outcome := "invalid"
		if errors.Is(err, stripe.ErrInvalidSignature) {
			outcome = "bad_signature"
		}
		log.Warn().Err(err).Msg("❌ webhook Stripe rejeitado")
		middleware.RecordWebhook("stripe", "unknown", outcome)
		http.Error(w, "Webhook Error", http.StatusBadRequest)
		return
	}

	logger := log.With().Str("event", ev.Kind()).Str("event_id", ev.EventID()).Logger()
	if err := h.Events.Handle(r.Context(), ev); err != nil {
		logger.Error().Err(err).Msg("❌ erro processando webhook Stripe")
		middleware.RecordWebhook("stripe", ev.Kind(), "error")
		middleware.RecordIntegrationError("stripe")
		http.Error(w, "Webhook handler failed", http.StatusInternalServerError)
		return
	}

	logger.Info().Msg("✅ webhook Stripe processado")
	middleware.RecordWebhook("stripe", ev.Kind(), "ok")
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

// AbacatePayWebhookHandler só age em billing.paid; tenant não resolvido
// ainda responde 200 pra não gerar reentrega infinita.
type AbacatePayWebhookHandler struct {
	Secret    string
	Activator PixActivator
}

func NewAbacatePayWebhookHandler(secret string, activator PixActivator) *AbacatePayWebhookHandler {
	return &AbacatePayWebhookHandler{Secret: secret, Activator: activator}
}

func (h *AbacatePayWebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		http.Error(w, "Bad body", http.StatusBadRequest)
		return
	}

	res, err := abacatepay.VerifySignature(body, r.Header.Get(abacatepay.SignatureHeader), h.Secret)
	if err != nil {
		log.Warn().Err(err).Msg("❌ webhook AbacatePay com assinatura inválida")
		middleware.RecordWebhook("abacatepay", "unknown", "bad_signature")
		writeErrorResponse(w, http.StatusUnauthorized, "INVALID_SIGNATURE", "Assinatura inválida")
		return
	}
	if res == abacatepay.SignatureSkipped {
		log.Warn().Msg("⚠️ ABACATEPAY_WEBHOOK_SECRET vazio, verificação de assinatura pulada")
	}

	ev, err := abacatepay.ParseWebhook(body)
	if err != nil {
		log.Warn().Err(err).Msg("❌ webhook AbacatePay inválido")
		middleware.RecordWebhook("abacatepay", "unknown", "invalid")
		http.Error(w, "Bad JSON", http.StatusBadRequest)
		return
	}

	paid, ok := ev.(entity.BillingPaid)
	if !ok {
		log.Debug().Str("event", ev.Kind()).Msg("evento AbacatePay ignorado")
		middleware.RecordWebhook("abacatepay", ev.Kind(), "ignored")
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	result, err := h.Activator.Execute(r.Context(), paid, OriginWebhookAbacatePay)
	if err != nil {
		log.Error().Err(err).Str("billing_id", paid.BillingRef).Msg("❌ erro ativando cobrança PIX")
		middleware.RecordWebhook("abacatepay", ev.Kind(), "error")
		http.Error(w, "Webhook handler failed", http.StatusInternalServerError)
		return
	}

	if result.Activated {
		middleware.RecordSubscriptionActivation(OriginWebhookAbacatePay)
	}
	middleware.RecordWebhook("abacatepay", ev.Kind(), result.Reason)
	writeJSON(w, http.StatusOK, map[string]any{"received": true, "activated": result.Activated})
}

// ReverseSyncHandler recebe o aviso do trigger do banco. Depois de
// autenticado sempre responde 200 com a ação tomada.
type ReverseSyncHandler struct {
	Secret string
	Sync   ReverseSyncer
}

func NewReverseSyncHandler(secret string, sync ReverseSyncer) *ReverseSyncHandler {
	return &ReverseSyncHandler{Secret: secret, Sync: sync}
}

func (h *ReverseSyncHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.Secret != "" {
		got := r.Header.Get(ReverseSyncSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.Secret)) != 1 {
			log.Warn().Msg("❌ reverse-sync com segredo inválido")
			writeErrorResponse(w, http.StatusUnauthorized, "UNAUTHORIZED", "Não autorizado")
			return
		}
	}

	var n usecase.ChangeNotification
	body, err := readBody(w, r)
	if err == nil {
		err = json.Unmarshal(body, &n)
	}
	if err != nil {
		log.Warn().Err(err).Msg("reverse-sync com corpo inválido")
		middleware.RecordReverseSync(usecase.SyncActionIgnored)
		writeJSON(w, http.StatusOK, map[string]string{"action": usecase.SyncActionIgnored})
		return
	}

	action := h.Sync.Execute(r.Context(), n)
	middleware.RecordReverseSync(action)
	if action == usecase.SyncActionFailed {
		middleware.RecordIntegrationError("stripe")
	}
	writeJSON(w, http.StatusOK, map[string]string{"action": action})
}
