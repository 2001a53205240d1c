package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xavierca1/colaai-billing/internal/entity"
	"github.com/xavierca1/colaai-billing/internal/infra/http/middleware"
	"github.com/xavierca1/colaai-billing/internal/usecase"
)

// BillingHandler reúne os endpoints chamados pelo painel do tenant.
type BillingHandler struct {
	Checkout     *usecase.CardCheckoutUseCase
	ChangePlan   *usecase.ChangePlanUseCase
	PixSub       *usecase.PixSubscriptionUseCase
	PixBilling   *usecase.PixBillingUseCase
	Notify       *usecase.NotifyPaymentUseCase
	ForceSync    *usecase.ForceSyncUseCase
	Subscription *usecase.GetSubscriptionUseCase
	Override     *usecase.AdminOverrideUseCase
}

// POST /api/stripe/checkout
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var input usecase.PlanRequest
	if !decodeJSON(w, r, &input) {
		return
	}
	out, err := h.Checkout.Checkout(r.Context(), tenantOf(r), input)
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /api/stripe/portal
func (h *BillingHandler) Portal(w http.ResponseWriter, r *http.Request) {
	out, err := h.Checkout.Portal(r.Context(), tenantOf(r))
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /api/stripe/change-plan
func (h *BillingHandler) ChangeCardPlan(w http.ResponseWriter, r *http.Request) {
	var input usecase.PlanRequest
	if !decodeJSON(w, r, &input) {
		return
	}
	out, err := h.ChangePlan.Execute(r.Context(), tenantOf(r), input)
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /api/stripe/sync
func (h *BillingHandler) Sync(w http.ResponseWriter, r *http.Request) {
	out, err := h.ForceSync.Execute(r.Context(), tenantOf(r))
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /api/pix/create-subscription
func (h *BillingHandler) CreatePixSubscription(w http.ResponseWriter, r *http.Request) {
	var input usecase.PlanRequest
	if !decodeJSON(w, r, &input) {
		return
	}
	out, err := h.PixSub.Execute(r.Context(), tenantOf(r), input)
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /api/pix/notify-payment
func (h *BillingHandler) NotifyPayment(w http.ResponseWriter, r *http.Request) {
	var input usecase.NotifyPaymentInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if err := h.Notify.Execute(r.Context(), tenantOf(r), input); err != nil {
		writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Pagamento informado. Vamos confirmar em breve.",
	})
}

// POST /api/abacatepay/create-billing
func (h *BillingHandler) CreatePixBilling(w http.ResponseWriter, r *http.Request) {
	var input usecase.PlanRequest
	if !decodeJSON(w, r, &input) {
		return
	}
	out, err := h.PixBilling.CreateBilling(r.Context(), tenantOf(r), input)
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /api/abacatepay/check-status?billingId=
func (h *BillingHandler) CheckPixStatus(w http.ResponseWriter, r *http.Request) {
	out, err := h.PixBilling.CheckStatus(r.Context(), tenantOf(r), r.URL.Query().Get("billingId"))
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /api/subscription
func (h *BillingHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := h.Subscription.Execute(r.Context(), tenantOf(r))
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

// POST /api/admin/subscriptions/{tenantId}
func (h *BillingHandler) AdminOverride(w http.ResponseWriter, r *http.Request) {
	var input usecase.AdminOverrideInput
	if !decodeJSON(w, r, &input) {
		return
	}
	sub, err := h.Override.Execute(r.Context(), tenantOf(r), chi.URLParam(r, "tenantId"), input)
	if err != nil {
		writeUseCaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

func tenantOf(r *http.Request) entity.Tenant {
	t, _ := middleware.TenantFromContext(r.Context())
	return t
}

type SubscriptionResponse struct {
	*entity.Subscription
	PlanLabel string `json:"plan_label"`
	Live      bool   `json:"live"`
}

func toSubscriptionResponse(s *entity.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		Subscription: s,
		PlanLabel:    s.PlanType.Label(),
		Live:         s.Status.Live(),
	}
}
