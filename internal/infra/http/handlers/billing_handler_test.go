package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/colaai-billing/internal/entity"
	"github.com/xavierca1/colaai-billing/internal/infra/http/middleware"
	"github.com/xavierca1/colaai-billing/internal/usecase"
)

// stubSubs só implementa o que o GET /api/subscription usa.
type stubSubs struct {
	entity.SubscriptionRepository
	rows map[string]*entity.Subscription
}

func (s *stubSubs) FindByTenant(_ context.Context, tenantID string) (*entity.Subscription, error) {
	if sub, ok := s.rows[tenantID]; ok {
		return sub, nil
	}
	return nil, entity.ErrSubscriptionNotFound
}

func newSubscriptionHandler(rows map[string]*entity.Subscription) *BillingHandler {
	return &BillingHandler{Subscription: usecase.NewGetSubscriptionUseCase(&stubSubs{rows: rows})}
}

func requestAs(tenant entity.Tenant, method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	return req.WithContext(middleware.WithTenant(req.Context(), tenant))
}

var padaria = entity.Tenant{ID: "tenant-1", Email: "dono@padaria.com.br"}

func TestGetSubscription_OK(t *testing.T) {
	h := newSubscriptionHandler(map[string]*entity.Subscription{
		"tenant-1": {
			TenantID:      "tenant-1",
			PlanType:      entity.PlanAdvanced,
			Status:        entity.StatusActive,
			PaymentMethod: entity.PaymentPix,
		},
	})
	rec := httptest.NewRecorder()

	h.GetSubscription(rec, requestAs(padaria, http.MethodGet, "/api/subscription", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "advanced", out["plan_type"])
	assert.Equal(t, "Avançado", out["plan_label"])
	assert.Equal(t, true, out["live"])
}

func TestGetSubscription_NotFound(t *testing.T) {
	h := newSubscriptionHandler(nil)
	rec := httptest.NewRecorder()

	h.GetSubscription(rec, requestAs(padaria, http.MethodGet, "/api/subscription", ""))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSubscription_NoTenant(t *testing.T) {
	h := newSubscriptionHandler(nil)
	rec := httptest.NewRecorder()

	h.GetSubscription(rec, httptest.NewRequest(http.MethodGet, "/api/subscription", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var out ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "UNAUTHORIZED", out.Error)
}

func TestDecodeJSON_Invalid(t *testing.T) {
	h := &BillingHandler{}
	rec := httptest.NewRecorder()

	h.AdminOverride(rec, requestAs(padaria, http.MethodPost, "/api/admin/subscriptions/x", `{"status":`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_JSON")
}
