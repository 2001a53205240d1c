package abacatepay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/colaai-billing/internal/usecase"
)

func TestClient_CreateBilling(t *testing.T) {
	var got createBillingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/billing/create", r.URL.Path)
		assert.Equal(t, "Bearer key_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"id":"bill_123","url":"https://abacatepay.com/pay/bill_123","amount":4900,"status":"pending","pix":{"qrCode":"000201"}},"error":null}`))
	}))
	defer srv.Close()

	c := NewClient("key_test", srv.URL, time.Second)
	b, err := c.CreateBilling(context.Background(), usecase.PixBillingInput{
		AmountCents: 4900,
		ProductName: "Cola Aí - Plano Básico",
		ExternalID:  "colaai-tenant-1-basic-monthly",
		ReturnURL:   "https://app/dashboard",
		Customer:    usecase.PixCustomer{Name: "Zé", Email: "ze@x.com", Cellphone: "11999999999"},
		Metadata:    map[string]string{"userId": "tenant-1"},
	})

	require.NoError(t, err)
	assert.Equal(t, "bill_123", b.Ref)
	assert.Equal(t, "PENDING", b.Status)
	assert.Equal(t, "000201", b.QRCode)

	assert.Equal(t, "ONE_TIME", got.Frequency)
	assert.Equal(t, []string{"PIX"}, got.Methods)
	require.Len(t, got.Products, 1)
	assert.Equal(t, int64(4900), got.Products[0].Price)
	require.NotNil(t, got.Customer)
	assert.Equal(t, "ze@x.com", got.Customer.Email)
	assert.Equal(t, "tenant-1", got.Metadata["userId"])
}

func TestClient_GetBilling_BareObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/billing/bill_1", r.URL.Path)
		w.Write([]byte(`{"id":"bill_1","amount":7900,"status":"PAID","metadata":{"planType":"advanced"}}`))
	}))
	defer srv.Close()

	b, err := NewClient("k", srv.URL, time.Second).GetBilling(context.Background(), "bill_1")

	require.NoError(t, err)
	assert.Equal(t, usecase.PixStatusPaid, b.Status)
	assert.Equal(t, int64(7900), b.AmountCents)
	assert.Equal(t, "advanced", b.Metadata["planType"])
}

func TestClient_GetBilling_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient("k", srv.URL, time.Second).GetBilling(context.Background(), "nope")
	assert.ErrorIs(t, err, usecase.ErrBillingNotFound)
}

func TestClient_ProviderErrorIsGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal"}`))
	}))
	defer srv.Close()

	_, err := NewClient("k", srv.URL, time.Second).CreateBilling(context.Background(), usecase.PixBillingInput{AmountCents: 100})

	var ge *usecase.GatewayError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "abacatepay", ge.Provider)
}
