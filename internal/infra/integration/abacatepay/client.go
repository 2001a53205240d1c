package abacatepay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xavierca1/colaai-billing/internal/usecase"
)

const (
	DefaultBaseURL = "https://api.abacatepay.com/v1"
	provider       = "abacatepay"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// CreateBilling cria uma cobrança PIX avulsa (ONE_TIME) com um único produto.
func (c *Client) CreateBilling(ctx context.Context, input usecase.PixBillingInput) (*usecase.PixBilling, error) {
	payload := createBillingRequest{
		Frequency: "ONE_TIME",
		Methods:   []string{"PIX"},
		Products: []product{{
			ExternalID:  input.ExternalID,
			Name:        input.ProductName,
			Description: input.Description,
			Quantity:    1,
			Price:       input.AmountCents,
		}},
		ReturnURL:     input.ReturnURL,
		CompletionURL: input.CompletionURL,
		Metadata:      input.Metadata,
	}
	if input.Customer.Email != "" {
		payload.Customer = &customer{
			Name:      input.Customer.Name,
			Email:     input.Customer.Email,
			Cellphone: input.Customer.Cellphone,
			TaxID:     input.Customer.TaxID,
		}
	}

	b, err := c.do(ctx, http.MethodPost, "/billing/create", payload)
	if err != nil {
		return nil, &usecase.GatewayError{Provider: provider, Op: "create billing", Err: err}
	}
	return toPixBilling(b), nil
}

func (c *Client) GetBilling(ctx context.Context, billingRef string) (*usecase.PixBilling, error) {
	b, err := c.do(ctx, http.MethodGet, "/billing/"+billingRef, nil)
	if errors.Is(err, errNotFound) {
		return nil, usecase.ErrBillingNotFound
	}
	if err != nil {
		return nil, &usecase.GatewayError{Provider: provider, Op: "get billing", Err: err}
	}
	return toPixBilling(b), nil
}

var errNotFound = errors.New("cobrança não existe no provedor")

func (c *Client) do(ctx context.Context, method, path string, body any) (*billing, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("erro ao gerar json: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("erro na conexão com abacatepay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Error().Int("status", resp.StatusCode).Str("path", path).Str("body", string(raw)).Msg("❌ erro na API AbacatePay")
		return nil, fmt.Errorf("api abacatepay rejeitou (status %d)", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("erro ao ler resposta abacatepay: %w", err)
	}
	if env.Error != nil && env.Data == nil && env.Billing == nil {
		return nil, fmt.Errorf("abacatepay: %v", env.Error)
	}
	return env.unwrap(), nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "ColaAiBilling/1.0")
}

func toPixBilling(b *billing) *usecase.PixBilling {
	out := &usecase.PixBilling{
		Ref:         b.ID,
		URL:         b.URL,
		Status:      strings.ToUpper(b.Status),
		AmountCents: b.Amount,
		Metadata:    b.Metadata,
	}
	if b.Pix != nil {
		out.QRCode = b.Pix.QRCode
		out.QRCodeBase64 = b.Pix.QRCodeBase64
		out.ExpiresAt = b.Pix.ExpiresAt
	}
	return out
}
