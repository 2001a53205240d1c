package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	stripesdk "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/xavierca1/colaai-billing/internal/entity"
	"github.com/xavierca1/colaai-billing/internal/usecase"
)

const provider = "stripe"

type Config struct {
	SecretKey     string
	WebhookSecret string
	Prices        map[entity.PlanType]string
	Timeout       time.Duration
	// BaseURL troca o endpoint da API (stripe-mock, httptest).
	BaseURL string
}

// Client implementa usecase.CardGateway sobre o stripe-go.
type Client struct {
	api           *client.API
	catalog       *entity.PriceCatalog
	webhookSecret string
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	backendCfg := &stripesdk.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripesdk.Int64(1),
		LeveledLogger:     &stripesdk.LeveledLogger{Level: stripesdk.LevelError},
	}
	if cfg.BaseURL != "" {
		backendCfg.URL = stripesdk.String(cfg.BaseURL)
		backendCfg.MaxNetworkRetries = stripesdk.Int64(0)
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, stripesdk.NewBackendsWithConfig(backendCfg))

	return &Client{
		api:           api,
		catalog:       entity.NewPriceCatalog(cfg.Prices),
		webhookSecret: cfg.WebhookSecret,
	}
}

func (c *Client) ResolvePrice(plan entity.PlanType) (string, error) {
	return c.catalog.PriceFor(plan)
}

func (c *Client) PlanForPrice(priceRef string) (entity.PlanType, bool) {
	return c.catalog.PlanFor(priceRef)
}

// GetOrCreateCustomer: ref já gravado > busca por metadata userId > cria.
func (c *Client) GetOrCreateCustomer(ctx context.Context, input usecase.CardCustomerInput) (string, error) {
	if input.KnownRef != "" {
		return input.KnownRef, nil
	}

	ref, err := c.searchByTenant(ctx, input.TenantID)
	if err != nil {
		return "", gatewayErr("search customer", err)
	}
	if ref != "" {
		return ref, nil
	}

	params := &stripesdk.CustomerParams{
		Email: stripesdk.String(input.Email),
		Name:  stripesdk.String(input.Name),
		Metadata: map[string]string{
			"userId": input.TenantID,
		},
	}
	params.Context = ctx
	cus, err := c.api.Customers.New(params)
	if err != nil {
		return "", gatewayErr("create customer", err)
	}

	log.Info().Str("tenant_id", input.TenantID).Str("stripe_customer_id", cus.ID).Msg("👤 cliente Stripe criado")
	return cus.ID, nil
}

// FindCustomer não cria: metadata userId primeiro, email como fallback. "" = não achou.
func (c *Client) FindCustomer(ctx context.Context, tenantID, email string) (string, error) {
	ref, err := c.searchByTenant(ctx, tenantID)
	if err != nil {
		return "", gatewayErr("search customer", err)
	}
	if ref != "" || email == "" {
		return ref, nil
	}

	params := &stripesdk.CustomerListParams{Email: stripesdk.String(email)}
	params.Context = ctx
	params.Limit = stripesdk.Int64(1)
	it := c.api.Customers.List(params)
	for it.Next() {
		return it.Customer().ID, nil
	}
	if err := it.Err(); err != nil {
		return "", gatewayErr("list customers", err)
	}
	return "", nil
}

func (c *Client) searchByTenant(ctx context.Context, tenantID string) (string, error) {
	if tenantID == "" {
		return "", nil
	}
	params := &stripesdk.CustomerSearchParams{
		SearchParams: stripesdk.SearchParams{
			Query:   fmt.Sprintf("metadata['userId']:'%s'", strings.ReplaceAll(tenantID, "'", "")),
			Context: ctx,
		},
	}
	it := c.api.Customers.Search(params)
	for it.Next() {
		return it.Customer().ID, nil
	}
	return "", it.Err()
}

func (c *Client) CreateSubscription(ctx context.Context, input usecase.CardSubscriptionInput) (*entity.CardSubscription, error) {
	params := &stripesdk.SubscriptionParams{
		Customer: stripesdk.String(input.CustomerRef),
		Items: []*stripesdk.SubscriptionItemsParams{
			{Price: stripesdk.String(input.PriceRef)},
		},
		Metadata: input.Metadata,
	}
	if input.TrialDays > 0 {
		params.TrialPeriodDays = stripesdk.Int64(input.TrialDays)
	}
	if input.Invoice {
		// sem cartão: gera fatura em vez de tentar cobrar automático
		params.CollectionMethod = stripesdk.String(string(stripesdk.SubscriptionCollectionMethodSendInvoice))
		params.DaysUntilDue = stripesdk.Int64(7)
	}
	params.Context = ctx
	params.AddExpand("items.data.price")

	sub, err := c.api.Subscriptions.New(params)
	if err != nil {
		return nil, gatewayErr("create subscription", err)
	}
	return fromSubscription(sub), nil
}

// CancelSubscription trata "já cancelada"/"não existe" como sucesso.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionRef string) error {
	params := &stripesdk.SubscriptionCancelParams{}
	params.Context = ctx
	_, err := c.api.Subscriptions.Cancel(subscriptionRef, params)
	if err == nil || alreadyCancelled(err) {
		return nil
	}
	return gatewayErr("cancel subscription", err)
}

func (c *Client) GetSubscription(ctx context.Context, subscriptionRef string) (*entity.CardSubscription, error) {
	params := &stripesdk.SubscriptionParams{}
	params.Context = ctx
	sub, err := c.api.Subscriptions.Get(subscriptionRef, params)
	if err != nil {
		return nil, gatewayErr("get subscription", err)
	}
	return fromSubscription(sub), nil
}

// ListSubscriptions devolve todas as assinaturas do cliente, mais recentes primeiro.
func (c *Client) ListSubscriptions(ctx context.Context, customerRef string) ([]entity.CardSubscription, error) {
	params := &stripesdk.SubscriptionListParams{
		Customer: stripesdk.String(customerRef),
		Status:   stripesdk.String("all"),
	}
	params.Context = ctx
	params.Limit = stripesdk.Int64(20)

	var out []entity.CardSubscription
	it := c.api.Subscriptions.List(params)
	for it.Next() {
		out = append(out, *fromSubscription(it.Subscription()))
	}
	if err := it.Err(); err != nil {
		return nil, gatewayErr("list subscriptions", err)
	}
	return out, nil
}

func (c *Client) ListLiveSubscriptions(ctx context.Context, customerRef string) ([]entity.CardSubscription, error) {
	all, err := c.ListSubscriptions(ctx, customerRef)
	if err != nil {
		return nil, err
	}
	live := all[:0]
	for _, s := range all {
		if s.Status == "active" || s.Status == "trialing" {
			live = append(live, s)
		}
	}
	return live, nil
}

func (c *Client) ChangeSubscriptionPrice(ctx context.Context, subscriptionRef, itemRef, priceRef string) (*entity.CardSubscription, error) {
	params := &stripesdk.SubscriptionParams{
		Items: []*stripesdk.SubscriptionItemsParams{
			{ID: stripesdk.String(itemRef), Price: stripesdk.String(priceRef)},
		},
		ProrationBehavior: stripesdk.String("create_prorations"),
	}
	params.Context = ctx
	sub, err := c.api.Subscriptions.Update(subscriptionRef, params)
	if err != nil {
		return nil, gatewayErr("update subscription", err)
	}
	return fromSubscription(sub), nil
}

func (c *Client) CreateCheckoutSession(ctx context.Context, input usecase.CheckoutSessionInput) (*usecase.CheckoutSession, error) {
	params := &stripesdk.CheckoutSessionParams{
		Customer:   stripesdk.String(input.CustomerRef),
		Mode:       stripesdk.String(string(stripesdk.CheckoutSessionModeSubscription)),
		SuccessURL: stripesdk.String(input.SuccessURL),
		CancelURL:  stripesdk.String(input.CancelURL),
		LineItems: []*stripesdk.CheckoutSessionLineItemParams{
			{Price: stripesdk.String(input.PriceRef), Quantity: stripesdk.Int64(1)},
		},
		SubscriptionData: &stripesdk.CheckoutSessionSubscriptionDataParams{
			Metadata: input.Metadata,
		},
		Metadata: input.Metadata,
	}
	if input.TrialDays > 0 {
		params.SubscriptionData.TrialPeriodDays = stripesdk.Int64(input.TrialDays)
	}
	if tenantID := input.Metadata["userId"]; tenantID != "" {
		params.ClientReferenceID = stripesdk.String(tenantID)
	}
	params.Context = ctx

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, gatewayErr("create checkout session", err)
	}
	return &usecase.CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (c *Client) CreatePortalSession(ctx context.Context, customerRef, returnURL string) (string, error) {
	params := &stripesdk.BillingPortalSessionParams{
		Customer:  stripesdk.String(customerRef),
		ReturnURL: stripesdk.String(returnURL),
	}
	params.Context = ctx
	s, err := c.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", gatewayErr("create portal session", err)
	}
	return s.URL, nil
}

func alreadyCancelled(err error) bool {
	var se *stripesdk.Error
	if !errors.As(err, &se) {
		return false
	}
	if se.Code == stripesdk.ErrorCodeResourceMissing {
		return true
	}
	msg := strings.ToLower(se.Msg)
	return strings.Contains(msg, "canceled") || strings.Contains(msg, "cancelled")
}

func gatewayErr(op string, err error) error {
	return &usecase.GatewayError{Provider: provider, Op: op, Err: err}
}
