package usecase

import (
	"context"

	"github.com/xavierca1/colaai-billing/internal/entity"
	"github.com/xavierca1/colaai-billing/internal/infra/queue"
)

// CardGateway é o provedor de cobrança recorrente por cartão (Stripe).
type CardGateway interface {
	ResolvePrice(plan entity.PlanType) (string, error)
	PlanForPrice(priceRef string) (entity.PlanType, bool)

	GetOrCreateCustomer(ctx context.Context, input CardCustomerInput) (string, error)
	FindCustomer(ctx context.Context, tenantID, email string) (string, error)

	CreateSubscription(ctx context.Context, input CardSubscriptionInput) (*entity.CardSubscription, error)
	CancelSubscription(ctx context.Context, subscriptionRef string) error
	GetSubscription(ctx context.Context, subscriptionRef string) (*entity.CardSubscription, error)
	ListSubscriptions(ctx context.Context, customerRef string) ([]entity.CardSubscription, error)
	ListLiveSubscriptions(ctx context.Context, customerRef string) ([]entity.CardSubscription, error)
	ChangeSubscriptionPrice(ctx context.Context, subscriptionRef, itemRef, priceRef string) (*entity.CardSubscription, error)

	CreateCheckoutSession(ctx context.Context, input CheckoutSessionInput) (*CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerRef, returnURL string) (string, error)
}

// PixGateway é o provedor PIX (AbacatePay).
type PixGateway interface {
	CreateBilling(ctx context.Context, input PixBillingInput) (*PixBilling, error)
	GetBilling(ctx context.Context, billingRef string) (*PixBilling, error)
}

type QueueProducerInterface interface {
	PublishActivation(ctx context.Context, payload queue.ActivationPayload) error
}

// AdminNotifier avisa o dono do sistema (Telegram) sobre movimentações PIX.
type AdminNotifier interface {
	NotifyPixPayment(ctx context.Context, n queue.PixNotification) error
}
