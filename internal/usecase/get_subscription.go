package usecase

import (
	"context"

	"github.com/xavierca1/colaai-billing/internal/entity"
)

type GetSubscriptionUseCase struct {
	Subs entity.SubscriptionRepository
}

func NewGetSubscriptionUseCase(subs entity.SubscriptionRepository) *GetSubscriptionUseCase {
	return &GetSubscriptionUseCase{Subs: subs}
}

// Execute devolve entity.ErrSubscriptionNotFound quando o tenant nunca assinou.
func (uc *GetSubscriptionUseCase) Execute(ctx context.Context, tenant entity.Tenant) (*entity.Subscription, error) {
	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	return uc.Subs.FindByTenant(ctx, tenant.ID)
}
