package entity

import (
	"context"
	"time"
)

// UsedTrial registra que o tenant já consumiu o teste grátis de um plano.
// Nunca é apagado.
type UsedTrial struct {
	TenantID        string    `json:"user_id"`
	PlanType        PlanType  `json:"plan_type"`
	SubscriptionRef string    `json:"stripe_subscription_id"`
	UsedAt          time.Time `json:"used_at"`
}

type UsedTrialRepository interface {
	// Record é insert-if-absent em (tenant, plano); devolve true quando inseriu.
	// Numa linha já existente só preenche stripe_subscription_id se estiver vazio.
	Record(ctx context.Context, trial UsedTrial) (bool, error)
	Exists(ctx context.Context, tenantID string, plan PlanType) (bool, error)
}
