package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xavierca1/colaai-billing/internal/entity"
)

type UsedTrialRepository struct {
	DB *sql.DB
}

func NewUsedTrialRepository(db *sql.DB) *UsedTrialRepository {
	return &UsedTrialRepository{DB: db}
}

// Record usa xmax = 0 pra saber se a linha foi inserida agora ou já existia.
func (r *UsedTrialRepository) Record(ctx context.Context, t entity.UsedTrial) (bool, error) {
	query := `
		INSERT INTO used_trials (user_id, plan_type, stripe_subscription_id, used_at)
		VALUES ($1, $2, NULLIF($3, ''), $4)
		ON CONFLICT (user_id, plan_type) DO UPDATE
		SET stripe_subscription_id = COALESCE(used_trials.stripe_subscription_id, EXCLUDED.stripe_subscription_id)
		RETURNING (xmax = 0)`

	var inserted bool
	err := r.DB.QueryRowContext(ctx, query, t.TenantID, string(t.PlanType), t.SubscriptionRef, t.UsedAt).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("falha ao registrar used_trial: %w", err)
	}
	return inserted, nil
}

func (r *UsedTrialRepository) Exists(ctx context.Context, tenantID string, plan entity.PlanType) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM used_trials WHERE user_id = $1 AND plan_type = $2)`,
		tenantID, string(plan),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("falha ao consultar used_trials: %w", err)
	}
	return exists, nil
}
