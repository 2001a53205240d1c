package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xavierca1/colaai-billing/internal/entity"
)

// TrialPolicy concede no máximo um teste grátis por (tenant, plano).
// A reserva é gravada em used_trials antes de pedir o trial ao provedor,
// então um retry da mesma requisição nunca ganha um segundo teste.
type TrialPolicy struct {
	Days   int64
	Trials entity.UsedTrialRepository
	Now    func() time.Time
}

func NewTrialPolicy(days int64, trials entity.UsedTrialRepository) *TrialPolicy {
	return &TrialPolicy{Days: days, Trials: trials, Now: time.Now}
}

// Reserve devolve os dias de trial a pedir ao provedor (0 se já usado).
// ref é o identificador conhecido no momento (sessão/assinatura), pode ser vazio.
func (p *TrialPolicy) Reserve(ctx context.Context, tenantID string, plan entity.PlanType, ref string) (int64, error) {
	if p == nil || p.Days <= 0 {
		return 0, nil
	}

	used, err := p.Trials.Exists(ctx, tenantID, plan)
	if err != nil {
		return 0, fmt.Errorf("erro ao consultar used_trials: %w", err)
	}
	if used {
		log.Info().Str("tenant_id", tenantID).Str("plan", string(plan)).Msg("trial já utilizado para o plano")
		return 0, nil
	}

	inserted, err := p.Trials.Record(ctx, entity.UsedTrial{
		TenantID:        tenantID,
		PlanType:        plan,
		SubscriptionRef: ref,
		UsedAt:          p.Now(),
	})
	if err != nil {
		return 0, fmt.Errorf("erro ao registrar used_trial: %w", err)
	}
	if !inserted {
		// outra requisição concorrente reservou primeiro
		return 0, nil
	}
	return p.Days, nil
}

// Confirm liga a reserva ao identificador definitivo da assinatura no provedor.
func (p *TrialPolicy) Confirm(ctx context.Context, tenantID string, plan entity.PlanType, ref string) {
	if p == nil || ref == "" {
		return
	}
	if _, err := p.Trials.Record(ctx, entity.UsedTrial{
		TenantID:        tenantID,
		PlanType:        plan,
		SubscriptionRef: ref,
		UsedAt:          p.Now(),
	}); err != nil {
		log.Warn().Err(err).Str("tenant_id", tenantID).Msg("⚠️ não foi possível vincular a assinatura ao used_trial")
	}
}
