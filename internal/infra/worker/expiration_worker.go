package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xavierca1/colaai-billing/internal/entity"
)

// Expirer é a parte do repositório que o worker precisa.
type Expirer interface {
	ExpireLapsed(ctx context.Context, now time.Time, pendingPixCutoff time.Time) ([]string, error)
}

// ExpirationWorker marca como expired as assinaturas não-cartão com período
// vencido e os pending_pix que ninguém pagou dentro da janela.
type ExpirationWorker struct {
	repo          Expirer
	pendingPixTTL time.Duration
	tickInterval  time.Duration
	now           func() time.Time
	onExpired     func(n int)
}

func NewExpirationWorker(repo Expirer, tickInterval, pendingPixTTL time.Duration) *ExpirationWorker {
	return &ExpirationWorker{
		repo:          repo,
		pendingPixTTL: pendingPixTTL,
		tickInterval:  tickInterval,
		now:           time.Now,
	}
}

// OnExpired registra um callback chamado com o total expirado em cada rodada.
func (w *ExpirationWorker) OnExpired(fn func(n int)) *ExpirationWorker {
	w.onExpired = fn
	return w
}

func (w *ExpirationWorker) Start(ctx context.Context) {
	log.Info().
		Dur("interval", w.tickInterval).
		Dur("pending_pix_ttl", w.pendingPixTTL).
		Msg("🕒 Expiration worker iniciado")

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("⚠️ Expiration worker encerrado")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce faz uma passada e devolve os tenants expirados.
func (w *ExpirationWorker) RunOnce(ctx context.Context) []string {
	now := w.now().UTC()
	tenants, err := w.repo.ExpireLapsed(ctx, now, now.Add(-w.pendingPixTTL))
	if err != nil {
		log.Error().Err(err).Msg("❌ Erro ao expirar assinaturas vencidas")
		return nil
	}

	for _, id := range tenants {
		log.Info().Str("tenant_id", id).Str("status", string(entity.StatusExpired)).Msg("⏱️ assinatura expirada")
	}
	if len(tenants) > 0 {
		log.Info().Int("count", len(tenants)).Msg("✅ assinaturas marcadas como expired")
	}
	if w.onExpired != nil {
		w.onExpired(len(tenants))
	}
	return tenants
}
