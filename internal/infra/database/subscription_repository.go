package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/xavierca1/colaai-billing/internal/entity"
)

type SubscriptionRepository struct {
	DB *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{DB: db}
}

const subscriptionColumns = `
	id,
	user_id,
	plan_type,
	status,
	billing_period,
	payment_method,
	COALESCE(stripe_customer_id, ''),
	COALESCE(stripe_subscription_id, ''),
	COALESCE(stripe_price_id, ''),
	COALESCE(abacatepay_billing_id, ''),
	trial_ends_at,
	current_period_start,
	current_period_end,
	stripe_current_period_end,
	sync_source,
	last_synced_at,
	created_at,
	updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*entity.Subscription, error) {
	var s entity.Subscription
	err := row.Scan(
		&s.ID,
		&s.TenantID,
		&s.PlanType,
		&s.Status,
		&s.BillingPeriod,
		&s.PaymentMethod,
		&s.CardCustomerRef,
		&s.CardSubscriptionRef,
		&s.CardPriceRef,
		&s.PixBillingRef,
		&s.TrialEndsAt,
		&s.CurrentPeriodStart,
		&s.CurrentPeriodEnd,
		&s.CardCurrentPeriodEnd,
		&s.SyncSource,
		&s.LastSyncedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert faz INSERT ... ON CONFLICT (user_id) DO UPDATE só com as colunas do patch.
// Na inserção, colunas fora do patch caem nos defaults da tabela.
func (r *SubscriptionRepository) Upsert(ctx context.Context, tenantID string, f entity.SubscriptionFields) (*entity.Subscription, error) {
	query, args := buildUpsert(tenantID, f, "")
	sub, err := scanSubscription(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("falha no upsert da assinatura: %w", err)
	}
	return sub, nil
}

// Activate só atualiza se a linha ainda não está active, numa instrução só:
// webhook e poll simultâneos não ativam duas vezes.
func (r *SubscriptionRepository) Activate(ctx context.Context, tenantID string, f entity.SubscriptionFields) (*entity.Subscription, error) {
	query, args := buildUpsert(tenantID, f, "subscriptions.status <> 'active'")
	sub, err := scanSubscription(r.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, entity.ErrSubscriptionNotFound) {
		return nil, entity.ErrAlreadyActive
	}
	if err != nil {
		return nil, fmt.Errorf("falha ao ativar assinatura: %w", err)
	}
	return sub, nil
}

func buildUpsert(tenantID string, f entity.SubscriptionFields, guard string) (string, []any) {
	cols := []string{"id", "user_id"}
	args := []any{uuid.New().String(), tenantID}
	var updates []string

	set := func(col string, v any) {
		args = append(args, v)
		cols = append(cols, col)
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}

	if f.PlanType != nil {
		set("plan_type", string(*f.PlanType))
	}
	if f.Status != nil {
		set("status", string(*f.Status))
	}
	if f.BillingPeriod != nil {
		set("billing_period", string(*f.BillingPeriod))
	}
	if f.PaymentMethod != nil {
		set("payment_method", string(*f.PaymentMethod))
	}
	if f.CardCustomerRef != nil {
		set("stripe_customer_id", nullIfEmpty(*f.CardCustomerRef))
	}
	if f.CardSubscriptionRef != nil {
		set("stripe_subscription_id", nullIfEmpty(*f.CardSubscriptionRef))
	}
	if f.CardPriceRef != nil {
		set("stripe_price_id", nullIfEmpty(*f.CardPriceRef))
	}
	if f.PixBillingRef != nil {
		set("abacatepay_billing_id", nullIfEmpty(*f.PixBillingRef))
	}
	switch {
	case f.TrialEndsAt != nil:
		set("trial_ends_at", *f.TrialEndsAt)
	case f.ClearTrialEndsAt:
		set("trial_ends_at", nil)
	}
	if f.CurrentPeriodStart != nil {
		set("current_period_start", *f.CurrentPeriodStart)
	}
	if f.CurrentPeriodEnd != nil {
		set("current_period_end", *f.CurrentPeriodEnd)
	}
	if f.CardCurrentPeriodEnd != nil {
		set("stripe_current_period_end", *f.CardCurrentPeriodEnd)
	}
	if f.SyncSource != nil {
		set("sync_source", string(*f.SyncSource))
	}
	if f.LastSyncedAt != nil {
		set("last_synced_at", *f.LastSyncedAt)
	}

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	updates = append(updates, "updated_at = NOW()")

	where := ""
	if guard != "" {
		where = "\n\t\tWHERE " + guard
	}

	query := fmt.Sprintf(`
		INSERT INTO subscriptions (%s)
		VALUES (%s)
		ON CONFLICT (user_id) DO UPDATE SET %s%s
		RETURNING %s`,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
		where,
		subscriptionColumns,
	)
	return query, args
}

func (r *SubscriptionRepository) FindByTenant(ctx context.Context, tenantID string) (*entity.Subscription, error) {
	return r.findOne(ctx, "user_id = $1", tenantID)
}

func (r *SubscriptionRepository) FindByPixBillingRef(ctx context.Context, billingRef string) (*entity.Subscription, error) {
	return r.findOne(ctx, "abacatepay_billing_id = $1", billingRef)
}

func (r *SubscriptionRepository) FindByCardCustomerRef(ctx context.Context, customerRef string) (*entity.Subscription, error) {
	return r.findOne(ctx, "stripe_customer_id = $1", customerRef)
}

func (r *SubscriptionRepository) findOne(ctx context.Context, where string, arg string) (*entity.Subscription, error) {
	if strings.TrimSpace(arg) == "" {
		return nil, entity.ErrSubscriptionNotFound
	}
	query := fmt.Sprintf(`SELECT %s FROM subscriptions WHERE %s ORDER BY updated_at DESC LIMIT 1`, subscriptionColumns, where)
	return scanSubscription(r.DB.QueryRowContext(ctx, query, arg))
}

// MarkSyncSource grava só sync_source (e last_synced_at quando informado).
func (r *SubscriptionRepository) MarkSyncSource(ctx context.Context, tenantID string, source entity.SyncSource, syncedAt *time.Time) error {
	query := `
		UPDATE subscriptions
		SET sync_source = $1,
		    last_synced_at = COALESCE($2, last_synced_at)
		WHERE user_id = $3`

	res, err := r.DB.ExecContext(ctx, query, string(source), syncedAt, tenantID)
	if err != nil {
		return fmt.Errorf("falha ao marcar sync_source: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrSubscriptionNotFound
	}
	return nil
}

// expireLapsedQuery espelha entity.Subscription.Lapsed. Um pending_pix de
// renovação antecipada só expira depois que o período pago acabou.
const expireLapsedQuery = `
		UPDATE subscriptions
		SET status = 'expired', sync_source = 'local', updated_at = NOW()
		WHERE (status = ANY($1) AND payment_method <> 'card' AND current_period_end < $2)
		   OR (status = 'pending_pix' AND updated_at < $3
		       AND (current_period_end IS NULL OR current_period_end < $2))
		RETURNING user_id`

// ExpireLapsed expira acesso vencido fora do cartão (o Stripe cuida dos de cartão)
// e cobranças PIX pendentes há mais tempo que o cutoff. Devolve os tenants afetados.
func (r *SubscriptionRepository) ExpireLapsed(ctx context.Context, now time.Time, pendingPixCutoff time.Time) ([]string, error) {
	live := []string{string(entity.StatusActive), string(entity.StatusTrial)}
	rows, err := r.DB.QueryContext(ctx, expireLapsedQuery, pq.Array(live), now, pendingPixCutoff)
	if err != nil {
		return nil, fmt.Errorf("falha ao expirar assinaturas: %w", err)
	}
	defer rows.Close()

	var tenants []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		tenants = append(tenants, id)
	}
	return tenants, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
