package database

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/colaai-billing/internal/entity"
)

func newMockRepo(t *testing.T) (*SubscriptionRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSubscriptionRepository(db), mock
}

func TestExpireLapsed_PendingPixKeepsPaidPeriod(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-72 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`AND (current_period_end IS NULL OR current_period_end < $2)`)).
		WithArgs(sqlmock.AnyArg(), now, cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("tenant-1").AddRow("tenant-2"))

	tenants, err := repo.ExpireLapsed(context.Background(), now, cutoff)

	require.NoError(t, err)
	assert.Equal(t, []string{"tenant-1", "tenant-2"}, tenants)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivate_SkipsRowAlreadyActive(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE subscriptions.status <> 'active'`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Activate(context.Background(), "tenant-1", entity.SubscriptionFields{
		Status: entity.Ptr(entity.StatusActive),
	})

	assert.ErrorIs(t, err, entity.ErrAlreadyActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_HasNoActiveGuard(t *testing.T) {
	query, args := buildUpsert("tenant-1", entity.SubscriptionFields{
		PlanType: entity.Ptr(entity.PlanBasic),
		Status:   entity.Ptr(entity.StatusPendingPix),
	}, "")

	assert.NotContains(t, query, "WHERE")
	assert.Contains(t, query, "plan_type = EXCLUDED.plan_type, status = EXCLUDED.status, updated_at = NOW()")
	require.Len(t, args, 4)
	assert.Equal(t, "tenant-1", args[1])
	assert.Equal(t, "pending_pix", args[3])
}
