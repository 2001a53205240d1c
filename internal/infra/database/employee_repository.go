package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xavierca1/colaai-billing/internal/entity"
)

type EmployeeRepository struct {
	DB *sql.DB
}

func NewEmployeeRepository(db *sql.DB) *EmployeeRepository {
	return &EmployeeRepository{DB: db}
}

// EnsureFixedAdmin se apoia no índice único parcial (user_id) WHERE is_fixed.
func (r *EmployeeRepository) EnsureFixedAdmin(ctx context.Context, e *entity.Employee) (bool, error) {
	perms, err := json.Marshal(e.Permissions)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO employees (id, user_id, name, role, pin_code, is_active, is_fixed, permissions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) WHERE is_fixed DO NOTHING`

	res, err := r.DB.ExecContext(ctx, query,
		e.ID,
		e.TenantID,
		e.Name,
		e.Role,
		e.PinCode,
		e.IsActive,
		e.IsFixed,
		perms,
		e.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, fmt.Errorf("falha ao criar funcionário ADM: %w", err)
	}

	n, _ := res.RowsAffected()
	return n > 0, nil
}
