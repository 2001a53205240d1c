package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	FixedAdminName = "ADM"
	FixedAdminPin  = "0001"
)

type Employee struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"user_id"`
	Name        string          `json:"name"`
	Role        string          `json:"role"`
	PinCode     string          `json:"pin_code"`
	IsActive    bool            `json:"is_active"`
	IsFixed     bool            `json:"is_fixed"`
	Permissions map[string]bool `json:"permissions"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewFixedAdmin monta o funcionário "ADM" criado na primeira ativação paga.
func NewFixedAdmin(tenantID string) *Employee {
	return &Employee{
		ID:       uuid.New().String(),
		TenantID: tenantID,
		Name:     FixedAdminName,
		Role:     "admin",
		PinCode:  FixedAdminPin,
		IsActive: true,
		IsFixed:  true,
		Permissions: map[string]bool{
			"orders":     true,
			"products":   true,
			"categories": true,
			"customers":  true,
			"reports":    true,
			"settings":   true,
			"employees":  true,
			"finance":    true,
		},
		CreatedAt: time.Now(),
	}
}

type EmployeeRepository interface {
	// EnsureFixedAdmin cria o ADM se ainda não existir; devolve true quando criou.
	EnsureFixedAdmin(ctx context.Context, e *Employee) (bool, error)
}
