package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Transaction é uma saga simples: se uma operação falha, as compensações das
// operações anteriores rodam em ordem inversa.
type Transaction struct {
	operations    []Operation
	compensations []Compensation
}

type Operation struct {
	Name string
	Fn   func(context.Context) error
}

type Compensation struct {
	Name string
	Fn   func(context.Context) error
}

func NewTransaction() *Transaction {
	return &Transaction{
		operations:    []Operation{},
		compensations: []Compensation{},
	}
}

// AddStep registra a operação e sua compensação (fn pode ser nil) no mesmo índice.
func (t *Transaction) AddStep(name string, op func(context.Context) error, compensate func(context.Context) error) {
	t.operations = append(t.operations, Operation{name, op})
	t.compensations = append(t.compensations, Compensation{"undo_" + name, compensate})
}

func (t *Transaction) Execute(ctx context.Context) error {
	for i, op := range t.operations {
		if err := op.Fn(ctx); err != nil {
			t.rollback(ctx, i)
			return fmt.Errorf("operation '%s' failed: %w (rolled back %d operations)", op.Name, err, i)
		}
	}
	return nil
}

func (t *Transaction) rollback(ctx context.Context, failedAtIndex int) {
	for i := failedAtIndex - 1; i >= 0; i-- {
		comp := t.compensations[i]
		if comp.Fn == nil {
			continue
		}
		if err := comp.Fn(ctx); err != nil {
			log.Warn().Err(err).Str("compensation", comp.Name).Msg("⚠️ compensação falhou, risco de inconsistência")
		}
	}
}
