package usecase

import (
	"errors"
	"fmt"
)

type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

// GatewayError embrulha falhas de provedor (Stripe, AbacatePay, Telegram).
// Nada é gravado no banco quando ela sobe.
type GatewayError struct {
	Provider string
	Op       string
	Err      error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: %s falhou: %v", e.Provider, e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func IsGatewayError(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}

var (
	ErrBillingNotFound = errors.New("cobrança não encontrada")
	ErrForbidden       = errors.New("acesso negado")
)
