package usecase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xavierca1/colaai-billing/internal/entity"
)

var validate = validator.New()

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateStruct roda as tags `validate` e devolve a lista no formato da API.
func ValidateStruct(input any) []ValidationError {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationError{{"body", err.Error()}}
	}

	var out []ValidationError
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   lowerFirst(fe.Field()),
			Message: describeTag(fe),
		})
	}
	return out
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without_all":
		return "is required when priceId is missing"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	}
	return "is invalid"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func validationFailed(errs []ValidationError) *DomainError {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Field+" ("+e.Message+")")
	}
	return &DomainError{
		Code:    "VALIDATION_ERROR",
		Message: "validation failed: " + strings.Join(parts, ", "),
	}
}

// PriceLookup resolve um price do provedor de cartão para o plano.
type PriceLookup interface {
	PlanForPrice(priceRef string) (entity.PlanType, bool)
}

// parsePlanRequest valida o corpo e normaliza plano e período. planType tem
// precedência; sem ele o price só vale se estiver no catálogo (prices nil = não aceita).
func parsePlanRequest(input PlanRequest, prices PriceLookup) (entity.PlanType, entity.BillingPeriod, error) {
	if errs := ValidateStruct(input); len(errs) > 0 {
		return "", "", validationFailed(errs)
	}

	invalid := &DomainError{Code: "INVALID_PLAN", Message: "Tipo de plano inválido"}
	var plan entity.PlanType
	if strings.TrimSpace(input.PlanType) != "" {
		p, err := entity.ParsePlanType(input.PlanType)
		if err != nil {
			return "", "", invalid
		}
		plan = p
	} else {
		priceRef := input.PriceID
		if priceRef == "" {
			priceRef = input.NewPriceID
		}
		if prices == nil {
			return "", "", invalid
		}
		p, ok := prices.PlanForPrice(strings.TrimSpace(priceRef))
		if !ok {
			return "", "", invalid
		}
		plan = p
	}

	period, err := entity.ParseBillingPeriod(input.BillingPeriod)
	if err != nil {
		return "", "", &DomainError{Code: "INVALID_PERIOD", Message: "Período de cobrança inválido"}
	}

	return plan, period, nil
}

func requireTenant(t entity.Tenant) error {
	if strings.TrimSpace(t.ID) == "" || strings.TrimSpace(t.Email) == "" {
		return &DomainError{Code: "UNAUTHORIZED", Message: "Não autorizado"}
	}
	return nil
}
