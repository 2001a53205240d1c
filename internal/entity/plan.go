package entity

import (
	"errors"
	"strings"
)

var (
	ErrInvalidPlanType     = errors.New("tipo de plano inválido")
	ErrInvalidPeriod       = errors.New("período de cobrança inválido")
	ErrPriceNotConfigured  = errors.New("preço do plano não configurado")
	ErrPlanPriceNotDefined = errors.New("valor PIX do plano não definido")
)

// PlanType é o código estável persistido em subscriptions.plan_type.
// Os rótulos com acento ficam só para exibição.
type PlanType string

const (
	PlanBasic        PlanType = "basic"
	PlanAdvanced     PlanType = "advanced"
	PlanProfessional PlanType = "professional"
)

var AllPlans = []PlanType{PlanBasic, PlanAdvanced, PlanProfessional}

var planLabels = map[PlanType]string{
	PlanBasic:        "Básico",
	PlanAdvanced:     "Avançado",
	PlanProfessional: "Profissional",
}

// Rótulos antigos que ainda chegam em metadata do Stripe/AbacatePay e no front.
// "avanã§ado" é o "Avançado" gravado com encoding quebrado.
var legacyPlanLabels = map[string]PlanType{
	"basic":        PlanBasic,
	"basico":       PlanBasic,
	"básico":       PlanBasic,
	"advanced":     PlanAdvanced,
	"avancado":     PlanAdvanced,
	"avançado":     PlanAdvanced,
	"avanã§ado":    PlanAdvanced,
	"professional": PlanProfessional,
	"profissional": PlanProfessional,
}

func ParsePlanType(raw string) (PlanType, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if plan, ok := legacyPlanLabels[key]; ok {
		return plan, nil
	}
	return "", ErrInvalidPlanType
}

func (p PlanType) Valid() bool {
	_, ok := planLabels[p]
	return ok
}

func (p PlanType) Label() string {
	if label, ok := planLabels[p]; ok {
		return label
	}
	return string(p)
}

type BillingPeriod string

const (
	PeriodMonthly BillingPeriod = "monthly"
	PeriodAnnual  BillingPeriod = "annual"
)

func ParseBillingPeriod(raw string) (BillingPeriod, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "monthly", "mensal":
		return PeriodMonthly, nil
	case "annual", "anual", "yearly":
		return PeriodAnnual, nil
	}
	return "", ErrInvalidPeriod
}

// Days devolve a duração do período usada para recalcular current_period_end.
func (b BillingPeriod) Days() int {
	if b == PeriodAnnual {
		return 365
	}
	return 30
}

func (b BillingPeriod) Label() string {
	if b == PeriodAnnual {
		return "Anual"
	}
	return "Mensal"
}

// Preços PIX em centavos (anual = 10 mensalidades).
var pixPriceCents = map[BillingPeriod]map[PlanType]int64{
	PeriodMonthly: {
		PlanBasic:        4900,
		PlanAdvanced:     7900,
		PlanProfessional: 14900,
	},
	PeriodAnnual: {
		PlanBasic:        49000,
		PlanAdvanced:     79000,
		PlanProfessional: 149000,
	},
}

func PixPriceCents(plan PlanType, period BillingPeriod) (int64, error) {
	prices, ok := pixPriceCents[period]
	if !ok {
		return 0, ErrInvalidPeriod
	}
	cents, ok := prices[plan]
	if !ok {
		return 0, ErrPlanPriceNotDefined
	}
	return cents, nil
}

// PriceCatalog liga cada plano ao price do provedor de cartão.
type PriceCatalog struct {
	byPlan  map[PlanType]string
	byPrice map[string]PlanType
}

func NewPriceCatalog(prices map[PlanType]string) *PriceCatalog {
	c := &PriceCatalog{
		byPlan:  make(map[PlanType]string, len(prices)),
		byPrice: make(map[string]PlanType, len(prices)),
	}
	for plan, price := range prices {
		price = strings.TrimSpace(price)
		if price == "" {
			continue
		}
		c.byPlan[plan] = price
		c.byPrice[price] = plan
	}
	return c
}

// PriceFor falha fechado: plano sem price configurado é erro, nunca um default.
func (c *PriceCatalog) PriceFor(plan PlanType) (string, error) {
	price, ok := c.byPlan[plan]
	if !ok {
		return "", ErrPriceNotConfigured
	}
	return price, nil
}

func (c *PriceCatalog) PlanFor(priceRef string) (PlanType, bool) {
	plan, ok := c.byPrice[priceRef]
	return plan, ok
}

// PlanForPixAmount acha plano e período pelo valor pago; último recurso quando
// a cobrança chega sem metadata.
func PlanForPixAmount(cents int64) (PlanType, BillingPeriod, bool) {
	for period, prices := range pixPriceCents {
		for plan, price := range prices {
			if price == cents {
				return plan, period, true
			}
		}
	}
	return "", "", false
}
