package entity

import "strings"

// Tenant é o dono da loja autenticado pelo token do Supabase.
type Tenant struct {
	ID    string
	Email string
	Name  string
	Phone string
	TaxID string
}

// DisplayName cai para a parte local do email quando o nome não veio no token.
func (t Tenant) DisplayName() string {
	if strings.TrimSpace(t.Name) != "" {
		return t.Name
	}
	if i := strings.Index(t.Email, "@"); i > 0 {
		return t.Email[:i]
	}
	return t.Email
}
