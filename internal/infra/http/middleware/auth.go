package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"github.com/xavierca1/colaai-billing/internal/entity"
)

type ctxKey int

const tenantKey ctxKey = iota

// SupabaseClaims são os campos do access token do Supabase que usamos.
type SupabaseClaims struct {
	Email        string         `json:"email"`
	Phone        string         `json:"phone"`
	UserMetadata map[string]any `json:"user_metadata"`
	jwt.RegisteredClaims
}

type Auth struct {
	secret      []byte
	adminEmails []string
}

func NewAuth(jwtSecret string, adminEmails []string) *Auth {
	return &Auth{secret: []byte(jwtSecret), adminEmails: adminEmails}
}

// RequireTenant valida o Bearer token (HS256) e põe o tenant no contexto.
func (a *Auth) RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant, err := a.authenticate(r)
		if err != nil {
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("token rejeitado")
			writeError(w, http.StatusUnauthorized, "Não autorizado")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), tenant)))
	})
}

// RequireAdmin precisa rodar depois de RequireTenant.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant, ok := TenantFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Não autorizado")
			return
		}
		if !a.IsAdmin(tenant.Email) {
			log.Warn().Str("tenant_id", tenant.ID).Msg("⛔ acesso admin negado")
			writeError(w, http.StatusForbidden, "Acesso negado")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Auth) IsAdmin(email string) bool {
	return email != "" && slices.Contains(a.adminEmails, strings.ToLower(email))
}

func (a *Auth) authenticate(r *http.Request) (entity.Tenant, error) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return entity.Tenant{}, errors.New("token ausente")
	}

	claims := &SupabaseClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("algoritmo inesperado: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return entity.Tenant{}, err
	}
	if claims.Subject == "" {
		return entity.Tenant{}, errors.New("token sem sub")
	}

	return entity.Tenant{
		ID:    claims.Subject,
		Email: claims.Email,
		Name:  metadataString(claims.UserMetadata, "full_name", "name"),
		Phone: firstNonEmpty(claims.Phone, metadataString(claims.UserMetadata, "phone")),
		TaxID: metadataString(claims.UserMetadata, "tax_id", "cpf_cnpj"),
	}, nil
}

func metadataString(md map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := md[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func WithTenant(ctx context.Context, t entity.Tenant) context.Context {
	return context.WithValue(ctx, tenantKey, t)
}

func TenantFromContext(ctx context.Context) (entity.Tenant, bool) {
	t, ok := ctx.Value(tenantKey).(entity.Tenant)
	return t, ok
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
