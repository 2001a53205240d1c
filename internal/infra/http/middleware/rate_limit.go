package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xavierca1/colaai-billing/internal/infra/cache"
)

// RateLimit limita por tenant autenticado, ou por IP quando não há tenant.
// Se o backend de limite cair, a requisição passa (fail-open) e loga.
func RateLimit(limiter cache.Limiter, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := scope + ":ip:" + ClientIP(r)
			if t, ok := TenantFromContext(r.Context()); ok {
				key = scope + ":tenant:" + t.ID
			}

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				log.Warn().Err(err).Str("scope", scope).Msg("⚠️ rate limiter indisponível, liberando")
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				rateLimited.WithLabelValues(scope).Inc()
				writeError(w, http.StatusTooManyRequests, "Muitas requisições. Tente novamente em instantes.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP usa X-Forwarded-For / X-Real-IP antes do RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xr := strings.TrimSpace(r.Header.Get("X-Real-IP")); xr != "" {
		return xr
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
