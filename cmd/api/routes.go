package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/colaai-billing/internal/config"
	"github.com/xavierca1/colaai-billing/internal/infra/cache"
	"github.com/xavierca1/colaai-billing/internal/infra/http/handlers"
	"github.com/xavierca1/colaai-billing/internal/infra/http/middleware"
)

type routes struct {
	auth        *middleware.Auth
	limiter     cache.Limiter
	billing     *handlers.BillingHandler
	health      *handlers.HealthHandler
	stripeHook  *handlers.StripeWebhookHandler
	pixHook     *handlers.AbacatePayWebhookHandler
	reverseSync *handlers.ReverseSyncHandler
}

func newRouter(cfg *config.Config, rt routes) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", rt.health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	// Webhooks: autenticados pela assinatura do provedor, sem JWT.
	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(30 * time.Second))
		r.Post("/api/stripe/webhook", rt.stripeHook.Handle)
		r.Post("/api/webhooks/abacatepay", rt.pixHook.Handle)
		r.Post("/api/stripe/reverse-sync", rt.reverseSync.Handle)
	})

	r.Group(func(r chi.Router) {
		r.Use(rt.auth.RequireTenant)
		r.Use(middleware.RateLimit(rt.limiter, "api"))

		r.Get("/api/subscription", rt.billing.GetSubscription)

		r.Post("/api/stripe/checkout", rt.billing.CreateCheckout)
		r.Post("/api/stripe/change-plan", rt.billing.ChangeCardPlan)
		r.Post("/api/stripe/sync", rt.billing.Sync)
		r.Post("/api/stripe/portal", rt.billing.Portal)

		r.Post("/api/pix/create-subscription", rt.billing.CreatePixSubscription)
		r.Post("/api/pix/notify-payment", rt.billing.NotifyPayment)

		r.Post("/api/abacatepay/create-billing", rt.billing.CreatePixBilling)
		r.Get("/api/abacatepay/check-status", rt.billing.CheckPixStatus)

		r.With(rt.auth.RequireAdmin).Post("/api/admin/subscriptions/{tenantId}", rt.billing.AdminOverride)
	})

	return r
}
