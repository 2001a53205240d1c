package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/xavierca1/colaai-billing/internal/config"
	"github.com/xavierca1/colaai-billing/internal/infra/cache"
	"github.com/xavierca1/colaai-billing/internal/infra/database"
	"github.com/xavierca1/colaai-billing/internal/infra/http/handlers"
	"github.com/xavierca1/colaai-billing/internal/infra/http/middleware"
	"github.com/xavierca1/colaai-billing/internal/infra/integration/abacatepay"
	"github.com/xavierca1/colaai-billing/internal/infra/integration/stripe"
	"github.com/xavierca1/colaai-billing/internal/infra/integration/telegram"
	"github.com/xavierca1/colaai-billing/internal/infra/integration/whatsapp"
	"github.com/xavierca1/colaai-billing/internal/infra/mail"
	"github.com/xavierca1/colaai-billing/internal/infra/queue"
	"github.com/xavierca1/colaai-billing/internal/infra/worker"
	"github.com/xavierca1/colaai-billing/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuração inválida")
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DBAutoMigrate {
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatal().Err(err).Msg("❌ falha nas migrations")
		}
		log.Info().Msg("📦 migrations aplicadas")
	}

	db, err := database.NewDBConnection(ctx, cfg.DatabaseURL, database.DefaultPool)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ falha ao conectar no banco")
	}
	defer db.Close()

	// 1. Repositórios
	subRepo := database.NewSubscriptionRepository(db)
	trialRepo := database.NewUsedTrialRepository(db)
	employeeRepo := database.NewEmployeeRepository(db)

	// 2. Gateways
	stripeClient := stripe.NewClient(stripe.Config{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		Prices:        cfg.StripePrices,
		Timeout:       cfg.StripeTimeout,
	})
	pixClient := abacatepay.NewClient(cfg.AbacatePayAPIKey, cfg.AbacatePayBaseURL, cfg.PixTimeout)
	telegramClient := telegram.NewClient(cfg.TelegramBotToken, cfg.TelegramChatID, "")
	whatsappClient := whatsapp.NewClient(whatsapp.Config{
		AccessToken: cfg.WhatsAppAccessToken,
		PhoneID:     cfg.WhatsAppPhoneID,
		AdminPhone:  cfg.WhatsAppAdminPhone,
		Template:    cfg.WhatsAppTemplate,
	})
	mailSender := mail.NewEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.MailFrom, cfg.AppURL+"/dashboard")

	// 3. Fila de ativação (opcional em dev)
	var producer usecase.QueueProducerInterface = queue.NoopProducer{}
	var rabbitMQ *queue.RabbitMQ
	if cfg.RabbitMQURL != "" {
		rabbitMQ, err = queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			log.Fatal().Err(err).Msg("❌ falha ao conectar no RabbitMQ")
		}
		defer rabbitMQ.Close()
		producer = queue.NewProducer(rabbitMQ.Ch)

		subscribers := []queue.ActivationSubscriber{telegramClient, whatsappClient}
		if cfg.SMTPHost != "" {
			subscribers = append(subscribers, mailSender)
		}
		consumerCh, err := rabbitMQ.Conn.Channel()
		if err != nil {
			log.Fatal().Err(err).Msg("❌ falha ao abrir canal do consumer")
		}
		go func() {
			if err := queue.NewWorker(consumerCh, subscribers...).Start(ctx, queue.QueueName); err != nil {
				log.Error().Err(err).Msg("❌ worker de ativação parou")
			}
		}()
	} else {
		log.Warn().Msg("⚠️ RABBITMQ_URL vazio, eventos de ativação não serão publicados")
	}

	// 4. Rate limit compartilhado
	var limiter cache.Limiter
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("❌ falha ao conectar no Redis")
		}
		defer redisClient.Close()
		limiter = cache.NewRedisLimiter(redisClient, "ratelimit", int64(cfg.RateLimit), cfg.RateLimitWindow)
	} else {
		log.Warn().Msg("⚠️ REDIS_URL vazio, rate limit em memória (por instância)")
		limiter = cache.NewMemoryLimiter(ctx, cfg.RateLimit, cfg.RateLimitWindow)
	}

	// 5. UseCases
	trials := usecase.NewTrialPolicy(cfg.TrialDays, trialRepo)
	activator := usecase.NewActivatePixBillingUseCase(subRepo, employeeRepo, producer)
	billing := &handlers.BillingHandler{
		Checkout:     usecase.NewCardCheckoutUseCase(subRepo, stripeClient, trials, cfg.AppURL),
		ChangePlan:   usecase.NewChangePlanUseCase(subRepo, stripeClient, trials),
		PixSub:       usecase.NewPixSubscriptionUseCase(subRepo, stripeClient, trials, telegramClient),
		PixBilling:   usecase.NewPixBillingUseCase(subRepo, pixClient, activator, cfg.AppURL),
		Notify:       usecase.NewNotifyPaymentUseCase(telegramClient),
		ForceSync:    usecase.NewForceSyncUseCase(subRepo, stripeClient),
		Subscription: usecase.NewGetSubscriptionUseCase(subRepo),
		Override:     usecase.NewAdminOverrideUseCase(subRepo),
	}

	// 6. Worker de expiração
	go worker.NewExpirationWorker(subRepo, cfg.ExpirationInterval, cfg.PendingPixTTL).
		OnExpired(middleware.RecordExpired).
		Start(ctx)

	// 7. Handlers e rotas
	var rabbitConn *amqp.Connection
	if rabbitMQ != nil {
		rabbitConn = rabbitMQ.Conn
	}
	health := handlers.NewHealthHandler(db, rabbitConn, redisClient, map[string]bool{
		"stripe":     cfg.StripeSecretKey != "",
		"abacatepay": cfg.AbacatePayAPIKey != "",
		"telegram":   telegramClient.Configured(),
		"whatsapp":   whatsappClient.Configured(),
	})

	router := newRouter(cfg, routes{
		auth:        middleware.NewAuth(cfg.JWTSecret, cfg.AdminEmails),
		limiter:     limiter,
		billing:     billing,
		health:      health,
		stripeHook:  handlers.NewStripeWebhookHandler(stripeClient, usecase.NewCardEventsUseCase(subRepo, stripeClient, trials)),
		pixHook:     handlers.NewAbacatePayWebhookHandler(cfg.AbacatePayWebhookSecret, activator),
		reverseSync: handlers.NewReverseSyncHandler(cfg.ReverseSyncSecret, usecase.NewReverseSyncUseCase(subRepo, stripeClient)),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("🔥 Cola Aí billing rodando")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("servidor caiu")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("🛑 encerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown forçado")
	}
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}
