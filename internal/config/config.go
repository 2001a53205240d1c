package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/xavierca1/colaai-billing/internal/entity"
)

type Config struct {
	AppEnv string
	Port   string
	AppURL string

	DatabaseURL    string
	DBAutoMigrate  bool
	AllowedOrigins []string

	StripeSecretKey     string
	StripeWebhookSecret string
	StripePrices        map[entity.PlanType]string
	StripeTimeout       time.Duration

	AbacatePayAPIKey        string
	AbacatePayBaseURL       string
	AbacatePayWebhookSecret string
	PixTimeout              time.Duration
	PendingPixTTL           time.Duration

	ReverseSyncSecret string
	JWTSecret         string
	AdminEmails       []string

	TrialDays int64

	RedisURL        string
	RateLimit       int
	RateLimitWindow time.Duration

	RabbitMQURL string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string

	TelegramBotToken string
	TelegramChatID   string

	WhatsAppAccessToken string
	WhatsAppPhoneID     string
	WhatsAppAdminPhone  string
	WhatsAppTemplate    string

	ExpirationInterval time.Duration
}

// Load lê o .env (se existir) e depois o ambiente.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         GetEnv("APP_ENV", "development"),
		Port:           GetEnv("PORT", "8080"),
		AppURL:         GetEnv("NEXT_PUBLIC_APP_URL", "http://localhost:3000"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DBAutoMigrate:  getBool("DB_AUTO_MIGRATE", false),
		AllowedOrigins: getList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripePrices: map[entity.PlanType]string{
			entity.PlanBasic:        firstEnv("STRIPE_PRICE_BASIC", "NEXT_PUBLIC_STRIPE_PRICE_BASIC"),
			entity.PlanAdvanced:     firstEnv("STRIPE_PRICE_ADVANCED", "STRIPE_PRICE_PROFESSIONAL", "NEXT_PUBLIC_STRIPE_PRICE_PROFESSIONAL"),
			entity.PlanProfessional: firstEnv("STRIPE_PRICE_PROFESSIONAL_PLAN", "STRIPE_PRICE_ENTERPRISE", "NEXT_PUBLIC_STRIPE_PRICE_ENTERPRISE"),
		},
		StripeTimeout: getDuration("STRIPE_TIMEOUT", 10*time.Second),

		AbacatePayAPIKey:        firstEnv("ABACATEPAY_API_KEY_PROD", "ABACATEPAY_API_KEY_DEV"),
		AbacatePayBaseURL:       GetEnv("ABACATEPAY_BASE_URL", "https://api.abacatepay.com/v1"),
		AbacatePayWebhookSecret: os.Getenv("ABACATEPAY_WEBHOOK_SECRET"),
		PixTimeout:              getDuration("ABACATEPAY_TIMEOUT", 10*time.Second),
		PendingPixTTL:           getDuration("PENDING_PIX_TTL", 72*time.Hour),

		ReverseSyncSecret: firstEnv("SUPABASE_WEBHOOK_SECRET", "REVERSE_SYNC_SECRET"),
		JWTSecret:         os.Getenv("SUPABASE_JWT_SECRET"),
		AdminEmails:       getList("ADMIN_EMAILS", nil),

		TrialDays: int64(getInt("TRIAL_DAYS", 7)),

		RedisURL:        os.Getenv("REDIS_URL"),
		RateLimit:       getInt("RATE_LIMIT_PER_MINUTE", 30),
		RateLimitWindow: getDuration("RATE_LIMIT_WINDOW", time.Minute),

		RabbitMQURL: os.Getenv("RABBITMQ_URL"),

		SMTPHost:     os.Getenv("MAIL_HOST"),
		SMTPPort:     getInt("MAIL_PORT", 587),
		SMTPUser:     os.Getenv("MAIL_USER"),
		SMTPPassword: os.Getenv("MAIL_PASS"),
		MailFrom:     GetEnv("MAIL_FROM", "nao-responda@colaai.com.br"),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   os.Getenv("TELEGRAM_CHAT_ID"),

		WhatsAppAccessToken: os.Getenv("WHATSAPP_ACCESS_TOKEN"),
		WhatsAppPhoneID:     os.Getenv("WHATSAPP_PHONE_ID"),
		WhatsAppAdminPhone:  os.Getenv("WHATSAPP_ADMIN_PHONE"),
		WhatsAppTemplate:    os.Getenv("WHATSAPP_ACTIVATION_TEMPLATE"),

		ExpirationInterval: getDuration("EXPIRATION_INTERVAL", 15*time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL é obrigatória"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("SUPABASE_JWT_SECRET é obrigatória"))
	}
	if c.TrialDays < 0 {
		errs = append(errs, errors.New("TRIAL_DAYS não pode ser negativo"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func GetEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getList(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
