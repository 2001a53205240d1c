package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xavierca1/colaai-billing/internal/infra/queue"
	"github.com/xavierca1/colaai-billing/internal/usecase"
)

const DefaultBaseURL = "https://api.telegram.org"

var ErrNotConfigured = errors.New("telegram não configurado")

// Client manda avisos pro chat do admin via Bot API.
type Client struct {
	botToken string
	chatID   string
	baseURL  string
	http     *http.Client
	location *time.Location
}

func NewClient(botToken, chatID, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		loc = time.FixedZone("BRT", -3*60*60)
	}
	return &Client{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 10 * time.Second},
		location: loc,
	}
}

func (c *Client) Configured() bool {
	return c.botToken != "" && c.chatID != ""
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (c *Client) SendMessage(ctx context.Context, text string) error {
	if !c.Configured() {
		log.Warn().Msg("⚠️ Telegram: TELEGRAM_BOT_TOKEN ou TELEGRAM_CHAT_ID não configurados")
		return ErrNotConfigured
	}

	body, err := json.Marshal(sendMessageRequest{ChatID: c.chatID, Text: text, ParseMode: "Markdown"})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("erro na conexão com telegram: %w", err)
	}
	defer resp.Body.Close()

	var out sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("erro ao ler resposta telegram (status %d): %w", resp.StatusCode, err)
	}
	if !out.OK {
		return fmt.Errorf("telegram recusou a mensagem: %s", out.Description)
	}
	return nil
}

// NotifyPixPayment implementa usecase.AdminNotifier.
func (c *Client) NotifyPixPayment(ctx context.Context, n queue.PixNotification) error {
	if err := c.SendMessage(ctx, c.formatPix(n)); err != nil {
		return &usecase.GatewayError{Provider: "telegram", Op: "send message", Err: err}
	}
	return nil
}

// Name e HandleActivation fazem do client um subscriber do worker de ativações.
func (c *Client) Name() string { return "telegram" }

func (c *Client) HandleActivation(ctx context.Context, p queue.ActivationPayload) error {
	if !c.Configured() {
		return nil
	}
	return c.SendMessage(ctx, c.formatActivation(p))
}

func (c *Client) formatPix(n queue.PixNotification) string {
	title := "💰 *NOVO PAGAMENTO PIX*"
	footer := "_Confirme o recebimento e ative a assinatura._"
	switch n.Kind {
	case queue.PixSubscriptionCreated:
		title = "🆕 *NOVA ASSINATURA PIX*"
		footer = "_Aguardando pagamento do PIX._"
		if n.TrialDays > 0 {
			footer = fmt.Sprintf("_Teste grátis de %d dias iniciado._", n.TrialDays)
		}
	case queue.PixPaymentConfirmed:
		title = "✅ *PIX CONFIRMADO*"
		footer = "_Assinatura ativada automaticamente._"
	}

	var b strings.Builder
	b.WriteString(title + "\n\n")
	fmt.Fprintf(&b, "📋 *Plano:* %s (%s)\n", n.PlanLabel, n.BillingPeriod)
	fmt.Fprintf(&b, "💵 *Valor:* %s\n", FormatBRL(n.AmountCents))
	fmt.Fprintf(&b, "📧 *Cliente:* %s\n", orNA(n.Email))
	fmt.Fprintf(&b, "🆔 *Tenant:* `%s`\n", orNA(n.TenantID))
	if n.Status != "" {
		fmt.Fprintf(&b, "📌 *Status:* %s\n", n.Status)
	}
	fmt.Fprintf(&b, "⏰ *Data:* %s\n\n", c.localTime(n.At))
	b.WriteString(footer)
	return b.String()
}

func (c *Client) formatActivation(p queue.ActivationPayload) string {
	var b strings.Builder
	b.WriteString("✅ *ASSINATURA ATIVADA*\n\n")
	fmt.Fprintf(&b, "📋 *Plano:* %s\n", orNA(p.PlanLabel))
	fmt.Fprintf(&b, "💳 *Pagamento:* %s\n", p.PaymentMethod)
	if p.AmountCents > 0 {
		fmt.Fprintf(&b, "💵 *Valor:* %s\n", FormatBRL(p.AmountCents))
	}
	fmt.Fprintf(&b, "📧 *Cliente:* %s\n", orNA(p.Email))
	if p.CurrentPeriodEnd != nil {
		fmt.Fprintf(&b, "📅 *Válido até:* %s\n", c.localTime(*p.CurrentPeriodEnd))
	}
	fmt.Fprintf(&b, "🔗 *Origem:* %s", p.Origin)
	return b.String()
}

func (c *Client) localTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.In(c.location).Format("02/01/2006 15:04")
}

// FormatBRL: 7900 -> "R$ 79,00".
func FormatBRL(cents int64) string {
	return fmt.Sprintf("R$ %d,%02d", cents/100, cents%100)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
