package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xavierca1/colaai-billing/internal/infra/queue"
)

const (
	DefaultBaseURL     = "https://graph.facebook.com/v18.0"
	ActivationTemplate = "assinatura_ativada"
)

var ErrNotConfigured = errors.New("whatsapp não configurado")

type Config struct {
	AccessToken string
	PhoneID     string
	// AdminPhone recebe o aviso de ativação (mesmo papel do chat do Telegram).
	AdminPhone string
	Template   string
	BaseURL    string
}

// Client manda templates pela Cloud API do WhatsApp.
type Client struct {
	accessToken string
	phoneID     string
	adminPhone  string
	template    string
	baseURL     string
	http        *http.Client
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	tmpl := cfg.Template
	if tmpl == "" {
		tmpl = ActivationTemplate
	}
	return &Client{
		accessToken: cfg.AccessToken,
		phoneID:     cfg.PhoneID,
		adminPhone:  cfg.AdminPhone,
		template:    tmpl,
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Configured() bool {
	return c.accessToken != "" && c.phoneID != "" && c.adminPhone != ""
}

func (c *Client) SendTemplate(ctx context.Context, input SendTemplateInput) error {
	if c.accessToken == "" || c.phoneID == "" {
		log.Warn().Msg("⚠️ WhatsApp: WHATSAPP_ACCESS_TOKEN ou WHATSAPP_PHONE_ID não configurados")
		return ErrNotConfigured
	}

	params := make([]templateParameter, 0, len(input.Parameters))
	for _, p := range input.Parameters {
		params = append(params, templateParameter{Type: "text", Text: p})
	}
	body, err := json.Marshal(sendMessageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               input.PhoneNumber,
		Type:             "template",
		Template: template{
			Name:       input.TemplateName,
			Language:   templateLanguage{Code: "pt_BR"},
			Components: []templateComponent{{Type: "body", Parameters: params}},
		},
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("erro na conexão com whatsapp: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	var out sendMessageResponse
	_ = json.Unmarshal(respBody, &out)

	if out.Error != nil {
		return fmt.Errorf("whatsapp: %s (code %d)", out.Error.Message, out.Error.Code)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("whatsapp api error: status %d: %s", resp.StatusCode, string(respBody))
	}

	log.Info().Str("to", input.PhoneNumber).Msg("✅ WhatsApp: mensagem enviada")
	return nil
}

func (c *Client) Name() string { return "whatsapp" }

// HandleActivation avisa o número do admin; sem configuração não faz nada.
func (c *Client) HandleActivation(ctx context.Context, p queue.ActivationPayload) error {
	if !c.Configured() {
		return nil
	}
	return c.SendTemplate(ctx, SendTemplateInput{
		PhoneNumber:  c.adminPhone,
		TemplateName: c.template,
		Parameters:   []string{orNA(p.PlanLabel), orNA(p.Email), strings.ToUpper(p.PaymentMethod)},
	})
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
