package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/xavierca1/colaai-billing/internal/infra/queue"
	"gopkg.in/gomail.v2"
)

//go:embed templates/*.html
var templatesFS embed.FS

var activationTmpl = template.Must(template.ParseFS(templatesFS, "templates/activation.html"))

// Dialer é o pedaço do gomail usado no envio.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

func NewEmailSender(host string, port int, user, password, from, dashboardURL string) *EmailSender {
	return &EmailSender{
		Host:         host,
		Port:         port,
		User:         user,
		Password:     password,
		From:         from,
		DashboardURL: dashboardURL,
		dialer:       gomail.NewDialer(host, port, user, password),
	}
}

// WithDialer troca o dialer SMTP (testes).
func (s *EmailSender) WithDialer(d Dialer) *EmailSender {
	s.dialer = d
	return s
}

func (s *EmailSender) SendActivation(to string, data ActivationEmailData) error {
	var body bytes.Buffer
	if err := activationTmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("erro ao processar template: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("Sua assinatura Cola Aí %s está ativa 🎉", data.PlanLabel))
	m.SetBody("text/html", body.String())

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("erro ao enviar email SMTP: %w", err)
	}
	return nil
}

func (s *EmailSender) Name() string { return "email" }

// HandleActivation é chamado pelo worker da fila.
func (s *EmailSender) HandleActivation(_ context.Context, p queue.ActivationPayload) error {
	if p.Email == "" {
		return nil
	}

	name := p.Name
	if name == "" {
		name = strings.Split(p.Email, "@")[0]
	}
	period := "Mensal"
	if p.BillingPeriod == "annual" {
		period = "Anual"
	}
	validUntil := ""
	if p.CurrentPeriodEnd != nil {
		validUntil = p.CurrentPeriodEnd.In(time.FixedZone("BRT", -3*60*60)).Format("02/01/2006")
	}

	return s.SendActivation(p.Email, ActivationEmailData{
		Name:          name,
		PlanLabel:     p.PlanLabel,
		PeriodLabel:   period,
		PaymentMethod: strings.ToUpper(p.PaymentMethod),
		ValidUntil:    validUntil,
		DashboardURL:  s.DashboardURL,
	})
}
