package abacatepay

import "time"

type product struct {
	ExternalID  string `json:"externalId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Quantity    int    `json:"quantity"`
	Price       int64  `json:"price"` // centavos
}

type customer struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Cellphone string `json:"cellphone"`
	TaxID     string `json:"taxId,omitempty"`
}

type createBillingRequest struct {
	Frequency     string            `json:"frequency"`
	Methods       []string          `json:"methods"`
	Products      []product         `json:"products"`
	ReturnURL     string            `json:"returnUrl"`
	CompletionURL string            `json:"completionUrl,omitempty"`
	Customer      *customer         `json:"customer,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type pixInfo struct {
	QRCode       string     `json:"qrCode"`
	QRCodeBase64 string     `json:"qrCodeBase64"`
	ExpiresAt    *time.Time `json:"expiresAt"`
}

type billing struct {
	ID       string            `json:"id"`
	URL      string            `json:"url"`
	Amount   int64             `json:"amount"`
	Status   string            `json:"status"` // PENDING, PAID, EXPIRED, CANCELLED
	DevMode  bool              `json:"devMode"`
	Pix      *pixInfo          `json:"pix"`
	Metadata map[string]string `json:"metadata"`
}

// envelope cobre as três formas de resposta da API: {data}, {billing} ou o objeto puro.
type envelope struct {
	Data    *billing `json:"data"`
	Billing *billing `json:"billing"`
	Error   any      `json:"error"`
	billing
}

func (e envelope) unwrap() *billing {
	switch {
	case e.Data != nil:
		return e.Data
	case e.Billing != nil:
		return e.Billing
	}
	b := e.billing
	return &b
}

// webhookEvent é o corpo do webhook; "event" ou "type" dependendo da versão.
type webhookEvent struct {
	ID      string   `json:"id"`
	Event   string   `json:"event"`
	Type    string   `json:"type"`
	Data    *billing `json:"data"`
	Billing *billing `json:"billing"`
}
