package whatsapp

type SendTemplateInput struct {
	PhoneNumber  string   // Ex: "5511999999999"
	TemplateName string   // Ex: "assinatura_ativada"
	Parameters   []string // Ex: []string{"Avançado", "dono@padaria.com.br"}
}

type templateLanguage struct {
	Code string `json:"code"`
}

type templateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type templateComponent struct {
	Type       string              `json:"type"`
	Parameters []templateParameter `json:"parameters"`
}

type template struct {
	Name       string              `json:"name"`
	Language   templateLanguage    `json:"language"`
	Components []templateComponent `json:"components"`
}

type sendMessageRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	RecipientType    string   `json:"recipient_type"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Template         template `json:"template"`
}

type sendMessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Type    string `json:"type"`
}
