package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	whatsappTimeout    = 20 * time.Second
	whatsappAPIVersion = "v20.0"

	// defaultCountryCode is prepended to numbers stored without one.
	defaultCountryCode = "55"
)

// WhatsAppConfig configures the Meta Cloud API transport. An empty Token
// disables the channel.
type WhatsAppConfig struct {
	Token         string
	PhoneNumberID string
	TemplateName  string
	LanguageCode  string

	// BaseURL overrides the Graph API endpoint, used by tests.
	BaseURL string
}

// WhatsAppTemplate sends pre-approved template messages through the Meta
// WhatsApp Cloud API.
type WhatsAppTemplate struct {
	config WhatsAppConfig
	client *http.Client
}

// NewWhatsAppTemplate creates the WhatsApp transport, or nil when no token
// is configured.
func NewWhatsAppTemplate(config WhatsAppConfig) *WhatsAppTemplate {
	if config.Token == "" {
		return nil
	}

	if config.BaseURL == "" {
		config.BaseURL = "https://graph.facebook.com/" + whatsappAPIVersion
	}

	if config.LanguageCode == "" {
		config.LanguageCode = "pt_BR"
	}

	return &WhatsAppTemplate{
		config: config,
		client: &http.Client{Timeout: whatsappTimeout},
	}
}

type whatsappParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type whatsappComponent struct {
	Type       string              `json:"type"`
	SubType    string              `json:"sub_type,omitempty"`
	Index      string              `json:"index,omitempty"`
	Parameters []whatsappParameter `json:"parameters"`
}

type whatsappRequest struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Template         struct {
		Name     string `json:"name"`
		Language struct {
			Code string `json:"code"`
		} `json:"language"`
		Components []whatsappComponent `json:"components"`
	} `json:"template"`
}

// SendTemplate posts one template message. The destination number is
// normalized to a country-coded digit string first.
func (w *WhatsAppTemplate) SendTemplate(ctx context.Context, to string, bodyParams, buttonParams []string) error {
	request := whatsappRequest{
		MessagingProduct: "whatsapp",
		To:               NormalizePhone(to),
		Type:             "template",
	}
	request.Template.Name = w.config.TemplateName
	request.Template.Language.Code = w.config.LanguageCode

	body := whatsappComponent{Type: "body"}
	for _, param := range bodyParams {
		body.Parameters = append(body.Parameters, whatsappParameter{Type: "text", Text: param})
	}

	request.Template.Components = append(request.Template.Components, body)

	for i, param := range buttonParams {
		request.Template.Components = append(request.Template.Components, whatsappComponent{
			Type:       "button",
			SubType:    "url",
			Index:      fmt.Sprintf("%d", i),
			Parameters: []whatsappParameter{{Type: "text", Text: param}},
		})
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal whatsapp request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", w.config.BaseURL, w.config.PhoneNumberID)

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create whatsapp request: %w", err)
	}

	httpRequest.Header.Set("Authorization", "Bearer "+w.config.Token)
	httpRequest.Header.Set("Content-Type", "application/json")

	response, err := w.client.Do(httpRequest)
	if err != nil {
		return fmt.Errorf("failed to call whatsapp api: %w", err)
	}

	defer func() { _ = response.Body.Close() }()

	if response.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(response.Body, 2048))

		return fmt.Errorf("whatsapp api returned status %d: %s", response.StatusCode, detail)
	}

	return nil
}

// NormalizePhone reduces a phone number to digits and prepends the default
// country code when the number looks local.
func NormalizePhone(phone string) string {
	var digits strings.Builder

	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	normalized := digits.String()

	if len(normalized) <= 11 && !strings.HasPrefix(normalized, defaultCountryCode) {
		normalized = defaultCountryCode + normalized
	}

	return normalized
}
