package cmd

import (
	"log/slog"

	"github.com/venturahq/tramite/pkg/notifier"
)

// NotifierConfig collects the transport settings of the fan-out notifier.
// Channels with empty settings stay disabled.
type NotifierConfig struct {
	BaseURL string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	WhatsAppToken         string
	WhatsAppPhoneNumberID string
	WhatsAppTemplate      string
	WhatsAppLanguage      string

	WebhookURL string
}

// NewNotifier builds the fan-out notifier from the configured transports.
// Disabled transports stay nil so the fan-out skips their channels.
func NewNotifier(config NotifierConfig, logger *slog.Logger) *notifier.Fanout {
	var email notifier.EmailSender

	if transport := notifier.NewSMTPEmail(notifier.SMTPConfig{
		Host:     config.SMTPHost,
		Port:     config.SMTPPort,
		Username: config.SMTPUsername,
		Password: config.SMTPPassword,
		From:     config.SMTPFrom,
	}); transport != nil {
		email = transport
	}

	var whatsapp notifier.WhatsAppSender

	if transport := notifier.NewWhatsAppTemplate(notifier.WhatsAppConfig{
		Token:         config.WhatsAppToken,
		PhoneNumberID: config.WhatsAppPhoneNumberID,
		TemplateName:  config.WhatsAppTemplate,
		LanguageCode:  config.WhatsAppLanguage,
	}); transport != nil {
		whatsapp = transport
	}

	var webhook notifier.WebhookSender

	if transport := notifier.NewHTTPWebhook(config.WebhookURL); transport != nil {
		webhook = transport
	}

	return notifier.NewFanout(email, whatsapp, webhook, config.BaseURL, logger)
}
