package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/medcare-assistant/internal/config"
	"github.com/wolfman30/medcare-assistant/internal/notify"
	"github.com/wolfman30/medcare-assistant/pkg/logging"
)

// BuildEmailSender picks the booking confirmation transport. Missing
// credentials fall back to the logging stub.
func BuildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.EmailProvider {
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
			ReplyTo:   cfg.EmailReplyTo,
			Sandbox:   cfg.SendGridSandbox,
		}, logger); sender != nil {
			return sender
		}
		logger.Warn("sendgrid selected without an API key; emails will only be logged")
	case "ses":
		if cfg.SESFromEmail != "" {
			return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
				FromEmail: cfg.SESFromEmail,
				FromName:  cfg.SendGridFromName,
				ReplyTo:   cfg.EmailReplyTo,
			}, logger)
		}
		logger.Warn("ses selected without SES_FROM_EMAIL; emails will only be logged")
	}
	return notify.NewStubEmailSender(logger)
}
