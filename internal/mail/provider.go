package mail

import (
	"fmt"
	"time"

	"ghost-newsletter/internal/config"
)

// New returns the Sender selected by cfg.Provider.
func New(cfg config.MailConfig, timeout time.Duration) (Sender, error) {
	switch cfg.Provider {
	case "", "postmark":
		if cfg.Postmark.ServerToken == "" {
			return nil, fmt.Errorf("mail.postmark.server_token is required for the postmark provider")
		}
		return NewPostmark(cfg.Postmark.ServerToken, cfg.Postmark.MessageStream, timeout), nil
	case "resend":
		if cfg.Resend.APIKey == "" {
			return nil, fmt.Errorf("mail.resend.api_key is required for the resend provider")
		}
		return NewResend(cfg.Resend.APIKey), nil
	case "smtp":
		if cfg.SMTP.Host == "" {
			return nil, fmt.Errorf("mail.smtp.host is required for the smtp provider")
		}
		return NewSMTP(SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			SSL:      cfg.SMTP.SSL,
		}), nil
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}
