package email

import (
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"

	"formlens/internal/shared/config"
)

var ErrEmailServiceNotConfigured = errors.New("email service not configured")

// BillingNotifier delivers billing lifecycle notices. Recipient addresses
// come from the billing provider's webhook payload; SendTestEmail backs the
// test-email CLI command.
type BillingNotifier interface {
	SendPaymentFailedEmail(to, teamName string) error
	SendSubscriptionCanceledEmail(to, teamName, reason string) error
	SendTestEmail(to string) error
}

type SMTPEmailService struct {
	config config.EmailConfig
	dialer *gomail.Dialer
}

func NewSMTPEmailService(cfg config.EmailConfig) *SMTPEmailService {
	dialer := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)

	return &SMTPEmailService{
		config: cfg,
		dialer: dialer,
	}
}

func (s *SMTPEmailService) SendPaymentFailedEmail(to, teamName string) error {
	subject := "Payment Failed - Action Required"
	htmlBody := fmt.Sprintf(`
		<html>
		<body>
			<h2>Payment Failed</h2>
			<p>The latest payment for team <strong>%s</strong> could not be processed.</p>
			<p>Your subscription remains active while we retry, but please update your payment method to avoid interruption.</p>
			<p>If payment keeps failing, the team will fall back to the free tier limits.</p>
		</body>
		</html>
	`, teamName)

	plainBody := fmt.Sprintf(`
Payment Failed

The latest payment for team %s could not be processed.

Your subscription remains active while we retry, but please update your payment method to avoid interruption.

If payment keeps failing, the team will fall back to the free tier limits.
	`, teamName)

	return s.sendEmail(to, subject, htmlBody, plainBody)
}

func (s *SMTPEmailService) SendSubscriptionCanceledEmail(to, teamName, reason string) error {
	if reason == "" {
		reason = "not specified"
	}

	subject := "Your Subscription Has Been Canceled"
	htmlBody := fmt.Sprintf(`
		<html>
		<body>
			<h2>Subscription Canceled</h2>
			<p>The subscription for team <strong>%s</strong> has been canceled (reason: %s).</p>
			<p>The team now operates on the free tier limits. Existing surveys and responses are preserved.</p>
			<p>You can resubscribe at any time from the billing page.</p>
		</body>
		</html>
	`, teamName, reason)

	plainBody := fmt.Sprintf(`
Subscription Canceled

The subscription for team %s has been canceled (reason: %s).

The team now operates on the free tier limits. Existing surveys and responses are preserved.

You can resubscribe at any time from the billing page.
	`, teamName, reason)

	return s.sendEmail(to, subject, htmlBody, plainBody)
}

func (s *SMTPEmailService) SendTestEmail(to string) error {
	subject := "Formlens Email Configuration Test"
	htmlBody := `
		<html>
		<body>
			<h2>Test Email</h2>
			<p>If you can read this, the SMTP configuration works.</p>
		</body>
		</html>
	`

	plainBody := `
Test Email

If you can read this, the SMTP configuration works.
	`

	return s.sendEmail(to, subject, htmlBody, plainBody)
}

func (s *SMTPEmailService) sendEmail(to, subject, htmlBody, plainBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.config.FromAddress)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
