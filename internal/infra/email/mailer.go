package email

import (
	"context"
	"fmt"
	"net/smtp"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/halcyonsoft/halcyon/internal/core/port"
	"github.com/halcyonsoft/halcyon/internal/infra/config"
	"github.com/halcyonsoft/halcyon/internal/infra/logger"
)

// SMTPMailer delivers account emails over SMTP with plain auth.
type SMTPMailer struct {
	cfg     config.SMTPSettings
	siteURL string
	logger  *zap.Logger
}

// NewSMTPMailer constructs an SMTP-backed mailer. Links embedded in emails
// point at siteURL.
func NewSMTPMailer(cfg config.SMTPSettings, siteURL string, log *zap.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, siteURL: strings.TrimRight(siteURL, "/"), logger: log}
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	from := m.cfg.FromAddress
	header := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n",
		m.cfg.FromName, from, to, subject)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, from, []string{to}, []byte(header+body)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	m.logger.Info("email sent",
		zap.String("to", logger.MaskEmail(to)),
		zap.String("subject", subject),
	)

	return nil
}

func (m *SMTPMailer) link(path, token string) string {
	return fmt.Sprintf("%s%s?token=%s", m.siteURL, path, url.QueryEscape(token))
}

// SendEmailVerification delivers the address confirmation email.
func (m *SMTPMailer) SendEmailVerification(ctx context.Context, to, token string) error {
	body := fmt.Sprintf("Welcome! Please confirm your email address by visiting:\r\n\r\n%s\r\n",
		m.link("/confirm-email", token))
	return m.send(ctx, to, "Confirm your email address", body)
}

// SendEmailChange delivers the change confirmation to the new address.
func (m *SMTPMailer) SendEmailChange(ctx context.Context, to, newEmail, token string) error {
	body := fmt.Sprintf("A request was made to change your account email to %s.\r\nConfirm the change by visiting:\r\n\r\n%s\r\n",
		newEmail, m.link("/confirm-email-change", token))
	return m.send(ctx, to, "Confirm your new email address", body)
}

// SendPasswordReset delivers the password reset link.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, token string) error {
	body := fmt.Sprintf("A password reset was requested for your account.\r\nReset your password by visiting:\r\n\r\n%s\r\n\r\nIf you did not request this, you can ignore this email.\r\n",
		m.link("/reset-password", token))
	return m.send(ctx, to, "Reset your password", body)
}

// SendMagicLink delivers a one-time sign-in link.
func (m *SMTPMailer) SendMagicLink(ctx context.Context, to, token string) error {
	body := fmt.Sprintf("Sign in to your account by visiting:\r\n\r\n%s\r\n\r\nThis link can be used once and expires shortly.\r\n",
		m.link("/magic-link", token))
	return m.send(ctx, to, "Your sign-in link", body)
}

// SendTwoFactorCode delivers the two-factor login code.
func (m *SMTPMailer) SendTwoFactorCode(ctx context.Context, to, code string) error {
	body := fmt.Sprintf("Your verification code is: %s\r\n\r\nThe code expires shortly.\r\n", code)
	return m.send(ctx, to, "Your verification code", body)
}

var _ port.Mailer = (*SMTPMailer)(nil)
