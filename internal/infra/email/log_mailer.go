package email

import (
	"context"

	"go.uber.org/zap"

	"github.com/halcyonsoft/halcyon/internal/core/port"
	"github.com/halcyonsoft/halcyon/internal/infra/logger"
)

// LogMailer writes email intents to the log instead of delivering them. Used
// when no SMTP host is configured. Token values are masked.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer constructs a development-friendly mailer.
func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{logger: log}
}

func (m *LogMailer) logEmail(kind, to string, fields ...zap.Field) {
	base := []zap.Field{
		zap.String("kind", kind),
		zap.String("to", logger.MaskEmail(to)),
	}
	m.logger.Info("email suppressed (no smtp host configured)", append(base, fields...)...)
}

// SendEmailVerification logs the verification email intent.
func (m *LogMailer) SendEmailVerification(_ context.Context, to, token string) error {
	m.logEmail("email_verification", to, zap.String("token", logger.MaskString(token)))
	return nil
}

// SendEmailChange logs the email change confirmation intent.
func (m *LogMailer) SendEmailChange(_ context.Context, to, newEmail, token string) error {
	m.logEmail("email_change", to,
		zap.String("new_email", logger.MaskEmail(newEmail)),
		zap.String("token", logger.MaskString(token)),
	)
	return nil
}

// SendPasswordReset logs the password reset email intent.
func (m *LogMailer) SendPasswordReset(_ context.Context, to, token string) error {
	m.logEmail("password_reset", to, zap.String("token", logger.MaskString(token)))
	return nil
}

// SendMagicLink logs the magic link email intent.
func (m *LogMailer) SendMagicLink(_ context.Context, to, token string) error {
	m.logEmail("magic_link", to, zap.String("token", logger.MaskString(token)))
	return nil
}

// SendTwoFactorCode logs the two-factor code email intent.
func (m *LogMailer) SendTwoFactorCode(_ context.Context, to, code string) error {
	m.logEmail("two_factor_code", to, zap.String("code", logger.MaskString(code)))
	return nil
}

var _ port.Mailer = (*LogMailer)(nil)
