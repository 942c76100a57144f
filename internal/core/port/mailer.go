package port

import "context"

// Mailer delivers account lifecycle emails. Implementations must not leak
// token values into logs.
type Mailer interface {
	SendEmailVerification(ctx context.Context, to string, token string) error
	SendEmailChange(ctx context.Context, to string, newEmail string, token string) error
	SendPasswordReset(ctx context.Context, to string, token string) error
	SendMagicLink(ctx context.Context, to string, token string) error
	SendTwoFactorCode(ctx context.Context, to string, code string) error
}
