package security

import (
	"fmt"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// GenerateTOTPSecret provisions a new TOTP key for the account and returns
// the shared secret plus the otpauth:// enrollment URL.
func GenerateTOTPSecret(issuer, accountName string) (secret string, url string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", fmt.Errorf("generate totp secret: %w", err)
	}

	return key.Secret(), key.URL(), nil
}

// ValidateTOTP checks a six-digit code against the shared secret.
func ValidateTOTP(code, secret string) bool {
	return totp.Validate(code, secret)
}
