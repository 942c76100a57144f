package security

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func defaultRules() []PasswordRule {
	return []PasswordRule{
		MinLengthRule(8),
		RequireUppercaseRule(),
		RequireLowercaseRule(),
		RequireDigitRule(),
		RequireSymbolRule(),
	}
}

func TestPasswordValidatorCollectsAllViolations(t *testing.T) {
	validator := NewPasswordValidator(defaultRules()...)

	violations := validator.Validate("abc")
	require.Len(t, violations, 4)

	codes := make([]string, 0, len(violations))
	for _, violation := range violations {
		var policyErr *PasswordValidationError
		require.ErrorAs(t, violation, &policyErr)
		codes = append(codes, policyErr.Code)
	}
	require.ElementsMatch(t, []string{"min_length", "uppercase", "digit", "symbol"}, codes)
}

func TestPasswordValidatorAcceptsCompliantPassword(t *testing.T) {
	validator := NewPasswordValidator(defaultRules()...)
	require.Empty(t, validator.Validate("Str0ng!Passw0rd"))
}

func TestRequireDifferentFrom(t *testing.T) {
	rule := RequireDifferentFrom("current-password")

	require.Error(t, rule.Validate("current-password"))
	require.NoError(t, rule.Validate("brand-new-password"))
}

func TestRequirePasswordStrengthRule(t *testing.T) {
	tests := []struct {
		name     string
		password string
		minScore int
		wantErr  bool
	}{
		{name: "disabled", password: "password", minScore: 0, wantErr: false},
		{name: "weak rejected", password: "password1", minScore: 3, wantErr: true},
		{name: "strong accepted", password: "correct-horse-battery-staple-99", minScore: 3, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequirePasswordStrengthRule(tt.minScore).Validate(tt.password)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestTOTPRoundTrip(t *testing.T) {
	secret, url, err := GenerateTOTPSecret("halcyon", "alice@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, secret)
	require.Contains(t, url, "otpauth://totp/")

	require.False(t, ValidateTOTP("000000", secret))
}
