package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	encoded, err := HashPassword("S3cure!Passw0rd")
	require.NoError(t, err)
	require.Len(t, strings.Split(encoded, ":"), 2)

	ok, err := VerifyPassword("S3cure!Passw0rd", encoded)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = VerifyPassword("wrong-password", encoded)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHashPasswordUniqueSalts(t *testing.T) {
	first, err := HashPassword("S3cure!Passw0rd")
	require.NoError(t, err)

	second, err := HashPassword("S3cure!Passw0rd")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
		wantErr bool
	}{
		{name: "empty", encoded: "", wantErr: false},
		{name: "missing separator", encoded: "justonechunk", wantErr: true},
		{name: "invalid base64", encoded: "!!!:???", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := VerifyPassword("password", tt.encoded)
			require.False(t, ok)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestGenerateSecureToken(t *testing.T) {
	token, err := GenerateSecureToken(32)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	other, err := GenerateSecureToken(32)
	require.NoError(t, err)
	require.NotEqual(t, token, other)

	_, err = GenerateSecureToken(0)
	require.Error(t, err)
}

func TestGenerateNumericCode(t *testing.T) {
	code, err := GenerateNumericCode(6)
	require.NoError(t, err)
	require.Len(t, code, 6)
	for _, r := range code {
		require.True(t, r >= '0' && r <= '9')
	}

	_, err = GenerateNumericCode(-1)
	require.Error(t, err)
}

func TestHashTokenDeterministic(t *testing.T) {
	require.Equal(t, HashToken("refresh-token"), HashToken("refresh-token"))
	require.NotEqual(t, HashToken("refresh-token"), HashToken("other-token"))
	require.Len(t, HashToken("refresh-token"), 64)
}
