package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"

	"github.com/halcyonsoft/halcyon/internal/core/domain"
)

// ErrInvalidToken indicates the supplied token failed signature or claim validation.
var ErrInvalidToken = errors.New("jwt: invalid token")

const defaultAccessTokenTTL = 15 * time.Minute

// AccessTokenClaims augments registered claims with identity and session context.
type AccessTokenClaims struct {
	UserName  string   `json:"name,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	Claims    []string `json:"claims,omitempty"`
	SessionID string   `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager signs and verifies HMAC access tokens.
type JWTManager struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

// NewJWTManager constructs a JWTManager for the supplied secret and issuer.
func NewJWTManager(secret, issuer, audience string, ttl time.Duration) (*JWTManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("jwt: signing secret is required")
	}
	if strings.TrimSpace(issuer) == "" {
		return nil, fmt.Errorf("jwt: issuer is required")
	}
	if ttl <= 0 {
		ttl = defaultAccessTokenTTL
	}

	return &JWTManager{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
	}, nil
}

// AccessTokenTTL reports the configured access token lifetime.
func (m *JWTManager) AccessTokenTTL() time.Duration {
	return m.ttl
}

// IssueAccessToken signs an access token for the user attached to the session.
// User claims are flattened to "type:value" strings so policy middleware can
// match them without another lookup.
func (m *JWTManager) IssueAccessToken(user *domain.User, roles []string, claims []domain.Claim, sessionID string, now time.Time) (string, error) {
	if user == nil {
		return "", fmt.Errorf("jwt: user is required")
	}

	flat := make([]string, 0, len(claims))
	for _, claim := range claims {
		flat = append(flat, claim.Type+":"+claim.Value)
	}
	if len(flat) == 0 {
		flat = nil
	}

	now = now.UTC()
	tokenClaims := &AccessTokenClaims{
		UserName:  user.UserName,
		Roles:     normalizeRoles(roles),
		Claims:    flat,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
	}
	if m.audience != "" {
		tokenClaims.Audience = jwt.ClaimStrings{m.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, nil
}

// ParseAccessToken validates the signature and registered claims of a token.
func (m *JWTManager) ParseAccessToken(token string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func normalizeRoles(input []string) []string {
	if len(input) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(input))
	result := make([]string, 0, len(input))
	for _, role := range input {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		if _, exists := seen[role]; exists {
			continue
		}
		seen[role] = struct{}{}
		result = append(result, role)
	}

	if len(result) == 0 {
		return nil
	}

	return result
}
