package redis

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/halcyonsoft/halcyon/internal/core/port"
)

const defaultCodePrefix = "code"

// CodeRepository persists short-lived one-time codes in Redis, keyed by
// purpose and identifier. Codes are single-use: a successful Consume deletes
// the entry.
type CodeRepository struct {
	client *red.Client
	prefix string
}

// NewCodeRepository constructs a code repository with the provided Redis
// client and key prefix.
func NewCodeRepository(client *red.Client, keyPrefix string) *CodeRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultCodePrefix
	}

	return &CodeRepository{client: client, prefix: prefix}
}

// Store persists a code with the supplied purpose/identifier and TTL.
func (r *CodeRepository) Store(ctx context.Context, purpose, identifier, code string, ttl time.Duration) error {
	purpose = strings.TrimSpace(purpose)
	identifier = strings.TrimSpace(identifier)
	code = strings.TrimSpace(code)

	switch {
	case purpose == "":
		return errors.New("purpose is required")
	case identifier == "":
		return errors.New("identifier is required")
	case code == "":
		return errors.New("code is required")
	case ttl <= 0:
		return errors.New("ttl must be positive")
	}

	if err := r.client.Set(ctx, r.key(purpose, identifier), code, ttl).Err(); err != nil {
		return fmt.Errorf("redis store code: %w", err)
	}

	return nil
}

// Consume verifies the submitted code against the stored one and deletes the
// entry on a match. Absent, expired, or mismatched codes report false.
func (r *CodeRepository) Consume(ctx context.Context, purpose, identifier, code string) (bool, error) {
	key := r.key(strings.TrimSpace(purpose), strings.TrimSpace(identifier))
	if key == "" {
		return false, errors.New("purpose and identifier are required")
	}

	stored, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == red.Nil {
			return false, nil
		}
		return false, fmt.Errorf("redis get code: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(strings.TrimSpace(code))) != 1 {
		return false, nil
	}

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return false, fmt.Errorf("redis delete code: %w", err)
	}

	return true, nil
}

func (r *CodeRepository) key(purpose, identifier string) string {
	if purpose == "" || identifier == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s:%s", r.prefix, purpose, identifier)
}

var _ port.CodeStore = (*CodeRepository)(nil)
