package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/freshkit/freshkit-backend/pkg/config"
	redisclient "github.com/freshkit/freshkit-backend/pkg/redis"
	"github.com/freshkit/freshkit-backend/pkg/security"
	redislib "github.com/redis/go-redis/v9"
)

const codeLength = 6

// ErrInvalidCode covers wrong, expired, burnt and already consumed codes alike.
var ErrInvalidCode = errors.New("invalid or expired login code")

type codeStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GetDel(ctx context.Context, key string) (string, error)
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Del(ctx context.Context, keys ...string) error
}

type codeKeyer interface {
	LoginCodeKey(phone string) string
	LoginAttemptsKey(phone string) string
}

// CodeManager issues and verifies one-time login codes. Only an HMAC of the
// code is stored, keyed by normalized phone number.
type CodeManager struct {
	store       codeStore
	keyer       codeKeyer
	secret      []byte
	ttl         time.Duration
	maxAttempts int64
}

func NewCodeManager(client *redisclient.Client, sessionCfg config.SessionConfig, loginCfg config.LoginConfig) (*CodeManager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return newCodeManager(client, client, sessionCfg.Secret, loginCfg)
}

func newCodeManager(store codeStore, keyer codeKeyer, secret string, cfg config.LoginConfig) (*CodeManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	if cfg.CodeTTL <= 0 {
		return nil, fmt.Errorf("login code ttl must be positive")
	}
	maxAttempts := cfg.CodeMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &CodeManager{
		store:       store,
		keyer:       keyer,
		secret:      []byte(secret),
		ttl:         cfg.CodeTTL,
		maxAttempts: int64(maxAttempts),
	}, nil
}

// TTL is how long an issued code stays valid.
func (m *CodeManager) TTL() time.Duration {
	return m.ttl
}

// Issue creates a fresh code for phone, replacing any live one, and returns it in plaintext.
func (m *CodeManager) Issue(ctx context.Context, phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", fmt.Errorf("phone is required")
	}
	code, err := security.NumericCode(codeLength)
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, m.keyer.LoginCodeKey(phone), m.digest(phone, code), m.ttl); err != nil {
		return "", fmt.Errorf("store login code: %w", err)
	}
	if err := m.store.Del(ctx, m.keyer.LoginAttemptsKey(phone)); err != nil {
		return "", fmt.Errorf("reset login attempts: %w", err)
	}
	return code, nil
}

// Verify consumes the code for phone. A code verifies at most once; after
// maxAttempts wrong guesses it is burnt.
func (m *CodeManager) Verify(ctx context.Context, phone, code string) error {
	phone, code = strings.TrimSpace(phone), strings.TrimSpace(code)
	if phone == "" || code == "" {
		return ErrInvalidCode
	}
	codeKey := m.keyer.LoginCodeKey(phone)
	attemptsKey := m.keyer.LoginAttemptsKey(phone)

	stored, err := m.store.Get(ctx, codeKey)
	if err != nil {
		return wrapMissing(err)
	}

	if !hmac.Equal([]byte(stored), []byte(m.digest(phone, code))) {
		attempts, incrErr := m.store.IncrWithTTL(ctx, attemptsKey, m.ttl)
		if incrErr != nil {
			return fmt.Errorf("count login attempt: %w", incrErr)
		}
		if attempts >= m.maxAttempts {
			if delErr := m.store.Del(ctx, codeKey, attemptsKey); delErr != nil {
				return fmt.Errorf("burn login code: %w", delErr)
			}
		}
		return ErrInvalidCode
	}

	// A concurrent verify or re-issue may have raced us; only the caller whose
	// GetDel returns the digest it matched wins.
	consumed, err := m.store.GetDel(ctx, codeKey)
	if err != nil {
		return wrapMissing(err)
	}
	if consumed != stored {
		return ErrInvalidCode
	}
	_ = m.store.Del(ctx, attemptsKey)
	return nil
}

func (m *CodeManager) digest(phone, code string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(phone))
	mac.Write([]byte{':'})
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

func wrapMissing(err error) error {
	if errors.Is(err, redislib.Nil) {
		return ErrInvalidCode
	}
	return err
}
