package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/revforge/revforge/internal/shared"
)

const tokenKeyPrefix = "auth:token:"

// TokenStore issues and resolves opaque bearer tokens backed by redis.
// Only an HMAC of the token is stored, so a redis dump cannot be replayed.
type TokenStore struct {
	client *redis.Client
	secret []byte
	ttl    time.Duration
}

func NewTokenStore(client *redis.Client, secret string, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, secret: []byte(secret), ttl: ttl}
}

func (s *TokenStore) key(token string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(token))
	return tokenKeyPrefix + hex.EncodeToString(mac.Sum(nil))
}

// Issue mints a token for the identity and stores it with the configured TTL.
func (s *TokenStore) Issue(ctx context.Context, identity shared.Identity) (string, error) {
	token := uuid.NewString()
	payload, err := json.Marshal(identity)
	if err != nil {
		return "", fmt.Errorf("auth: marshal identity: %w", err)
	}
	if err := s.client.Set(ctx, s.key(token), payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("auth: store token: %w", err)
	}
	return token, nil
}

// Resolve returns the identity behind a token, refreshing its TTL on use.
func (s *TokenStore) Resolve(ctx context.Context, token string) (shared.Identity, error) {
	key := s.key(token)
	payload, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return shared.Identity{}, shared.ErrInvalidCredentials
	}
	if err != nil {
		return shared.Identity{}, fmt.Errorf("auth: resolve token: %w", err)
	}
	var identity shared.Identity
	if err := json.Unmarshal(payload, &identity); err != nil {
		return shared.Identity{}, fmt.Errorf("auth: decode identity: %w", err)
	}
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		return shared.Identity{}, fmt.Errorf("auth: refresh token ttl: %w", err)
	}
	return identity, nil
}

// Revoke deletes a token. Revoking an unknown token is not an error.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("auth: revoke token: %w", err)
	}
	return nil
}
