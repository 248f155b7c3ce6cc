package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/jordanlanch/leadrouter/pkg/cache"
)

// Blacklist revokes tokens before their natural expiry, backed by redis so
// revocation holds across instances. Keys expire with the token, so the
// set never needs sweeping.
type Blacklist struct {
	cache *cache.Client
	ttl   time.Duration
}

// NewBlacklist creates a token blacklist. ttl should match the token
// lifetime.
func NewBlacklist(c *cache.Client, ttl time.Duration) *Blacklist {
	return &Blacklist{cache: c, ttl: ttl}
}

func blacklistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "auth:blacklist:" + hex.EncodeToString(sum[:])
}

// Revoke marks a token as no longer valid.
func (b *Blacklist) Revoke(ctx context.Context, token string) error {
	return b.cache.SetString(ctx, blacklistKey(token), "1", b.ttl)
}

// IsRevoked reports whether a token has been revoked.
func (b *Blacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	return b.cache.Exists(ctx, blacklistKey(token))
}
