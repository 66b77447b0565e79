package utils

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Revoked tokens are stored by digest so redis keys stay short and the
// raw JWT never lands in the store.
func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

var (
	revoked   = map[string]time.Time{}
	revokedMu sync.RWMutex
)

// BlacklistToken revokes a token until its natural expiration. Redis
// when available, in-memory otherwise (single instance only).
func BlacklistToken(token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = rc.Set(ctx, "blaze:revoked:"+tokenDigest(token), "1", ttl).Err()
		return
	}
	revokedMu.Lock()
	revoked[tokenDigest(token)] = expiresAt
	revokedMu.Unlock()
}

// IsTokenBlacklisted reports whether a token was revoked before its
// natural expiration.
func IsTokenBlacklisted(token string) bool {
	digest := tokenDigest(token)
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		n, err := rc.Exists(ctx, "blaze:revoked:"+digest).Result()
		if err == nil {
			return n > 0
		}
		// Fail open on redis errors to avoid locking everyone out.
		return false
	}

	revokedMu.RLock()
	expiresAt, ok := revoked[digest]
	revokedMu.RUnlock()
	if !ok {
		return false
	}
	if time.Now().After(expiresAt) {
		revokedMu.Lock()
		delete(revoked, digest)
		revokedMu.Unlock()
		return false
	}
	return true
}
