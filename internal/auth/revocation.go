package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const revokedTokenKey = "revoked_token"

// RevocationList remembers logged-out token ids until they would have
// expired anyway. A nil list revokes nothing.
type RevocationList struct {
	Client *redis.Client
}

func NewRevocationList(client *redis.Client) *RevocationList {
	return &RevocationList{Client: client}
}

func revokedKey(jti string) string {
	return revokedTokenKey + ":" + jti
}

func (r *RevocationList) Revoke(ctx context.Context, claims *Claims) error {
	if r == nil || r.Client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		if left := time.Until(claims.ExpiresAt.Time); left > 0 {
			ttl = left
		}
	}
	if err := r.Client.Set(ctx, revokedKey(claims.ID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (r *RevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if r == nil || r.Client == nil || jti == "" {
		return false, nil
	}
	n, err := r.Client.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}
