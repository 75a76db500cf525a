package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gogotex/gogotex/backend/content-service/pkg/middleware"
	"github.com/redis/go-redis/v9"
)

// ErrTokenRevoked is returned for a token whose id was revoked.
var ErrTokenRevoked = errors.New("token has been revoked")

// Revocations is a Redis denylist of token ids (the "jti" claim). Every
// method is a no-op when the client is nil.
type Revocations struct {
	client *redis.Client
}

func NewRevocations(client *redis.Client) *Revocations {
	return &Revocations{client: client}
}

func revokedKey(id string) string { return "revoked:token:" + id }

// Revoke denies id until ttl elapses. ttl should cover the token's remaining
// lifetime; a non-positive ttl is a no-op since the token already expired.
func (r *Revocations) Revoke(ctx context.Context, id string, ttl time.Duration) error {
	if r == nil || r.client == nil || ttl <= 0 {
		return nil
	}
	if id == "" {
		return errors.New("token has no id")
	}
	return r.client.Set(ctx, revokedKey(id), "1", ttl).Err()
}

func (r *Revocations) IsRevoked(ctx context.Context, id string) (bool, error) {
	if r == nil || r.client == nil || id == "" {
		return false, nil
	}
	n, err := r.client.Exists(ctx, revokedKey(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// TokenID reads the id and expiry of a verified token.
func TokenID(tok middleware.Token) (string, time.Time, error) {
	var c struct {
		ID  string `json:"jti"`
		Exp int64  `json:"exp"`
	}
	if err := tok.Claims(&c); err != nil {
		return "", time.Time{}, err
	}
	var exp time.Time
	if c.Exp > 0 {
		exp = time.Unix(c.Exp, 0)
	}
	return c.ID, exp, nil
}

// Revocable rejects tokens accepted by next whose id was revoked. A failed
// denylist lookup rejects the token.
func Revocable(next middleware.Verifier, r *Revocations) middleware.Verifier {
	return revocable{next: next, revocations: r}
}

type revocable struct {
	next        middleware.Verifier
	revocations *Revocations
}

func (v revocable) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	tok, err := v.next.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	id, _, err := TokenID(tok)
	if err != nil {
		return nil, err
	}
	revoked, err := v.revocations.IsRevoked(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("check token revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return tok, nil
}
