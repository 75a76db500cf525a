package auth

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRevocable_RejectsRevokedTokens(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	ctx := context.Background()

	iss, err := NewIssuer(secret, time.Hour)
	require.NoError(t, err)
	revocations := NewRevocations(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	ver := Revocable(iss, revocations)

	raw, err := iss.Issue("editor-1", AdminRole)
	require.NoError(t, err)
	other, err := iss.Issue("editor-2", AdminRole)
	require.NoError(t, err)

	tok, err := ver.Verify(ctx, raw)
	require.NoError(t, err)
	id, exp, err := TokenID(tok)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	require.NoError(t, revocations.Revoke(ctx, id, 2*time.Second))
	_, err = ver.Verify(ctx, raw)
	require.ErrorIs(t, err, ErrTokenRevoked)
	_, err = ver.Verify(ctx, other)
	require.NoError(t, err, "other tokens stay valid")

	// the denylist entry only needs to outlive the token
	m.FastForward(3 * time.Second)
	_, err = ver.Verify(ctx, raw)
	require.NoError(t, err)
}

func TestRevocable_FailsClosedWhenRedisIsDown(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	m.Close()

	iss, err := NewIssuer(secret, time.Hour)
	require.NoError(t, err)
	raw, err := iss.Issue("editor-1", AdminRole)
	require.NoError(t, err)

	_, err = Revocable(iss, NewRevocations(client)).Verify(context.Background(), raw)
	require.ErrorContains(t, err, "check token revocation")
}

func TestRevocations_NoClientIsNoop(t *testing.T) {
	ctx := context.Background()
	r := NewRevocations(nil)
	require.NoError(t, r.Revoke(ctx, "id-1", time.Minute))
	revoked, err := r.IsRevoked(ctx, "id-1")
	require.NoError(t, err)
	require.False(t, revoked)
}
