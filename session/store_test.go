package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, time.Hour), mr
}

func TestStore_CreateGetDelete(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "u1")
	require.NoError(t, err)

	sess, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.UserID)
	assert.Equal(t, sess.IssuedAt+3600, sess.ExpiresAt)

	require.NoError(t, s.Delete(ctx, id))
	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestStore_Expires(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "u1")
	require.NoError(t, err)
	mr.FastForward(2 * time.Hour)

	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestStore_RevokeAllForUser(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	a, err := s.Create(ctx, "u1")
	require.NoError(t, err)
	b, err := s.Create(ctx, "u1")
	require.NoError(t, err)
	other, err := s.Create(ctx, "u2")
	require.NoError(t, err)

	require.NoError(t, s.RevokeAllForUser(ctx, "u1"))
	for _, id := range []string{a, b} {
		_, err := s.Get(ctx, id)
		assert.ErrorIs(t, err, ErrNoSession)
	}
	_, err = s.Get(ctx, other)
	assert.NoError(t, err)

	require.NoError(t, s.RevokeAllForUser(ctx, "nobody"))
}
