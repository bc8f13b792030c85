package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teaqnet/access-api/internal/core/domain"
)

func TestSessionStore_SaveGetExpire(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSessionStore(WithSessionClock(func() time.Time { return now }))
	ctx := context.Background()

	sess := domain.Session{ID: "s1", AccountID: "a1", IssuedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, s.Save(ctx, sess))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.AccountID)

	now = now.Add(time.Hour)
	_, err = s.Get(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionStore_DeleteByAccount(t *testing.T) {
	s := NewSessionStore()
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	require.NoError(t, s.Save(ctx, domain.Session{ID: "s1", AccountID: "a1", ExpiresAt: exp}))
	require.NoError(t, s.Save(ctx, domain.Session{ID: "s2", AccountID: "a1", ExpiresAt: exp}))
	require.NoError(t, s.Save(ctx, domain.Session{ID: "s3", AccountID: "a2", ExpiresAt: exp}))

	require.NoError(t, s.DeleteByAccount(ctx, "a1"))

	_, err := s.Get(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = s.Get(ctx, "s2")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = s.Get(ctx, "s3")
	assert.NoError(t, err)
}

func TestSessionStore_DeleteIsIdempotent(t *testing.T) {
	s := NewSessionStore()
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, domain.Session{ID: "s1", AccountID: "a1", ExpiresAt: time.Now().Add(time.Hour)}))

	require.NoError(t, s.Delete(ctx, "s1"))
	require.NoError(t, s.Delete(ctx, "s1"))
	_, err := s.Get(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionStore_SaveValidates(t *testing.T) {
	err := NewSessionStore().Save(context.Background(), domain.Session{ID: "s1"})
	assert.ErrorIs(t, err, domain.ErrInvalid)
}
