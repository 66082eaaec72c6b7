package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medorder/backend/internal/domain"
)

func TestDraftKey(t *testing.T) {
	assert.Equal(t, "customer-form-draft:usr-admin", DraftKey(" usr-admin "))
}

func TestMemoryDraftCacheExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	c := NewMemoryDraftCache()
	c.now = func() time.Time { return now }

	draft := &domain.CustomerDraft{Form: map[string]string{"email": "a@b.co"}, Step: 2, SavedAt: now}
	require.NoError(t, c.Set(ctx, DraftKey("u1"), draft, 0))

	draft.Form["email"] = "mutated@b.co"
	got, ok, err := c.Get(ctx, DraftKey("u1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a@b.co", got.Form["email"])
	assert.Equal(t, 2, got.Step)

	now = now.Add(DefaultDraftTTL)
	_, ok, err = c.Get(ctx, DraftKey("u1"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryDraftCacheDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryDraftCache()
	require.NoError(t, c.Set(ctx, "k", &domain.CustomerDraft{Step: 1}, time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisDraftCacheIntegration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis integration test")
	}
	ctx := context.Background()
	c := NewRedisDraftCache(addr, "", 0)
	defer c.Close()
	require.NoError(t, c.Ping(ctx))

	key := DraftKey("integration")
	draft := &domain.CustomerDraft{Form: map[string]string{"first_name": "Dana"}, Step: 3, SavedAt: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, c.Set(ctx, key, draft, time.Minute))

	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Dana", got.Form["first_name"])
	assert.Equal(t, 3, got.Step)

	require.NoError(t, c.Delete(ctx, key))
	_, ok, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
