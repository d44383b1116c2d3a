package auth

import (
	"context"
	"os"
	"testing"
	"time"

	"git.automatex.dev/stem/stemweb/src/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against the configured database only when STEM_TEST_POSTGRES is set.
func TestPgSessionStore(t *testing.T) {
	if os.Getenv("STEM_TEST_POSTGRES") == "" {
		t.Skip("STEM_TEST_POSTGRES not set")
	}

	ctx := context.Background()
	pool, err := db.NewConnPool(ctx)
	require.NoError(t, err)
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	store := NewPgSessionStore(tx)
	require.NoError(t, store.Migrate(ctx))

	now := time.Now().Truncate(time.Microsecond)
	live := NewSession("live", now)
	dead := NewSession("dead", now)
	dead.ExpiresAt = now.Add(-time.Minute)
	require.NoError(t, store.Create(ctx, live))
	require.NoError(t, store.Create(ctx, dead))

	got, err := store.Get(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, live.AccessToken, got.AccessToken)
	assert.True(t, live.ExpiresAt.Equal(got.ExpiresAt))

	n, err := store.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = store.Get(ctx, dead.ID)
	assert.ErrorIs(t, err, ErrNoSession)
}
