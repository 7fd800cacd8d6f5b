package wizard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisStore_SaveAndGet(t *testing.T) {
	mr, rdb := setupRedis(t)
	store := NewRedisStore(rdb, time.Hour)
	ctx := context.Background()

	saved, err := store.Save(ctx, NewSession("s-1", "", time.Unix(0, 0).UTC()))
	require.NoError(t, err)
	assert.Equal(t, int64(1), saved.Version)
	assert.True(t, mr.Exists("loan:wizard:session:s-1"))
	assert.Equal(t, time.Hour, mr.TTL("loan:wizard:session:s-1"))

	got, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, saved, got)
}

func TestRedisStore_GetMissing(t *testing.T) {
	_, rdb := setupRedis(t)
	store := NewRedisStore(rdb, time.Hour)

	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStore_StaleVersionRejected(t *testing.T) {
	_, rdb := setupRedis(t)
	store := NewRedisStore(rdb, time.Hour)
	ctx := context.Background()

	v1, err := store.Save(ctx, NewSession("s-1", "", time.Unix(0, 0).UTC()))
	require.NoError(t, err)

	_, err = store.Save(ctx, v1)
	require.NoError(t, err)

	_, err = store.Save(ctx, v1)
	assert.ErrorIs(t, err, ErrConcurrentUpdate)
}

func TestRedisStore_ExpiredSession(t *testing.T) {
	mr, rdb := setupRedis(t)
	store := NewRedisStore(rdb, time.Minute)
	ctx := context.Background()

	v1, err := store.Save(ctx, NewSession("s-1", "", time.Unix(0, 0).UTC()))
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = store.Get(ctx, "s-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.Save(ctx, v1)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStore_Delete(t *testing.T) {
	_, rdb := setupRedis(t)
	store := NewRedisStore(rdb, time.Hour)
	ctx := context.Background()

	_, err := store.Save(ctx, NewSession("s-1", "", time.Unix(0, 0).UTC()))
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "s-1"))

	_, err = store.Get(ctx, "s-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
