package cart_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/baharserene/internal/cart"
)

func newRedisStorage(t *testing.T, ttl time.Duration) (*cart.RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return cart.NewRedisStorage(rdb, ttl), mr
}

func TestStorages(t *testing.T) {
	redisStorage, _ := newRedisStorage(t, time.Hour)

	storages := map[string]cart.Storage{
		"memory": cart.NewMemoryStorage(),
		"redis":  redisStorage,
	}

	for name, storage := range storages {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			owner := uuid.Must(uuid.NewV4())
			items := []cart.Item{
				{ProductID: uuid.Must(uuid.NewV4()), Name: "Monstera", Price: 450, Quantity: 2, ImageURL: "/m.jpg"},
				{ProductID: uuid.Must(uuid.NewV4()), Name: "Fern", Price: 120, Quantity: 1},
			}

			loaded, err := storage.Load(ctx, owner)
			require.NoError(t, err)
			assert.Empty(t, loaded)

			require.NoError(t, storage.Save(ctx, owner, items))

			loaded, err = storage.Load(ctx, owner)
			require.NoError(t, err)
			assert.Equal(t, items, loaded)

			other, err := storage.Load(ctx, uuid.Must(uuid.NewV4()))
			require.NoError(t, err)
			assert.Empty(t, other, "carts must not leak between owners")

			require.NoError(t, storage.Clear(ctx, owner))
			loaded, err = storage.Load(ctx, owner)
			require.NoError(t, err)
			assert.Empty(t, loaded)
		})
	}
}

func TestRedisStorage_TTL(t *testing.T) {
	storage, mr := newRedisStorage(t, time.Hour)
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())
	items := []cart.Item{{ProductID: uuid.Must(uuid.NewV4()), Name: "Cactus", Price: 90, Quantity: 1}}

	require.NoError(t, storage.Save(ctx, owner, items))
	assert.Equal(t, time.Hour, mr.TTL(cart.Key(owner)))

	mr.FastForward(30 * time.Minute)
	require.NoError(t, storage.Save(ctx, owner, items))
	assert.Equal(t, time.Hour, mr.TTL(cart.Key(owner)), "save must refresh the ttl")

	mr.FastForward(2 * time.Hour)
	loaded, err := storage.Load(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestRedisStorage_SaveEmptyDeletesKey(t *testing.T) {
	storage, mr := newRedisStorage(t, time.Hour)
	ctx := context.Background()
	owner := uuid.Must(uuid.NewV4())

	require.NoError(t, storage.Save(ctx, owner, []cart.Item{{ProductID: uuid.Must(uuid.NewV4()), Quantity: 1}}))
	require.True(t, mr.Exists(cart.Key(owner)))

	require.NoError(t, storage.Save(ctx, owner, nil))
	assert.False(t, mr.Exists(cart.Key(owner)))
}

func TestRedisStorage_CorruptPayload(t *testing.T) {
	storage, mr := newRedisStorage(t, time.Hour)
	owner := uuid.Must(uuid.NewV4())
	require.NoError(t, mr.Set(cart.Key(owner), "{not json"))

	_, err := storage.Load(context.Background(), owner)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt cart")
}

func TestRedisStorage_Unavailable(t *testing.T) {
	storage, mr := newRedisStorage(t, time.Hour)
	mr.Close()

	_, err := storage.Load(context.Background(), uuid.Must(uuid.NewV4()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load cart")
}
