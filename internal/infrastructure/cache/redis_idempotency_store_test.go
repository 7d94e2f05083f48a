package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newRedisTestStore starts a throwaway Redis container
func newRedisTestStore(t *testing.T) *RedisIdempotencyStore {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping Redis container test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start Redis container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	store := NewRedisIdempotencyStoreWithClient(client, "test:")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRedisIdempotencyStore(t *testing.T) {
	store := newRedisTestStore(t)
	ctx := context.Background()

	ok, err := store.Reserve(ctx, "payment:1:abc", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reserve(ctx, "payment:1:abc", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	result, found, err := store.Lookup(ctx, "payment:1:abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, result, "reserved but not completed")

	require.NoError(t, store.Complete(ctx, "payment:1:abc", `{"id":"42"}`, time.Hour))
	result, found, err = store.Lookup(ctx, "payment:1:abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"id":"42"}`, result)

	ttl, err := store.client.TTL(ctx, "test:payment:1:abc").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	require.NoError(t, store.Release(ctx, "payment:1:abc"))
	_, found, err = store.Lookup(ctx, "payment:1:abc")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNewRedisIdempotencyStoreWithClient_DefaultPrefix(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	store := NewRedisIdempotencyStoreWithClient(client, "")
	assert.Equal(t, defaultKeyPrefix, store.keyPrefix)
}
