package storage

import (
	"context"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNextID_Increments(t *testing.T) {
	ctx := context.Background()
	adapter := NewRedisAdapter(getRedisClient(t))

	first, err := adapter.NextID(ctx)
	require.NoError(t, err)
	second, err := adapter.NextID(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)
}

func TestSetSequence(t *testing.T) {
	ctx := context.Background()
	adapter := NewRedisAdapter(getRedisClient(t))

	require.NoError(t, adapter.SetSequence(ctx, 100))

	id, err := adapter.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(101), id)
}

func TestNextID_ConcurrentUnique(t *testing.T) {
	ctx := context.Background()
	adapter := NewRedisAdapter(getRedisClient(t))

	var mu sync.Mutex
	var wg sync.WaitGroup
	seen := make(map[int64]bool)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := adapter.NextID(ctx)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			mu.Lock()
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 50)
}
