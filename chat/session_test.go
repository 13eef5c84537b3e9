package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionStoreExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemorySessionStore(10 * time.Minute)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Append(ctx, "a", Message{Role: RoleUser, Content: "hola"}))
	now = now.Add(9 * time.Minute)
	msgs, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	// Get slid the expiry forward.
	now = now.Add(9 * time.Minute)
	msgs, _ = m.Get(ctx, "a")
	assert.Len(t, msgs, 1)

	now = now.Add(11 * time.Minute)
	msgs, _ = m.Get(ctx, "a")
	assert.Nil(t, msgs)
	assert.Equal(t, 0, m.Len())
}

func TestMemorySessionStoreConcurrentAppends(t *testing.T) {
	m := NewMemorySessionStore(time.Hour)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Append(ctx, "c", Message{Role: RoleUser, Content: "x"}, Message{Role: RoleAssistant, Content: "y"})
		}()
	}
	wg.Wait()

	msgs, err := m.Get(ctx, "c")
	require.NoError(t, err)
	require.Len(t, msgs, 100)
	for i := 0; i < len(msgs); i += 2 {
		assert.Equal(t, RoleUser, msgs[i].Role)
		assert.Equal(t, RoleAssistant, msgs[i+1].Role)
	}
}

func TestRedisSessionStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := NewRedisSessionStore(rdb, 30*time.Minute)
	ctx := context.Background()

	msgs, err := store.Get(ctx, "conv")
	require.NoError(t, err)
	assert.Nil(t, msgs)

	require.NoError(t, store.Append(ctx, "conv", Message{Role: RoleUser, Content: "ver motos"}))
	require.NoError(t, store.Append(ctx, "conv", Message{Role: RoleAssistant, Content: "ok"}))

	msgs, err = store.Get(ctx, "conv")
	require.NoError(t, err)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "ver motos"}, {Role: RoleAssistant, Content: "ok"}}, msgs)
	assert.Equal(t, 30*time.Minute, mr.TTL("mvrodados:chat:conv"))

	mr.FastForward(31 * time.Minute)
	msgs, err = store.Get(ctx, "conv")
	require.NoError(t, err)
	assert.Nil(t, msgs)

	require.NoError(t, store.Append(ctx, "conv", Message{Role: RoleUser, Content: "hola"}))
	require.NoError(t, store.Delete(ctx, "conv"))
	assert.False(t, mr.Exists("mvrodados:chat:conv"))
}

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := OpenRedis(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	require.NoError(t, rdb.Close())

	_, err = OpenRedis(context.Background(), "not a url")
	assert.Error(t, err)
}
