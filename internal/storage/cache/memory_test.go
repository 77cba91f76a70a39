package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"errcascade/pkg/config"
	"errcascade/pkg/errors"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryStore_Set_Get_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "k1", "v1", 0))

	var v string
	require.NoError(t, s.Get(ctx, "k1", &v))
	assert.Equal(t, "v1", v)

	require.NoError(t, s.Delete(ctx, "k1"))
	err := s.Get(ctx, "k1", &v)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestMemoryStore_Expiration(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(WithClock(clock.Now))
	require.NoError(t, s.Set(ctx, "k", 42, time.Minute))

	clock.Advance(59 * time.Second)
	var v int
	require.NoError(t, s.Get(ctx, "k", &v))
	assert.Equal(t, 42, v)

	clock.Advance(time.Second)
	ok, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())

	err = s.Get(ctx, "k", &v)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	// 过期条目在 Get 时被移除
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_Exists(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	ok, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", "v", 0))
	ok, err = s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_Clear(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Set(ctx, "k1", "v1", 0)
	_ = s.Set(ctx, "k2", "v2", 0)
	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_StructRoundTrip(t *testing.T) {
	type payload struct {
		Patterns []string `json:"patterns"`
		P        float64  `json:"p"`
	}
	ctx := context.Background()
	s := NewMemoryStore()
	in := payload{Patterns: []string{"a", "b"}, P: 0.72}
	require.NoError(t, s.Set(ctx, "chain", in, time.Minute))

	var out payload
	require.NoError(t, s.Get(ctx, "chain", &out))
	assert.Equal(t, in, out)
}

func TestNewCache(t *testing.T) {
	s, err := NewCache(context.Background(), config.CacheConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = NewCache(context.Background(), config.CacheConfig{Type: "memcached"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedType))
}
