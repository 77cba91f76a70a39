package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"errcascade/pkg/errors"
)

// MemoryStore 内存缓存存储实现
type MemoryStore struct {
	items map[string]*cacheItem
	mu    sync.RWMutex
	now   func() time.Time
}

// cacheItem 缓存项，expiresAt 为零值表示不过期
type cacheItem struct {
	value     []byte
	expiresAt time.Time
}

// MemoryOption 内存缓存选项
type MemoryOption func(*MemoryStore)

// WithClock 替换时钟，测试 TTL 时使用
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore 创建新的内存缓存存储
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		items: make(map[string]*cacheItem),
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Set 设置缓存
func (s *MemoryStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	item := &cacheItem{value: data}
	if expiration > 0 {
		item.expiresAt = s.now().Add(expiration)
	}

	s.mu.Lock()
	s.items[key] = item
	s.mu.Unlock()
	return nil
}

// Get 获取缓存
func (s *MemoryStore) Get(ctx context.Context, key string, dest interface{}) error {
	s.mu.RLock()
	item, exists := s.items[key]
	s.mu.RUnlock()

	if !exists {
		return errors.Wrapf(errors.ErrNotFound, "cache key %s", key)
	}
	if s.expired(item) {
		s.mu.Lock()
		// 期间可能已被重新 Set，只删除同一个过期条目
		if cur, ok := s.items[key]; ok && cur == item {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return errors.Wrapf(errors.ErrNotFound, "cache key %s", key)
	}
	if err := json.Unmarshal(item.value, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return nil
}

// Delete 删除缓存，键不存在时不报错
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

// Exists 检查缓存是否存在
func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	item, exists := s.items[key]
	s.mu.RUnlock()
	return exists && !s.expired(item), nil
}

// Clear 清除所有缓存，整体替换 map，对并发读者是原子的
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.items = make(map[string]*cacheItem)
	s.mu.Unlock()
	return nil
}

// Len 当前条目数（含已过期但尚未被 Get 清理的）
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Close 关闭缓存连接
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) expired(item *cacheItem) bool {
	return !item.expiresAt.IsZero() && !s.now().Before(item.expiresAt)
}
