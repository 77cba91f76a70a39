package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"errcascade/internal/cascade"
	"errcascade/pkg/errors"
)

// MemoryStore 内存历史错误存储，超过 maxItems 时丢弃最旧的记录
type MemoryStore struct {
	mu    sync.RWMutex
	items []*cascade.ErrorOccurrence // 按时间升序
	byID  map[string]*cascade.ErrorOccurrence
	max   int
	now   func() time.Time
}

// NewMemoryStore 创建内存历史错误存储，maxItems<=0 时默认 10000
func NewMemoryStore(maxItems int) *MemoryStore {
	if maxItems <= 0 {
		maxItems = 10000
	}
	return &MemoryStore{
		byID: make(map[string]*cascade.ErrorOccurrence),
		max:  maxItems,
		now:  time.Now,
	}
}

// WithClock 替换时钟，测试使用
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

func copyOccurrence(o *cascade.ErrorOccurrence) *cascade.ErrorOccurrence {
	cp := *o
	if o.Attributes != nil {
		cp.Attributes = make(map[string]string, len(o.Attributes))
		for k, v := range o.Attributes {
			cp.Attributes[k] = v
		}
	}
	return &cp
}

// Append 追加一条错误记录
func (s *MemoryStore) Append(ctx context.Context, occ *cascade.ErrorOccurrence) error {
	if occ == nil {
		return errors.Wrap(errors.ErrInvalidArg, "nil occurrence")
	}
	if occ.ID == "" {
		occ.ID = "err-" + uuid.New().String()
	}
	if occ.Timestamp.IsZero() {
		occ.Timestamp = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[occ.ID]; exists {
		return errors.Wrapf(errors.ErrInvalidArg, "occurrence %s already exists", occ.ID)
	}
	cp := copyOccurrence(occ)
	// 大多数记录按时间顺序到达，直接追加；乱序时二分插入
	i := sort.Search(len(s.items), func(i int) bool { return s.items[i].Timestamp.After(cp.Timestamp) })
	s.items = append(s.items, nil)
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = cp
	s.byID[cp.ID] = cp

	if len(s.items) > s.max {
		drop := len(s.items) - s.max
		for _, old := range s.items[:drop] {
			delete(s.byID, old.ID)
		}
		s.items = append([]*cascade.ErrorOccurrence(nil), s.items[drop:]...)
	}
	return nil
}

// Get 根据 ID 获取错误记录
func (s *MemoryStore) Get(ctx context.Context, id string) (*cascade.ErrorOccurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	occ, ok := s.byID[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "occurrence %s", id)
	}
	return copyOccurrence(occ), nil
}

// RecentErrors 返回 [now-window, now] 内的错误
func (s *MemoryStore) RecentErrors(ctx context.Context, window time.Duration) ([]cascade.ErrorOccurrence, error) {
	now := s.now()
	since := now.Add(-window)

	s.mu.RLock()
	defer s.mu.RUnlock()
	start := sort.Search(len(s.items), func(i int) bool { return !s.items[i].Timestamp.Before(since) })
	out := make([]cascade.ErrorOccurrence, 0, len(s.items)-start)
	for _, occ := range s.items[start:] {
		if occ.Timestamp.After(now) {
			break
		}
		out = append(out, *copyOccurrence(occ))
	}
	return out, nil
}

// List 列出错误记录
func (s *MemoryStore) List(ctx context.Context, filter *Filter, pagination *Pagination) ([]*cascade.ErrorOccurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*cascade.ErrorOccurrence
	for _, occ := range s.items {
		if filter.match(occ) {
			results = append(results, copyOccurrence(occ))
		}
	}

	if pagination != nil {
		start := pagination.Offset
		if start >= len(results) {
			return []*cascade.ErrorOccurrence{}, nil
		}
		end := len(results)
		if pagination.Limit > 0 && start+pagination.Limit < end {
			end = start + pagination.Limit
		}
		results = results[start:end]
	}
	return results, nil
}

// Count 统计错误记录数量
func (s *MemoryStore) Count(ctx context.Context, filter *Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int64
	for _, occ := range s.items {
		if filter.match(occ) {
			count++
		}
	}
	return count, nil
}

// Close 关闭存储连接
func (s *MemoryStore) Close() error {
	return nil
}
