package history

import (
	"context"
	"time"

	"errcascade/internal/cascade"
)

// Store 历史错误存储接口，同时作为 cascade.HistorySource 使用
type Store interface {
	// Append 追加一条错误记录，ID 为空时自动生成
	Append(ctx context.Context, occ *cascade.ErrorOccurrence) error
	// Get 根据 ID 获取错误记录
	Get(ctx context.Context, id string) (*cascade.ErrorOccurrence, error)
	// RecentErrors 返回最近 window 时长内的错误，按时间升序
	RecentErrors(ctx context.Context, window time.Duration) ([]cascade.ErrorOccurrence, error)
	// List 按条件列出错误记录，按时间升序
	List(ctx context.Context, filter *Filter, pagination *Pagination) ([]*cascade.ErrorOccurrence, error)
	// Count 统计错误记录数量
	Count(ctx context.Context, filter *Filter) (int64, error)
	// Close 关闭存储连接
	Close() error
}

// Filter 过滤条件，零值字段不参与过滤
type Filter struct {
	Sources    []string           `json:"sources"`
	Severities []cascade.Severity `json:"severities"`
	Types      []string           `json:"types"`
	Since      time.Time          `json:"since"`
	Until      time.Time          `json:"until"`
}

// Pagination 分页参数
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

func (f *Filter) match(occ *cascade.ErrorOccurrence) bool {
	if f == nil {
		return true
	}
	if len(f.Sources) > 0 && !contains(f.Sources, occ.Source) {
		return false
	}
	if len(f.Types) > 0 && !contains(f.Types, occ.Type) {
		return false
	}
	if len(f.Severities) > 0 {
		found := false
		for _, s := range f.Severities {
			if occ.EffectiveSeverity() == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.Since.IsZero() && occ.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && occ.Timestamp.After(f.Until) {
		return false
	}
	return true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
