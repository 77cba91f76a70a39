package history

import (
	"context"

	"errcascade/internal/cascade"
	"errcascade/pkg/config"
	"errcascade/pkg/errors"
)

// NewStore 根据配置创建历史错误存储
func NewStore(ctx context.Context, cfg config.HistoryConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(cfg.MaxItems), nil
	case "postgres":
		if cfg.DSN == "" {
			return nil, errors.Wrap(errors.ErrInvalidArg, "history.dsn 不能为空")
		}
		return NewPgStore(ctx, cfg.DSN)
	default:
		return nil, errors.Wrapf(errors.ErrUnsupportedType, "不支持的历史存储类型: %s", cfg.Type)
	}
}

var (
	_ Store                 = (*MemoryStore)(nil)
	_ Store                 = (*PgStore)(nil)
	_ cascade.HistorySource = (*MemoryStore)(nil)
)
