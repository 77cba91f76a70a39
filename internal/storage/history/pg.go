package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"errcascade/internal/cascade"
	"errcascade/pkg/errors"
)

const schemaSQL = `CREATE TABLE IF NOT EXISTS error_occurrences (
	id          TEXT PRIMARY KEY,
	occurred_at TIMESTAMPTZ NOT NULL,
	source      TEXT NOT NULL DEFAULT '',
	severity    TEXT NOT NULL DEFAULT '',
	type        TEXT NOT NULL DEFAULT '',
	message     TEXT NOT NULL DEFAULT '',
	attributes  JSONB NOT NULL DEFAULT '{}'::jsonb
);
CREATE INDEX IF NOT EXISTS idx_error_occurrences_occurred_at ON error_occurrences (occurred_at);`

const selectColumns = `SELECT id, occurred_at, source, severity, type, message, attributes FROM error_occurrences `

// PgStore 基于 PostgreSQL 的历史错误存储
type PgStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPgStore 创建 PostgreSQL 历史错误存储并确保表结构存在
func NewPgStore(ctx context.Context, dsn string) (*PgStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	s := &PgStore{pool: pool, now: time.Now}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema 创建 error_occurrences 表及索引
func (s *PgStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}

// Append 追加一条错误记录
func (s *PgStore) Append(ctx context.Context, occ *cascade.ErrorOccurrence) error {
	if occ == nil {
		return errors.Wrap(errors.ErrInvalidArg, "nil occurrence")
	}
	if occ.ID == "" {
		occ.ID = "err-" + uuid.New().String()
	}
	if occ.Timestamp.IsZero() {
		occ.Timestamp = s.now()
	}
	attrs := occ.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO error_occurrences (id, occurred_at, source, severity, type, message, attributes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		occ.ID, occ.Timestamp, occ.Source, string(occ.Severity), occ.Type, occ.Message, raw)
	return err
}

// Get 根据 ID 获取错误记录
func (s *PgStore) Get(ctx context.Context, id string) (*cascade.ErrorOccurrence, error) {
	rows, err := s.pool.Query(ctx, selectColumns+`WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	out, err := scanOccurrences(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "occurrence %s", id)
	}
	return out[0], nil
}

// RecentErrors 返回 [now-window, now] 内的错误
func (s *PgStore) RecentErrors(ctx context.Context, window time.Duration) ([]cascade.ErrorOccurrence, error) {
	now := s.now()
	list, err := s.List(ctx, &Filter{Since: now.Add(-window), Until: now}, nil)
	if err != nil {
		return nil, err
	}
	out := make([]cascade.ErrorOccurrence, len(list))
	for i, occ := range list {
		out[i] = *occ
	}
	return out, nil
}

// List 列出错误记录
func (s *PgStore) List(ctx context.Context, filter *Filter, pagination *Pagination) ([]*cascade.ErrorOccurrence, error) {
	where, args := buildWhere(filter)
	query := selectColumns + where + ` ORDER BY occurred_at ASC, id ASC`
	if pagination != nil {
		if pagination.Limit > 0 {
			args = append(args, pagination.Limit)
			query += fmt.Sprintf(" LIMIT $%d", len(args))
		}
		if pagination.Offset > 0 {
			args = append(args, pagination.Offset)
			query += fmt.Sprintf(" OFFSET $%d", len(args))
		}
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanOccurrences(rows)
}

// Count 统计错误记录数量
func (s *PgStore) Count(ctx context.Context, filter *Filter) (int64, error) {
	where, args := buildWhere(filter)
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM error_occurrences `+where, args...).Scan(&n)
	return n, err
}

// Close 关闭连接池
func (s *PgStore) Close() error {
	s.pool.Close()
	return nil
}

func buildWhere(f *Filter) (string, []any) {
	if f == nil {
		return "", nil
	}
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if len(f.Sources) > 0 {
		add("source = ANY($%d)", f.Sources)
	}
	if len(f.Types) > 0 {
		add("type = ANY($%d)", f.Types)
	}
	if len(f.Severities) > 0 {
		sev := make([]string, len(f.Severities))
		for i, s := range f.Severities {
			sev[i] = string(s)
		}
		// 空 severity 视为 medium
		add("COALESCE(NULLIF(severity, ''), 'medium') = ANY($%d)", sev)
	}
	if !f.Since.IsZero() {
		add("occurred_at >= $%d", f.Since)
	}
	if !f.Until.IsZero() {
		add("occurred_at <= $%d", f.Until)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func scanOccurrences(rows pgx.Rows) ([]*cascade.ErrorOccurrence, error) {
	defer rows.Close()
	var out []*cascade.ErrorOccurrence
	for rows.Next() {
		var occ cascade.ErrorOccurrence
		var severity string
		var attrs []byte
		if err := rows.Scan(&occ.ID, &occ.Timestamp, &occ.Source, &severity, &occ.Type, &occ.Message, &attrs); err != nil {
			return nil, err
		}
		occ.Severity = cascade.Severity(severity)
		if len(attrs) > 0 {
			_ = json.Unmarshal(attrs, &occ.Attributes)
			if len(occ.Attributes) == 0 {
				occ.Attributes = nil
			}
		}
		out = append(out, &occ)
	}
	return out, rows.Err()
}
