// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cascade

import (
	"context"
	"sort"

	"errcascade/pkg/errors"
	"errcascade/pkg/metrics"
	"errcascade/pkg/tracing"
)

// Update 把新观测到的错误增量折叠进图：
// 确保节点存在并记录一次发生，对时间窗口内更早的每个相关错误添加/更新一条 earlier -> new 的边，
// 最后无条件使预测缓存失效。协作服务失败只记录日志；仅在 ctx 取消时返回 error。
func (p *Predictor) Update(ctx context.Context, occ ErrorOccurrence) error {
	defer p.InvalidateCache(context.WithoutCancel(ctx))
	metrics.UpdateTotal.WithLabelValues("update").Inc()

	pattern, err := p.fingerprinter.Fingerprint(ctx, occ)
	if err != nil {
		metrics.CollaboratorFailures.WithLabelValues("fingerprint").Inc()
		p.logger.Warn("指纹计算失败，跳过本次更新", "occurrence_id", occ.ID, "error", err)
		return nil
	}

	ctx, span := tracing.StartUpdateSpan(ctx, pattern)
	defer span.End()

	seenAt := occ.Timestamp
	if seenAt.IsZero() {
		seenAt = p.now()
	}
	p.graph.AddNode(pattern, 0, seenAt)
	p.graph.RecordOccurrence(pattern, seenAt, occ.EffectiveSeverity())
	defer p.publishGraphGauges()

	if occ.Timestamp.IsZero() {
		p.logger.Warn("错误缺少时间戳，不建立关联", "pattern", pattern, "error", errors.ErrMissingTimestamp)
		return nil
	}
	if p.history == nil {
		return nil
	}

	recent, err := p.history.RecentErrors(ctx, p.cfg.TemporalWindow)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			tracing.RecordError(span, ctxErr)
			return ctxErr
		}
		metrics.CollaboratorFailures.WithLabelValues("history").Inc()
		p.logger.Warn("获取近期错误失败，仅记录节点", "pattern", pattern, "error", err)
		return nil
	}

	edges := 0
	for _, prior := range recent {
		if err := ctx.Err(); err != nil {
			tracing.RecordError(span, err)
			return err
		}
		if !p.precedes(prior, occ) {
			continue
		}
		priorPattern, err := p.fingerprinter.Fingerprint(ctx, prior)
		if err != nil {
			metrics.CollaboratorFailures.WithLabelValues("fingerprint").Inc()
			p.logger.Warn("历史错误指纹计算失败，跳过", "occurrence_id", prior.ID, "error", err)
			continue
		}
		if priorPattern == pattern {
			continue
		}
		related, weight := p.estimator.assess(ctx, prior, occ, priorPattern, pattern)
		if !related {
			continue
		}
		p.graph.AddEdge(priorPattern, pattern, weight, occ.Timestamp)
		edges++
	}
	metrics.UpdateTotal.WithLabelValues("edge").Add(float64(edges))
	p.logger.Debug("增量更新完成", "pattern", pattern, "candidates", len(recent), "edges", edges)
	return nil
}

// precedes prior 是否是 occ 之前（或同时）在时间窗口内发生的另一条记录
func (p *Predictor) precedes(prior, occ ErrorOccurrence) bool {
	if prior.Timestamp.IsZero() {
		return false
	}
	if prior.ID != "" && prior.ID == occ.ID {
		return false
	}
	if prior.Timestamp.After(occ.Timestamp) {
		return false
	}
	return occ.Timestamp.Sub(prior.Timestamp) <= p.cfg.TemporalWindow
}

// Seed 启动时从历史错误源加载 SeedLookback 内的错误来播种图，返回新增/更新的边数
func (p *Predictor) Seed(ctx context.Context) (int, error) {
	if p.history == nil {
		return 0, nil
	}
	occs, err := p.history.RecentErrors(ctx, p.cfg.SeedLookback)
	if err != nil {
		metrics.CollaboratorFailures.WithLabelValues("history").Inc()
		return 0, errors.Wrap(err, "load seed history")
	}
	return p.SeedFrom(ctx, occs)
}

type fingerprinted struct {
	occ     ErrorOccurrence
	pattern string
}

// SeedFrom 用给定的历史错误播种图：按时间排序，每条记录一次发生，
// 并与窗口内更早的相关错误建立 earlier -> later 的边。完成后使缓存失效。
func (p *Predictor) SeedFrom(ctx context.Context, occs []ErrorOccurrence) (int, error) {
	ctx, span := tracing.StartSeedSpan(ctx, len(occs))
	defer span.End()
	defer p.InvalidateCache(context.WithoutCancel(ctx))
	defer p.publishGraphGauges()

	items := make([]fingerprinted, 0, len(occs))
	for _, occ := range occs {
		if occ.Timestamp.IsZero() {
			continue
		}
		pattern, err := p.fingerprinter.Fingerprint(ctx, occ)
		if err != nil {
			metrics.CollaboratorFailures.WithLabelValues("fingerprint").Inc()
			p.logger.Warn("历史错误指纹计算失败，跳过", "occurrence_id", occ.ID, "error", err)
			continue
		}
		items = append(items, fingerprinted{occ: occ, pattern: pattern})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].occ.Timestamp.Before(items[j].occ.Timestamp)
	})

	edges := 0
	for i, cur := range items {
		if err := ctx.Err(); err != nil {
			tracing.RecordError(span, err)
			return edges, err
		}
		p.graph.AddNode(cur.pattern, 0, cur.occ.Timestamp)
		p.graph.RecordOccurrence(cur.pattern, cur.occ.Timestamp, cur.occ.EffectiveSeverity())

		for j := i - 1; j >= 0; j-- {
			prev := items[j]
			if cur.occ.Timestamp.Sub(prev.occ.Timestamp) > p.cfg.TemporalWindow {
				break
			}
			if prev.pattern == cur.pattern {
				continue
			}
			related, weight := p.estimator.assess(ctx, prev.occ, cur.occ, prev.pattern, cur.pattern)
			if !related {
				continue
			}
			p.graph.AddEdge(prev.pattern, cur.pattern, weight, cur.occ.Timestamp)
			edges++
		}
	}
	p.logger.Info("错误模式图播种完成", "occurrences", len(items), "edges", edges)
	return edges, nil
}
