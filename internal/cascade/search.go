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
	"strings"

	"errcascade/pkg/log"
	"errcascade/pkg/metrics"
)

// Chain 一条级联：不含重复模式的简单路径
type Chain struct {
	Patterns    []string `json:"patterns"`
	Probability float64  `json:"probability"`
	Length      int      `json:"length"`
}

// String 渲染为 "A -> B -> C"
func (c Chain) String() string {
	return strings.Join(c.Patterns, " -> ")
}

// ChainSearcher 从起点模式枚举候选级联
type ChainSearcher interface {
	FindChains(ctx context.Context, start string, opts SearchOptions) []Chain
}

// SearchEngine 在 Graph 上做有界深度优先搜索。
// 整个搜索期间持有图的读锁，看到的是一致的图。
type SearchEngine struct {
	graph  *Graph
	decay  DecayService
	logger *log.Logger
}

// NewSearchEngine 创建链搜索引擎
func NewSearchEngine(graph *Graph, decay DecayService, logger *log.Logger) *SearchEngine {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &SearchEngine{graph: graph, decay: decay, logger: logger}
}

// FindChains 枚举从 start 出发的所有达到置信度的链，按概率降序返回前 Limit 条。
// 起点不在图中时返回空结果。
func (s *SearchEngine) FindChains(ctx context.Context, start string, opts SearchOptions) []Chain {
	opts = opts.normalize()

	s.graph.mu.RLock()
	defer s.graph.mu.RUnlock()

	if _, ok := s.graph.nodes[start]; !ok {
		return nil
	}

	w := &walker{
		ctx:     ctx,
		graph:   s.graph,
		decay:   s.decay,
		opts:    opts,
		path:    []string{start},
		visited: map[string]bool{start: true},
		factors: make(map[*Edge]float64),
	}
	w.walk(start, 1.0)
	if w.decayFailures > 0 {
		metrics.CollaboratorFailures.WithLabelValues("decay").Add(float64(w.decayFailures))
		s.logger.Warn("时间衰减计算失败，相关边已剪枝", "pattern", start, "failures", w.decayFailures)
	}

	sortChains(w.chains)
	if len(w.chains) > opts.Limit {
		w.chains = w.chains[:opts.Limit]
	}
	return w.chains
}

// walker 单次搜索的状态。visited 只描述当前路径，回溯时出栈，兄弟分支之间互不影响。
type walker struct {
	ctx     context.Context
	graph   *Graph
	decay   DecayService
	opts    SearchOptions
	path    []string
	visited map[string]bool
	// 同一条边在一次搜索中只取一次衰减系数，-1 表示取值失败
	factors       map[*Edge]float64
	decayFailures int
	chains        []Chain
}

// walk path 的末尾即 current，prob 为 path 的概率
func (w *walker) walk(current string, prob float64) {
	if w.ctx.Err() != nil {
		return
	}
	if len(w.path) >= w.opts.MaxLength {
		return
	}
	// 目标节点尚未记录过发生时不在图中，视为没有出边
	for _, e := range w.graph.sortedEdgesLocked(current) {
		if w.visited[e.To] {
			continue
		}
		factor, ok := w.factor(e)
		if !ok {
			continue
		}
		p := prob * e.Weight * factor
		if p < w.opts.MinConfidence {
			// 概率随链延长单调不增，更深的路径不可能再达标
			continue
		}

		w.path = append(w.path, e.To)
		w.visited[e.To] = true

		w.record(p)
		w.walk(e.To, p)

		delete(w.visited, e.To)
		w.path = w.path[:len(w.path)-1]
	}
}

func (w *walker) record(p float64) {
	patterns := make([]string, len(w.path))
	copy(patterns, w.path)
	w.chains = append(w.chains, Chain{Patterns: patterns, Probability: p, Length: len(patterns)})
}

func (w *walker) factor(e *Edge) (float64, bool) {
	if f, ok := w.factors[e]; ok {
		return f, f >= 0
	}
	f, err := w.decay.TemporalDecay(w.ctx, e.LastSeen)
	if err != nil {
		w.decayFailures++
		w.factors[e] = -1
		return 0, false
	}
	f = clamp01(f)
	w.factors[e] = f
	return f, true
}

// sortChains 概率降序；同概率时短链优先，再按路径字典序，保证输出稳定
func sortChains(chains []Chain) {
	sort.SliceStable(chains, func(i, j int) bool {
		if chains[i].Probability != chains[j].Probability {
			return chains[i].Probability > chains[j].Probability
		}
		if chains[i].Length != chains[j].Length {
			return chains[i].Length < chains[j].Length
		}
		return chains[i].String() < chains[j].String()
	})
}
