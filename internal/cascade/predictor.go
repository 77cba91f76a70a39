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
	"fmt"
	"sync/atomic"
	"time"

	"errcascade/internal/storage/cache"
	"errcascade/pkg/errors"
	"errcascade/pkg/log"
	"errcascade/pkg/metrics"
	"errcascade/pkg/tracing"
)

// PredictionResult 一次预测的完整结果，Confidence 为按链长加权的平均概率
type PredictionResult struct {
	Pattern     string    `json:"pattern"`
	Chains      []Chain   `json:"chains"`
	Confidence  float64   `json:"confidence"`
	Summary     Summary   `json:"summary"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Deps Predictor 依赖的外部协作服务
type Deps struct {
	Fingerprinter Fingerprinter
	Similarity    SimilarityService
	Decay         DecayService
	// History 为 nil 时 Update 只记录节点，不建立边
	History HistorySource
	// Cache 为 nil 时使用进程内缓存
	Cache cache.Store
}

// Predictor 宿主进程持有的单个预测器实例：拥有错误模式图与预测缓存
type Predictor struct {
	cfg           Config
	graph         *Graph
	estimator     *Estimator
	searcher      ChainSearcher
	fingerprinter Fingerprinter
	history       HistorySource
	cache         cache.Store
	logger        *log.Logger
	now           func() time.Time

	// generation 是缓存键的一部分，失效时原子递增，旧结果不会再被读到
	generation atomic.Uint64
}

// NewPredictor 创建预测器。Config 中为零的字段（时长、长度、置信度、相似度阈值、频率因子）使用默认值，
// 需要零置信度时在单次预测上使用 WithMinConfidence(0)。
func NewPredictor(cfg Config, deps Deps, logger *log.Logger) (*Predictor, error) {
	if deps.Fingerprinter == nil || deps.Similarity == nil || deps.Decay == nil {
		return nil, errors.Wrap(errors.ErrInvalidArg, "fingerprinter, similarity and decay are required")
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	cfg = cfg.withDefaults()
	if deps.Cache == nil {
		deps.Cache = cache.NewMemoryStore()
	}
	graph := NewGraph()
	return &Predictor{
		cfg:           cfg,
		graph:         graph,
		estimator:     NewEstimator(cfg, deps.Fingerprinter, deps.Similarity, logger),
		searcher:      NewSearchEngine(graph, deps.Decay, logger),
		fingerprinter: deps.Fingerprinter,
		history:       deps.History,
		cache:         deps.Cache,
		logger:        logger,
		now:           time.Now,
	}, nil
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TemporalWindow <= 0 {
		c.TemporalWindow = d.TemporalWindow
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = d.CacheTTL
	}
	if c.MaxChainLength <= 0 {
		c.MaxChainLength = d.MaxChainLength
	}
	if c.ResultLimit <= 0 {
		c.ResultLimit = d.ResultLimit
	}
	if c.SeedLookback <= 0 {
		c.SeedLookback = d.SeedLookback
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = d.MinConfidence
	}
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = d.SimilarityThreshold
	}
	if c.FrequencyFactor <= 0 {
		c.FrequencyFactor = d.FrequencyFactor
	}
	c.MinConfidence = clamp01(c.MinConfidence)
	c.SimilarityThreshold = clamp01(c.SimilarityThreshold)
	c.FrequencyFactor = clamp01(c.FrequencyFactor)
	return c
}

// WithSearcher 替换链搜索实现
func (p *Predictor) WithSearcher(s ChainSearcher) *Predictor {
	p.searcher = s
	return p
}

// Graph 返回预测器拥有的图
func (p *Predictor) Graph() *Graph { return p.graph }

// Estimator 返回关系估计器
func (p *Predictor) Estimator() *Estimator { return p.estimator }

// Config 返回生效的参数
func (p *Predictor) Config() Config { return p.cfg }

// Predict 预测 occ 之后可能出现的错误级联。
// 未见过的模式、指纹失败都返回空结果且置信度为 0；只有 ctx 取消时返回 error。
func (p *Predictor) Predict(ctx context.Context, occ ErrorOccurrence, opts ...PredictOption) (*PredictionResult, error) {
	so := p.cfg.searchOptions(opts)

	pattern, err := p.fingerprinter.Fingerprint(ctx, occ)
	if err != nil {
		metrics.CollaboratorFailures.WithLabelValues("fingerprint").Inc()
		p.logger.Warn("指纹计算失败，返回空预测", "occurrence_id", occ.ID, "error", err)
		metrics.PredictTotal.WithLabelValues("unseen").Inc()
		return p.emptyResult(""), nil
	}

	ctx, span := tracing.StartPredictSpan(ctx, pattern, so.MaxLength, so.MinConfidence)
	defer span.End()

	if !p.graph.HasNode(pattern) {
		metrics.PredictTotal.WithLabelValues("unseen").Inc()
		return p.emptyResult(pattern), nil
	}

	key := cacheKey(p.generation.Load(), pattern, so)
	var cached PredictionResult
	switch err := p.cache.Get(ctx, key, &cached); {
	case err == nil:
		metrics.PredictTotal.WithLabelValues("cache_hit").Inc()
		return &cached, nil
	case !errors.Is(err, errors.ErrNotFound):
		p.logger.Warn("读取预测缓存失败，直接计算", "pattern", pattern, "error", err)
	}
	metrics.PredictTotal.WithLabelValues("cache_miss").Inc()

	start := time.Now()
	chains := p.searcher.FindChains(ctx, pattern, so)
	metrics.PredictDuration.Observe(time.Since(start).Seconds())
	if err := ctx.Err(); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	metrics.ChainsReturned.Observe(float64(len(chains)))

	if chains == nil {
		chains = []Chain{}
	}
	result := &PredictionResult{
		Pattern:     pattern,
		Chains:      chains,
		Confidence:  Confidence(chains),
		Summary:     Summarize(chains),
		GeneratedAt: p.now(),
	}
	if err := p.cache.Set(ctx, key, result, p.cfg.CacheTTL); err != nil {
		p.logger.Warn("写入预测缓存失败", "pattern", pattern, "error", err)
	}
	return result, nil
}

func (p *Predictor) emptyResult(pattern string) *PredictionResult {
	return &PredictionResult{
		Pattern:     pattern,
		Chains:      []Chain{},
		Summary:     Summarize(nil),
		GeneratedAt: p.now(),
	}
}

func cacheKey(gen uint64, pattern string, so SearchOptions) string {
	return fmt.Sprintf("predict:%d:%s:%d:%g:%d", gen, pattern, so.MaxLength, so.MinConfidence, so.Limit)
}

// InvalidateCache 使全部缓存的预测失效。递增代号是原子的，随后尽力清空底层存储。
func (p *Predictor) InvalidateCache(ctx context.Context) {
	p.generation.Add(1)
	if err := p.cache.Clear(ctx); err != nil {
		p.logger.Warn("清空预测缓存失败，旧条目将按 TTL 过期", "error", err)
	}
}

// GraphStatistics 全量计算图统计，MaxChainLength 为当前的搜索长度上限
func (p *Predictor) GraphStatistics() GraphStats {
	st := p.graph.Stats()
	st.MaxChainLength = p.cfg.MaxChainLength
	return st
}

func (p *Predictor) publishGraphGauges() {
	st := p.graph.Stats()
	metrics.GraphNodes.Set(float64(st.Nodes))
	metrics.GraphEdges.Set(float64(st.Edges))
}
