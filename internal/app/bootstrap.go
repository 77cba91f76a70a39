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

package app

import (
	"context"
	"fmt"
	"time"

	"errcascade/internal/cascade"
	"errcascade/internal/signals"
	"errcascade/internal/storage/cache"
	"errcascade/internal/storage/history"
	"errcascade/pkg/config"
	"errcascade/pkg/log"
)

// Bootstrap 统一初始化：日志、存储、协作服务与预测器，供 cmd 复用
type Bootstrap struct {
	Config    *config.Config
	Logger    *log.Logger
	History   history.Store
	Cache     cache.Store
	Predictor *cascade.Predictor
}

// NewBootstrap 根据配置创建 Bootstrap，cfg 为 nil 时使用默认配置
func NewBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger, err := log.NewLogger(&log.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	historyStore, err := history.NewStore(ctx, cfg.Storage.History)
	if err != nil {
		return nil, fmt.Errorf("初始化历史错误存储失败: %w", err)
	}
	cacheStore, err := cache.NewCache(ctx, cfg.Storage.Cache)
	if err != nil {
		_ = historyStore.Close()
		return nil, fmt.Errorf("初始化预测缓存失败: %w", err)
	}
	similarity, err := signals.NewSimilarity(cfg.Signals)
	if err != nil {
		_ = historyStore.Close()
		_ = cacheStore.Close()
		return nil, fmt.Errorf("初始化相似度服务失败: %w", err)
	}

	predictor, err := cascade.NewPredictor(EngineConfig(cfg.Engine), cascade.Deps{
		Fingerprinter: signals.NewMessageFingerprinter(),
		Similarity:    similarity,
		Decay:         signals.NewExponentialDecay(config.DurationOr(cfg.Engine.DecayHalfLife, time.Hour)),
		History:       historyStore,
		Cache:         cacheStore,
	}, logger.With("component", "cascade"))
	if err != nil {
		_ = historyStore.Close()
		_ = cacheStore.Close()
		return nil, fmt.Errorf("初始化预测器失败: %w", err)
	}

	logger.Info("预测引擎初始化完成",
		"history", cfg.Storage.History.Type,
		"cache", cfg.Storage.Cache.Type,
		"similarity", cfg.Signals.Similarity.Type)

	return &Bootstrap{
		Config:    cfg,
		Logger:    logger,
		History:   historyStore,
		Cache:     cacheStore,
		Predictor: predictor,
	}, nil
}

// EngineConfig 把配置文件中的引擎参数转换为 cascade.Config，无法解析的时长使用默认值
func EngineConfig(c config.EngineConfig) cascade.Config {
	d := cascade.DefaultConfig()
	return cascade.Config{
		TemporalWindow:      config.DurationOr(c.TemporalWindow, d.TemporalWindow),
		CacheTTL:            config.DurationOr(c.CacheTTL, d.CacheTTL),
		MaxChainLength:      c.MaxChainLength,
		MinConfidence:       c.MinConfidence,
		ResultLimit:         c.ResultLimit,
		SimilarityThreshold: c.SimilarityThreshold,
		FrequencyFactor:     c.FrequencyFactor,
		SeedLookback:        config.DurationOr(c.SeedLookback, d.SeedLookback),
	}
}

// Close 释放存储连接
func (b *Bootstrap) Close() error {
	var firstErr error
	if b.Cache != nil {
		if err := b.Cache.Close(); err != nil {
			firstErr = err
		}
	}
	if b.History != nil {
		if err := b.History.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
