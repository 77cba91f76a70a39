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

import "time"

// 默认参数
const (
	DefaultTemporalWindow      = time.Hour
	DefaultCacheTTL            = 60 * time.Second
	DefaultMaxChainLength      = 5
	DefaultMinConfidence       = 0.6
	DefaultResultLimit         = 10
	DefaultSimilarityThreshold = 0.5
	DefaultFrequencyFactor     = 0.5
	DefaultSeedLookback        = 24 * time.Hour
)

// Config 引擎参数
type Config struct {
	TemporalWindow      time.Duration
	CacheTTL            time.Duration
	MaxChainLength      int
	MinConfidence       float64
	ResultLimit         int
	SimilarityThreshold float64
	FrequencyFactor     float64
	SeedLookback        time.Duration
}

// DefaultConfig 返回默认参数
func DefaultConfig() Config {
	return Config{
		TemporalWindow:      DefaultTemporalWindow,
		CacheTTL:            DefaultCacheTTL,
		MaxChainLength:      DefaultMaxChainLength,
		MinConfidence:       DefaultMinConfidence,
		ResultLimit:         DefaultResultLimit,
		SimilarityThreshold: DefaultSimilarityThreshold,
		FrequencyFactor:     DefaultFrequencyFactor,
		SeedLookback:        DefaultSeedLookback,
	}
}

// SearchOptions 一次链搜索的参数（已补全默认值）
type SearchOptions struct {
	MaxLength     int
	MinConfidence float64
	Limit         int
}

// PredictOption 覆盖单次预测的参数
type PredictOption func(*SearchOptions)

// WithMaxLength 设置最大链长度（含起点）
func WithMaxLength(n int) PredictOption {
	return func(o *SearchOptions) {
		if n > 0 {
			o.MaxLength = n
		}
	}
}

// WithMinConfidence 设置最小置信度，取值 [0,1]
func WithMinConfidence(c float64) PredictOption {
	return func(o *SearchOptions) {
		o.MinConfidence = clamp01(c)
	}
}

// WithLimit 设置返回链数量上限
func WithLimit(n int) PredictOption {
	return func(o *SearchOptions) {
		if n > 0 {
			o.Limit = n
		}
	}
}

func (c Config) searchOptions(opts []PredictOption) SearchOptions {
	o := SearchOptions{
		MaxLength:     c.MaxChainLength,
		MinConfidence: c.MinConfidence,
		Limit:         c.ResultLimit,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o.normalize()
}

func (o SearchOptions) normalize() SearchOptions {
	if o.MaxLength <= 0 {
		o.MaxLength = DefaultMaxChainLength
	}
	if o.Limit <= 0 {
		o.Limit = DefaultResultLimit
	}
	o.MinConfidence = clamp01(o.MinConfidence)
	return o
}
