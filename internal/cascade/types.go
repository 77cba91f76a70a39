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

// Package cascade 将观测到的错误建模为有向加权图，并预测某个错误之后可能出现的错误链。
//
// 图由历史错误在启动时播种（Seed），之后每个新错误通过 Update 增量折叠进图中；
// Predict 在图上做有界深度优先搜索，返回按概率排序的候选级联与风险摘要。
// 外部协作服务（指纹、相似度、时间衰减、历史错误源）的失败一律按“不相关”处理，不向上抛出。
package cascade

import (
	"context"
	"math"
	"strings"
	"time"
)

// Severity 错误严重级别
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ParseSeverity 解析严重级别，未知或空值返回 medium
func ParseSeverity(s string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityLow:
		return SeverityLow
	case SeverityHigh:
		return SeverityHigh
	case SeverityCritical:
		return SeverityCritical
	default:
		return SeverityMedium
	}
}

func (s Severity) rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 2
	}
}

// ErrorOccurrence 一次错误发生记录。引擎只消费 Timestamp/Source/Severity，其余字段供指纹服务使用。
type ErrorOccurrence struct {
	ID         string            `json:"id"`
	Timestamp  time.Time         `json:"timestamp"`
	Source     string            `json:"source,omitempty"`
	Severity   Severity          `json:"severity,omitempty"`
	Type       string            `json:"type,omitempty"`
	Message    string            `json:"message,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// EffectiveSeverity 未设置时默认为 medium
func (o ErrorOccurrence) EffectiveSeverity() Severity {
	if o.Severity == "" {
		return SeverityMedium
	}
	return ParseSeverity(string(o.Severity))
}

// Fingerprinter 将一次错误映射为稳定的模式标识
type Fingerprinter interface {
	Fingerprint(ctx context.Context, occ ErrorOccurrence) (string, error)
}

// SimilarityService 计算两个指纹的上下文相似度，取值 [0,1]
type SimilarityService interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// DecayService 根据时间戳给出时间衰减系数，取值 [0,1]，越近越接近 1
type DecayService interface {
	TemporalDecay(ctx context.Context, at time.Time) (float64, error)
}

// HistorySource 提供最近 window 时长内观测到的错误
type HistorySource interface {
	RecentErrors(ctx context.Context, window time.Duration) ([]ErrorOccurrence, error)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
