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
	"math"
	"time"

	"errcascade/pkg/log"
	"errcascade/pkg/metrics"
)

// 边权重各分量的系数
const (
	temporalCoefficient   = 0.4
	similarityCoefficient = 0.3
	frequencyCoefficient  = 0.3
)

// Estimator 判断两次错误是否相关，并计算两者模式之间的有向边权重
type Estimator struct {
	window          time.Duration
	threshold       float64
	frequencyFactor float64
	fingerprinter   Fingerprinter
	similarity      SimilarityService
	logger          *log.Logger
}

// NewEstimator 创建关系估计器
func NewEstimator(cfg Config, fp Fingerprinter, sim SimilarityService, logger *log.Logger) *Estimator {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Estimator{
		window:          cfg.TemporalWindow,
		threshold:       cfg.SimilarityThreshold,
		frequencyFactor: cfg.FrequencyFactor,
		fingerprinter:   fp,
		similarity:      sim,
		logger:          logger,
	}
}

// AreRelated 两次错误的时间差在窗口内，且来源相同或指纹相似度超过阈值时为 true。
// 缺失时间戳或任何协作服务失败均返回 false。
func (e *Estimator) AreRelated(ctx context.Context, a, b ErrorOccurrence) bool {
	fpA, fpB, ok := e.fingerprintPair(ctx, a, b)
	if !ok {
		return false
	}
	related, _ := e.assess(ctx, a, b, fpA, fpB)
	return related
}

// EdgeWeight 0.4*temporalFactor + 0.3*contextSimilarity + 0.3*frequencyFactor，协作服务失败时为 0
func (e *Estimator) EdgeWeight(ctx context.Context, a, b ErrorOccurrence) float64 {
	fpA, fpB, ok := e.fingerprintPair(ctx, a, b)
	if !ok {
		return 0
	}
	sim, err := e.similarity.Similarity(ctx, fpA, fpB)
	if err != nil {
		e.collaboratorFailed("similarity", fpA, err)
		return 0
	}
	return e.weight(a, b, sim)
}

// TemporalFactor exp(-Δt / (window/2))；窗口为 0 或时间戳缺失时为 0
func (e *Estimator) TemporalFactor(a, b ErrorOccurrence) float64 {
	dt, ok := e.gap(a, b)
	if !ok || e.window <= 0 {
		return 0
	}
	half := e.window.Seconds() / 2
	return math.Exp(-dt.Seconds() / half)
}

// assess 用已计算好的指纹一次性得出相关性与权重，相似度只调用一次
func (e *Estimator) assess(ctx context.Context, a, b ErrorOccurrence, fpA, fpB string) (bool, float64) {
	dt, ok := e.gap(a, b)
	if !ok || e.window <= 0 || dt > e.window {
		return false, 0
	}
	sim, err := e.similarity.Similarity(ctx, fpA, fpB)
	if err != nil {
		e.collaboratorFailed("similarity", fpA, err)
		return false, 0
	}
	sameSource := a.Source != "" && a.Source == b.Source
	if !sameSource && sim <= e.threshold {
		return false, 0
	}
	return true, e.weight(a, b, sim)
}

func (e *Estimator) weight(a, b ErrorOccurrence, sim float64) float64 {
	w := temporalCoefficient*e.TemporalFactor(a, b) +
		similarityCoefficient*clamp01(sim) +
		frequencyCoefficient*clamp01(e.frequencyFactor)
	return clamp01(w)
}

func (e *Estimator) gap(a, b ErrorOccurrence) (time.Duration, bool) {
	if a.Timestamp.IsZero() || b.Timestamp.IsZero() {
		return 0, false
	}
	dt := b.Timestamp.Sub(a.Timestamp)
	if dt < 0 {
		dt = -dt
	}
	return dt, true
}

func (e *Estimator) fingerprintPair(ctx context.Context, a, b ErrorOccurrence) (string, string, bool) {
	fpA, err := e.fingerprinter.Fingerprint(ctx, a)
	if err != nil {
		e.collaboratorFailed("fingerprint", a.ID, err)
		return "", "", false
	}
	fpB, err := e.fingerprinter.Fingerprint(ctx, b)
	if err != nil {
		e.collaboratorFailed("fingerprint", b.ID, err)
		return "", "", false
	}
	return fpA, fpB, true
}

func (e *Estimator) collaboratorFailed(name, subject string, err error) {
	metrics.CollaboratorFailures.WithLabelValues(name).Inc()
	e.logger.Warn("协作服务调用失败，按不相关处理", "collaborator", name, "subject", subject, "error", err)
}
