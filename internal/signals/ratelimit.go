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

package signals

import (
	"context"

	"golang.org/x/time/rate"

	"errcascade/internal/cascade"
)

// RateLimitedSimilarity 对下游相似度服务限流，等待超出 ctx 时返回错误（由引擎按失败处理）
type RateLimitedSimilarity struct {
	next    cascade.SimilarityService
	limiter *rate.Limiter
}

// NewRateLimitedSimilarity 包装相似度服务；qps<=0 时直接返回 next
func NewRateLimitedSimilarity(next cascade.SimilarityService, qps float64, burst int) cascade.SimilarityService {
	if qps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedSimilarity{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(qps), burst),
	}
}

// Similarity 实现 cascade.SimilarityService
func (r *RateLimitedSimilarity) Similarity(ctx context.Context, a, b string) (float64, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return r.next.Similarity(ctx, a, b)
}
