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
	"time"

	"errcascade/internal/cascade"
	"errcascade/pkg/config"
	"errcascade/pkg/errors"
)

// NewSimilarity 根据配置创建相似度服务，并按 rate_limit 包装
func NewSimilarity(cfg config.SignalsConfig) (cascade.SimilarityService, error) {
	var svc cascade.SimilarityService
	switch cfg.Similarity.Type {
	case "", "token":
		svc = NewTokenSimilarity()
	case "http":
		if cfg.Similarity.Endpoint == "" {
			return nil, errors.Wrap(errors.ErrInvalidArg, "signals.similarity.endpoint 不能为空")
		}
		svc = NewHTTPSimilarity(cfg.Similarity.Endpoint, config.DurationOr(cfg.Similarity.Timeout, 5*time.Second))
	default:
		return nil, errors.Wrapf(errors.ErrUnsupportedType, "不支持的相似度服务类型: %s", cfg.Similarity.Type)
	}
	return NewRateLimitedSimilarity(svc, cfg.RateLimit.QPS, cfg.RateLimit.Burst), nil
}
