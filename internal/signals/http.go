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
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

type similarityRequest struct {
	A string `json:"a"`
	B string `json:"b"`
}

type similarityResponse struct {
	Score float64 `json:"score"`
}

// HTTPSimilarity 调用远端相似度服务：POST {a,b} -> {score}
type HTTPSimilarity struct {
	endpoint string
	client   *resty.Client
}

// NewHTTPSimilarity 创建远端相似度客户端，timeout<=0 时使用 5s
func NewHTTPSimilarity(endpoint string, timeout time.Duration) *HTTPSimilarity {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &HTTPSimilarity{endpoint: endpoint, client: client}
}

// Similarity 实现 cascade.SimilarityService，分数超出 [0,1] 视为错误
func (h *HTTPSimilarity) Similarity(ctx context.Context, a, b string) (float64, error) {
	var out similarityResponse
	resp, err := h.client.R().
		SetContext(ctx).
		SetBody(similarityRequest{A: a, B: b}).
		SetResult(&out).
		Post(h.endpoint)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("similarity service: %s: %s", resp.Status(), resp.String())
	}
	if out.Score < 0 || out.Score > 1 {
		return 0, fmt.Errorf("similarity service returned out-of-range score %v", out.Score)
	}
	return out.Score, nil
}
