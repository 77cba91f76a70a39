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

	"errcascade/internal/cascade"
	"errcascade/internal/storage/history"
	"errcascade/pkg/errors"
	"errcascade/pkg/log"
)

// Service 宿主侧入口：上报错误时先写入历史存储，再增量更新图
type Service struct {
	history   history.Store
	predictor *cascade.Predictor
	logger    *log.Logger
}

// NewService 基于 Bootstrap 创建 Service
func NewService(b *Bootstrap) *Service {
	return &Service{history: b.History, predictor: b.Predictor, logger: b.Logger}
}

// Report 记录一次错误并更新图。写入历史失败时返回错误且不更新图。
func (s *Service) Report(ctx context.Context, occ *cascade.ErrorOccurrence) error {
	if occ == nil {
		return errors.Wrap(errors.ErrInvalidArg, "nil occurrence")
	}
	if err := s.history.Append(ctx, occ); err != nil {
		return errors.Wrap(err, "append occurrence")
	}
	return s.predictor.Update(ctx, *occ)
}

// Predict 预测 occ 之后可能出现的错误级联
func (s *Service) Predict(ctx context.Context, occ cascade.ErrorOccurrence, opts ...cascade.PredictOption) (*cascade.PredictionResult, error) {
	return s.predictor.Predict(ctx, occ, opts...)
}

// Seed 从历史存储播种图
func (s *Service) Seed(ctx context.Context) (int, error) {
	n, err := s.predictor.Seed(ctx)
	if err != nil {
		return 0, err
	}
	st := s.predictor.GraphStatistics()
	s.logger.Info("历史错误播种完成", "edges", n, "nodes", st.Nodes, "total_edges", st.Edges)
	return n, nil
}

// Stats 返回图统计
func (s *Service) Stats() cascade.GraphStats {
	return s.predictor.GraphStatistics()
}
