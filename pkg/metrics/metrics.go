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

package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供宿主进程注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		PredictDuration, PredictTotal, ChainsReturned,
		UpdateTotal, CollaboratorFailures,
		GraphNodes, GraphEdges,
	)
}

// PredictDuration 预测耗时（秒），仅统计未命中缓存的链搜索
var PredictDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "errcascade_predict_duration_seconds",
		Help:    "链搜索耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
)

// PredictTotal 预测请求数（按结果）
var PredictTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "errcascade_predict_total",
		Help: "预测请求总数",
	},
	[]string{"result"}, // cache_hit | cache_miss | unseen
)

// ChainsReturned 每次预测返回的链数量
var ChainsReturned = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "errcascade_chains_returned",
		Help:    "每次预测返回的链数量",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
	},
)

// UpdateTotal 增量更新次数与新增/更新的边数
var UpdateTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "errcascade_update_total",
		Help: "增量更新计数",
	},
	[]string{"kind"}, // update | edge
)

// CollaboratorFailures 外部协作服务失败次数（失败后按“不相关”处理）
var CollaboratorFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "errcascade_collaborator_failures_total",
		Help: "外部协作服务调用失败次数",
	},
	[]string{"collaborator"}, // fingerprint | similarity | decay | history
)

// GraphNodes 当前图中节点数
var GraphNodes = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "errcascade_graph_nodes",
		Help: "错误模式图节点数",
	},
)

// GraphEdges 当前图中边数
var GraphEdges = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "errcascade_graph_edges",
		Help: "错误模式图边数",
	},
)

// WritePrometheus 将 Prometheus 文本格式写入 w
func WritePrometheus(w io.Writer) error {
	mfs, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
