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
	"sort"
	"sync"
	"time"
)

// Edge 有向边 from -> To，Weight 为该转移为因果关系的当前最佳估计
type Edge struct {
	To        string    `json:"to"`
	Weight    float64   `json:"weight"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"` // 首次观测
	LastSeen  time.Time `json:"last_seen"` // 最近一次观测
}

// NodeMetadata 模式节点的观测统计
type NodeMetadata struct {
	Occurrences int       `json:"occurrences"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	Severity    Severity  `json:"severity"`
}

// Node 模式节点，出边按目标指纹唯一
type Node struct {
	Pattern  string           `json:"pattern"`
	Edges    map[string]*Edge `json:"edges"`
	Metadata NodeMetadata     `json:"metadata"`
}

// GraphStats 图的聚合统计，按需全量计算
type GraphStats struct {
	Nodes             int     `json:"nodes"`
	Edges             int     `json:"edges"`
	AverageDegree     float64 `json:"average_degree"`
	AverageEdgeWeight float64 `json:"average_edge_weight"`
	MaxChainLength    int     `json:"max_chain_length"`
}

// Graph 错误模式图：节点与边只增不删。
// 写操作持有写锁，整图遍历（链搜索、统计）持有读锁，读者不会看到只更新了一半的边。
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*Node
}

// NewGraph 创建空图
func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// AddNode 节点不存在时创建；已存在时不修改任何元数据
func (g *Graph) AddNode(pattern string, occurrences int, seenAt time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ensureNodeLocked(pattern, occurrences, seenAt)
}

func (g *Graph) ensureNodeLocked(pattern string, occurrences int, seenAt time.Time) *Node {
	if n, ok := g.nodes[pattern]; ok {
		return n
	}
	if occurrences < 0 {
		occurrences = 0
	}
	n := &Node{
		Pattern: pattern,
		Edges:   make(map[string]*Edge),
		Metadata: NodeMetadata{
			Occurrences: occurrences,
			FirstSeen:   seenAt,
			LastSeen:    seenAt,
			Severity:    SeverityMedium,
		},
	}
	g.nodes[pattern] = n
	return n
}

// RecordOccurrence 记录一次发生：计数加一，LastSeen 单调前进，严重级别保留最高值
func (g *Graph) RecordOccurrence(pattern string, at time.Time, severity Severity) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.ensureNodeLocked(pattern, 0, at)
	n.Metadata.Occurrences++
	if n.Metadata.FirstSeen.IsZero() || (!at.IsZero() && at.Before(n.Metadata.FirstSeen)) {
		n.Metadata.FirstSeen = at
	}
	if at.After(n.Metadata.LastSeen) {
		n.Metadata.LastSeen = at
	}
	if severity.rank() > n.Metadata.Severity.rank() {
		n.Metadata.Severity = severity
	}
}

// AddEdge 添加或更新边 from -> to，from 节点不存在时自动创建。
// 已存在的边：权重取旧值与新观测的算术平均，Count 加一，LastSeen 取较新者。
func (g *Graph) AddEdge(from, to string, weight float64, at time.Time) Edge {
	weight = clamp01(weight)
	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.ensureNodeLocked(from, 0, at)
	if e, ok := n.Edges[to]; ok {
		e.Weight = (e.Weight + weight) / 2
		e.Count++
		if at.After(e.LastSeen) {
			e.LastSeen = at
		}
		return *e
	}
	e := &Edge{To: to, Weight: weight, Count: 1, Timestamp: at, LastSeen: at}
	n.Edges[to] = e
	return *e
}

// GetNode 返回节点的深拷贝，调用方可自由读取
func (g *Graph) GetNode(pattern string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[pattern]
	if !ok {
		return Node{}, false
	}
	cp := Node{Pattern: n.Pattern, Metadata: n.Metadata, Edges: make(map[string]*Edge, len(n.Edges))}
	for to, e := range n.Edges {
		ec := *e
		cp.Edges[to] = &ec
	}
	return cp, true
}

// HasNode 判断节点是否存在
func (g *Graph) HasNode(pattern string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[pattern]
	return ok
}

// Patterns 返回全部节点指纹（已排序）
func (g *Graph) Patterns() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.nodes))
	for p := range g.nodes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Stats 全量遍历计算节点数、边数、平均出度与平均边权重
func (g *Graph) Stats() GraphStats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var st GraphStats
	var weightSum float64
	st.Nodes = len(g.nodes)
	for _, n := range g.nodes {
		st.Edges += len(n.Edges)
		for _, e := range n.Edges {
			weightSum += e.Weight
		}
	}
	if st.Nodes > 0 {
		st.AverageDegree = float64(st.Edges) / float64(st.Nodes)
	}
	if st.Edges > 0 {
		st.AverageEdgeWeight = weightSum / float64(st.Edges)
	}
	return st
}

// sortedEdgesLocked 按目标指纹排序的出边，保证搜索结果确定；调用方需持有读锁
func (g *Graph) sortedEdgesLocked(pattern string) []*Edge {
	n, ok := g.nodes[pattern]
	if !ok || len(n.Edges) == 0 {
		return nil
	}
	out := make([]*Edge, 0, len(n.Edges))
	for _, e := range n.Edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].To < out[j].To })
	return out
}
