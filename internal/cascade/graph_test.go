package cascade

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_AddEdge_Averaging(t *testing.T) {
	g := NewGraph()
	g.AddEdge("A", "B", 0.8, baseTime)
	g.AddEdge("A", "B", 0.4, baseTime.Add(time.Minute))

	n, ok := g.GetNode("A")
	require.True(t, ok)
	require.Len(t, n.Edges, 1)
	e := n.Edges["B"]
	assert.InDelta(t, 0.6, e.Weight, 1e-9)
	assert.Equal(t, 2, e.Count)
	assert.Equal(t, baseTime, e.Timestamp)
	assert.Equal(t, baseTime.Add(time.Minute), e.LastSeen)
}

func TestGraph_AddEdge_LastSeenMonotonic(t *testing.T) {
	g := NewGraph()
	g.AddEdge("A", "B", 0.5, baseTime)
	g.AddEdge("A", "B", 0.5, baseTime.Add(-time.Hour))

	n, _ := g.GetNode("A")
	assert.Equal(t, baseTime, n.Edges["B"].LastSeen)
	assert.Equal(t, 2, n.Edges["B"].Count)
}

func TestGraph_AddEdge_CreatesSourceOnly(t *testing.T) {
	g := NewGraph()
	g.AddEdge("A", "B", 1.5, baseTime)

	assert.True(t, g.HasNode("A"))
	assert.False(t, g.HasNode("B"))
	n, _ := g.GetNode("A")
	assert.Equal(t, 1.0, n.Edges["B"].Weight, "weight is clamped to [0,1]")
}

func TestGraph_AddNode_KeepsExistingMetadata(t *testing.T) {
	g := NewGraph()
	g.AddNode("A", 3, baseTime)
	g.AddNode("A", 10, baseTime.Add(time.Hour))

	n, ok := g.GetNode("A")
	require.True(t, ok)
	assert.Equal(t, 3, n.Metadata.Occurrences)
	assert.Equal(t, baseTime, n.Metadata.FirstSeen)
	assert.Equal(t, baseTime, n.Metadata.LastSeen)
	assert.Equal(t, SeverityMedium, n.Metadata.Severity)
}

func TestGraph_RecordOccurrence(t *testing.T) {
	g := NewGraph()
	g.RecordOccurrence("A", baseTime, SeverityHigh)
	g.RecordOccurrence("A", baseTime.Add(time.Minute), SeverityLow)
	g.RecordOccurrence("A", baseTime.Add(-time.Minute), SeverityCritical)

	n, _ := g.GetNode("A")
	assert.Equal(t, 3, n.Metadata.Occurrences)
	assert.Equal(t, baseTime.Add(-time.Minute), n.Metadata.FirstSeen)
	assert.Equal(t, baseTime.Add(time.Minute), n.Metadata.LastSeen)
	assert.Equal(t, SeverityCritical, n.Metadata.Severity)
}

func TestGraph_GetNode_ReturnsCopy(t *testing.T) {
	g := NewGraph()
	g.AddEdge("A", "B", 0.5, baseTime)

	n, _ := g.GetNode("A")
	n.Edges["B"].Weight = 0.99
	n.Edges["C"] = &Edge{To: "C"}

	again, _ := g.GetNode("A")
	assert.Equal(t, 0.5, again.Edges["B"].Weight)
	assert.Len(t, again.Edges, 1)
}

func TestGraph_Stats(t *testing.T) {
	g := NewGraph()
	assert.Equal(t, GraphStats{}, g.Stats())

	g.AddNode("C", 1, baseTime)
	g.AddEdge("A", "B", 0.9, baseTime)
	g.AddEdge("A", "C", 0.5, baseTime)
	g.AddEdge("C", "A", 0.4, baseTime)

	st := g.Stats()
	assert.Equal(t, 2, st.Nodes)
	assert.Equal(t, 3, st.Edges)
	assert.InDelta(t, 1.5, st.AverageDegree, 1e-9)
	assert.InDelta(t, 0.6, st.AverageEdgeWeight, 1e-9)
	assert.Equal(t, []string{"A", "C"}, g.Patterns())
}

func TestGraph_ConcurrentAddEdge(t *testing.T) {
	g := NewGraph()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.AddEdge("A", "B", 0.5, baseTime)
			_ = g.Stats()
		}()
	}
	wg.Wait()

	n, _ := g.GetNode("A")
	assert.Equal(t, 50, n.Edges["B"].Count)
	assert.InDelta(t, 0.5, n.Edges["B"].Weight, 1e-9)
}
