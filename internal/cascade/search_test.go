package cascade

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchOpts(maxLen int, minConf float64) SearchOptions {
	return SearchOptions{MaxLength: maxLen, MinConfidence: minConf, Limit: 100}
}

func TestSearchEngine_EndToEnd(t *testing.T) {
	g := NewGraph()
	g.AddNode("A", 1, baseTime)
	g.AddNode("B", 1, baseTime)
	g.AddEdge("A", "B", 0.9, baseTime)
	g.AddEdge("B", "C", 0.8, baseTime)
	s := NewSearchEngine(g, fixedDecay{factor: 0.98}, nil)

	chains := s.FindChains(context.Background(), "A", searchOpts(3, 0.5))
	require.Len(t, chains, 2)
	assert.Equal(t, []string{"A", "B"}, chains[0].Patterns)
	assert.InDelta(t, 0.9*0.98, chains[0].Probability, 1e-9)
	assert.Equal(t, 2, chains[0].Length)
	assert.Equal(t, []string{"A", "B", "C"}, chains[1].Patterns)
	assert.InDelta(t, 0.9*0.8*0.98*0.98, chains[1].Probability, 1e-9)
	assert.Less(t, chains[1].Probability, chains[0].Probability)
}

func TestSearchEngine_CycleAvoidance(t *testing.T) {
	g := NewGraph()
	g.AddEdge("A", "B", 1, baseTime)
	g.AddEdge("B", "A", 1, baseTime)
	s := NewSearchEngine(g, fixedDecay{factor: 1}, nil)

	chains := s.FindChains(context.Background(), "A", searchOpts(10, 0))
	require.Len(t, chains, 1)
	assert.Equal(t, []string{"A", "B"}, chains[0].Patterns)
	for _, c := range chains {
		seen := map[string]bool{}
		for _, p := range c.Patterns {
			assert.False(t, seen[p], "pattern %s repeated in %s", p, c)
			seen[p] = true
		}
	}
}

func TestSearchEngine_SiblingBranchesShareNodes(t *testing.T) {
	// 菱形：两条分支都能到达 D，单一全局 visited 会漏掉其中一条
	g := NewGraph()
	g.AddEdge("A", "B", 0.9, baseTime)
	g.AddEdge("A", "C", 0.9, baseTime)
	g.AddEdge("B", "D", 0.9, baseTime)
	g.AddEdge("C", "D", 0.9, baseTime)
	s := NewSearchEngine(g, fixedDecay{factor: 1}, nil)

	chains := s.FindChains(context.Background(), "A", searchOpts(5, 0.5))
	assert.ElementsMatch(t, []string{"A -> B", "A -> C", "A -> B -> D", "A -> C -> D"}, chainKeys(chains))
}

func TestSearchEngine_Pruning(t *testing.T) {
	g := NewGraph()
	g.AddEdge("A", "B", 0.9, baseTime)
	g.AddEdge("B", "C", 0.5, baseTime) // 0.45 < 0.6，此处剪枝
	g.AddEdge("C", "D", 1.0, baseTime)
	g.AddEdge("A", "E", 0.7, baseTime)
	g.AddEdge("E", "F", 0.9, baseTime) // 0.63
	s := NewSearchEngine(g, fixedDecay{factor: 1}, nil)

	chains := s.FindChains(context.Background(), "A", searchOpts(5, 0.6))
	assert.ElementsMatch(t, []string{"A -> B", "A -> E", "A -> E -> F"}, chainKeys(chains))
	for _, c := range chains {
		assert.GreaterOrEqual(t, c.Probability, 0.6)
	}
	// 降序
	for i := 1; i < len(chains); i++ {
		assert.GreaterOrEqual(t, chains[i-1].Probability, chains[i].Probability)
	}
}

func TestSearchEngine_MaxLengthAndLimit(t *testing.T) {
	g := NewGraph()
	g.AddEdge("A", "B", 1, baseTime)
	g.AddEdge("B", "C", 1, baseTime)
	g.AddEdge("C", "D", 1, baseTime)
	s := NewSearchEngine(g, fixedDecay{factor: 1}, nil)

	chains := s.FindChains(context.Background(), "A", searchOpts(3, 0.5))
	assert.Equal(t, []string{"A -> B", "A -> B -> C"}, chainKeys(chains))

	chains = s.FindChains(context.Background(), "A", SearchOptions{MaxLength: 10, MinConfidence: 0.5, Limit: 2})
	assert.Equal(t, []string{"A -> B", "A -> B -> C"}, chainKeys(chains), "ties broken by shorter chain first")

	chains = s.FindChains(context.Background(), "A", searchOpts(1, 0))
	assert.Empty(t, chains)
}

func TestSearchEngine_UnknownStartAndLeaf(t *testing.T) {
	g := NewGraph()
	g.AddNode("lonely", 1, baseTime)
	s := NewSearchEngine(g, fixedDecay{factor: 1}, nil)

	assert.Empty(t, s.FindChains(context.Background(), "missing", searchOpts(5, 0)))
	assert.Empty(t, s.FindChains(context.Background(), "lonely", searchOpts(5, 0)))
}

func TestSearchEngine_DecayFailurePrunes(t *testing.T) {
	g := NewGraph()
	g.AddEdge("A", "B", 1, baseTime)
	s := NewSearchEngine(g, fixedDecay{err: errCollaborator}, nil)

	assert.Empty(t, s.FindChains(context.Background(), "A", searchOpts(5, 0)))
}

func TestSearchEngine_DecayUsesLastSeen(t *testing.T) {
	g := NewGraph()
	g.AddEdge("A", "B", 1, baseTime.Add(-2*time.Hour))
	g.AddEdge("A", "C", 1, baseTime)
	decay := decayFunc(func(at time.Time) float64 {
		if baseTime.Sub(at) > time.Hour {
			return 0.5
		}
		return 1
	})
	s := NewSearchEngine(g, decay, nil)

	chains := s.FindChains(context.Background(), "A", searchOpts(5, 0.6))
	assert.Equal(t, []string{"A -> C"}, chainKeys(chains))
}

func TestSearchEngine_CancelledContext(t *testing.T) {
	g := NewGraph()
	g.AddEdge("A", "B", 1, baseTime)
	s := NewSearchEngine(g, fixedDecay{factor: 1}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, s.FindChains(ctx, "A", searchOpts(5, 0)))
}

type decayFunc func(time.Time) float64

func (f decayFunc) TemporalDecay(_ context.Context, at time.Time) (float64, error) {
	return f(at), nil
}
