package cascade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyRisk(t *testing.T) {
	tests := []struct {
		name   string
		avg    float64
		maxLen int
		want   Risk
	}{
		{"high by probability", 0.85, 2, RiskHigh},
		{"high by length", 0.3, 4, RiskHigh},
		{"high by both", 0.85, 4, RiskHigh},
		{"medium by probability", 0.7, 2, RiskMedium},
		{"medium by length", 0.3, 3, RiskMedium},
		{"boundaries are exclusive", 0.6, 2, RiskLow},
		{"low", 0.2, 2, RiskLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyRisk(tt.avg, tt.maxLen))
		})
	}
}

func TestSummarize(t *testing.T) {
	chains := []Chain{
		{Patterns: []string{"A", "B", "C", "D"}, Probability: 0.9, Length: 4},
		{Patterns: []string{"A", "B"}, Probability: 0.8, Length: 2},
	}
	s := Summarize(chains)
	assert.Equal(t, RiskHigh, s.Risk)
	assert.InDelta(t, 0.85, s.AverageProbability, 1e-9)
	assert.Equal(t, 4, s.MaxChainLength)
	require.NotNil(t, s.TopChain)
	assert.Equal(t, "A -> B -> C -> D", s.TopChain.String())
	assert.Contains(t, s.Message, "A -> B -> C -> D")
	assert.Contains(t, s.Message, "0.90")
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, RiskLow, s.Risk)
	assert.Equal(t, NoChainsMessage, s.Message)
	assert.Nil(t, s.TopChain)
	assert.Zero(t, s.AverageProbability)
}

func TestConfidence(t *testing.T) {
	assert.Zero(t, Confidence(nil))
	chains := []Chain{
		{Probability: 0.9, Length: 2},
		{Probability: 0.6, Length: 4},
	}
	// (0.9*2 + 0.6*4) / 6
	assert.InDelta(t, 0.7, Confidence(chains), 1e-9)
}
