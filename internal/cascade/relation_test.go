package cascade

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestEstimator(window time.Duration, sim SimilarityService) *Estimator {
	cfg := DefaultConfig()
	cfg.TemporalWindow = window
	return NewEstimator(cfg, typeFingerprinter{}, sim, nil)
}

func TestEstimator_AreRelated(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		a, b ErrorOccurrence
		sim  SimilarityService
		want bool
	}{
		{
			name: "same source within window",
			a:    occurrence("A", "api", baseTime),
			b:    occurrence("B", "api", baseTime.Add(10*time.Minute)),
			sim:  fixedSimilarity{score: 0},
			want: true,
		},
		{
			name: "different source but similar",
			a:    occurrence("A", "api", baseTime),
			b:    occurrence("B", "db", baseTime.Add(10*time.Minute)),
			sim:  fixedSimilarity{score: 0.6},
			want: true,
		},
		{
			name: "similarity must exceed threshold",
			a:    occurrence("A", "api", baseTime),
			b:    occurrence("B", "db", baseTime.Add(10*time.Minute)),
			sim:  fixedSimilarity{score: 0.5},
			want: false,
		},
		{
			name: "empty sources do not match",
			a:    occurrence("A", "", baseTime),
			b:    occurrence("B", "", baseTime.Add(time.Minute)),
			sim:  fixedSimilarity{score: 0.1},
			want: false,
		},
		{
			name: "outside window",
			a:    occurrence("A", "api", baseTime),
			b:    occurrence("B", "api", baseTime.Add(61*time.Minute)),
			sim:  fixedSimilarity{score: 1},
			want: false,
		},
		{
			name: "order does not matter",
			a:    occurrence("A", "api", baseTime.Add(30*time.Minute)),
			b:    occurrence("B", "api", baseTime),
			sim:  fixedSimilarity{score: 0},
			want: true,
		},
		{
			name: "missing timestamp",
			a:    ErrorOccurrence{Type: "A", Source: "api"},
			b:    occurrence("B", "api", baseTime),
			sim:  fixedSimilarity{score: 1},
			want: false,
		},
		{
			name: "similarity failure fails closed",
			a:    occurrence("A", "api", baseTime),
			b:    occurrence("B", "api", baseTime.Add(time.Minute)),
			sim:  fixedSimilarity{err: errCollaborator},
			want: false,
		},
		{
			name: "fingerprint failure fails closed",
			a:    occurrence("bad", "api", baseTime),
			b:    occurrence("B", "api", baseTime.Add(time.Minute)),
			sim:  fixedSimilarity{score: 1},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEstimator(time.Hour, tt.sim)
			assert.Equal(t, tt.want, e.AreRelated(ctx, tt.a, tt.b))
		})
	}
}

func TestEstimator_EdgeWeight(t *testing.T) {
	ctx := context.Background()
	e := newTestEstimator(time.Hour, fixedSimilarity{score: 1})

	// Δt=0: temporal=1 → 0.4 + 0.3 + 0.15
	w := e.EdgeWeight(ctx, occurrence("A", "api", baseTime), occurrence("B", "api", baseTime))
	assert.InDelta(t, 0.85, w, 1e-9)

	// Δt=30m, window/2=30m: temporal=e^-1
	w = e.EdgeWeight(ctx, occurrence("A", "api", baseTime), occurrence("B", "api", baseTime.Add(30*time.Minute)))
	assert.InDelta(t, 0.4*math.Exp(-1)+0.3+0.15, w, 1e-9)
}

func TestEstimator_EdgeWeight_Failures(t *testing.T) {
	ctx := context.Background()
	a := occurrence("A", "api", baseTime)
	b := occurrence("B", "api", baseTime.Add(time.Minute))

	e := newTestEstimator(time.Hour, fixedSimilarity{err: errCollaborator})
	assert.Equal(t, 0.0, e.EdgeWeight(ctx, a, b))

	e = newTestEstimator(time.Hour, fixedSimilarity{score: 1})
	assert.Equal(t, 0.0, e.EdgeWeight(ctx, occurrence("bad", "api", baseTime), b))
}

func TestEstimator_TemporalFactor_Edges(t *testing.T) {
	a := occurrence("A", "api", baseTime)
	b := occurrence("B", "api", baseTime.Add(time.Minute))

	e := newTestEstimator(0, fixedSimilarity{score: 1})
	assert.Equal(t, 0.0, e.TemporalFactor(a, b))
	assert.False(t, e.AreRelated(context.Background(), a, b))

	e = newTestEstimator(time.Hour, fixedSimilarity{score: 1})
	assert.Equal(t, 0.0, e.TemporalFactor(ErrorOccurrence{}, b))
	assert.Equal(t, 1.0, e.TemporalFactor(a, a))
}
