package cascade

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

var errCollaborator = errors.New("collaborator unavailable")

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// typeFingerprinter 以 Type 作为模式；Type 为 "bad" 时失败
type typeFingerprinter struct{}

func (typeFingerprinter) Fingerprint(_ context.Context, occ ErrorOccurrence) (string, error) {
	if occ.Type == "" || occ.Type == "bad" {
		return "", errCollaborator
	}
	return occ.Type, nil
}

type fixedSimilarity struct {
	score float64
	err   error
}

func (s fixedSimilarity) Similarity(context.Context, string, string) (float64, error) {
	return s.score, s.err
}

type fixedDecay struct {
	factor float64
	err    error
}

func (d fixedDecay) TemporalDecay(context.Context, time.Time) (float64, error) {
	return d.factor, d.err
}

type fakeHistory struct {
	mu   sync.Mutex
	occs []ErrorOccurrence
	err  error
}

func (h *fakeHistory) RecentErrors(context.Context, time.Duration) ([]ErrorOccurrence, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return nil, h.err
	}
	out := make([]ErrorOccurrence, len(h.occs))
	copy(out, h.occs)
	return out, nil
}

type countingSearcher struct {
	inner ChainSearcher
	calls atomic.Int32
}

func (c *countingSearcher) FindChains(ctx context.Context, start string, opts SearchOptions) []Chain {
	c.calls.Add(1)
	return c.inner.FindChains(ctx, start, opts)
}

func occurrence(typ, source string, at time.Time) ErrorOccurrence {
	return ErrorOccurrence{ID: typ + "-" + at.Format(time.RFC3339Nano), Type: typ, Source: source, Timestamp: at}
}

func chainKeys(chains []Chain) []string {
	out := make([]string, 0, len(chains))
	for _, c := range chains {
		out = append(out, c.String())
	}
	return out
}

func expNeg(x float64) float64 { return math.Exp(-x) }
