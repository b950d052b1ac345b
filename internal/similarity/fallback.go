package similarity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"schedex/internal/port"
)

type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed
}

func (c *circuitState) isOpen(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// Fallback tries scorers in order, skipping those whose circuit is open after
// a rate limit. It implements port.SimilarityScorer.
type Fallback struct {
	scorers  []port.SimilarityScorer
	circuits []*circuitState
	names    []string
	now      func() time.Time
}

// NewFallback creates a Fallback from an ordered list of scorers and their names.
func NewFallback(scorers []port.SimilarityScorer, names []string) *Fallback {
	circuits := make([]*circuitState, len(scorers))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	return &Fallback{
		scorers:  scorers,
		circuits: circuits,
		names:    names,
		now:      time.Now,
	}
}

func (f *Fallback) Similarity(ctx context.Context, text, candidate string) (float64, error) {
	now := f.now()
	var lastErr error
	var earliestReset time.Time

	for i, s := range f.scorers {
		if resetAt, open := f.circuits[i].isOpen(now); open {
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		score, err := s.Similarity(ctx, text, candidate)
		if err == nil {
			return score, nil
		}

		log.Printf("similarity.Fallback: %s failed: %v", f.names[i], err)
		lastErr = err

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			resetAt := now.Add(rlErr.RetryAfter)
			f.circuits[i].open(resetAt)
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
		}
	}

	if lastErr == nil {
		retryAfter := earliestReset.Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return 0, NewRateLimitError("all", fmt.Errorf("all scorers rate limited"), int(retryAfter.Seconds()))
	}
	return 0, fmt.Errorf("all scorers failed: %w", lastErr)
}
