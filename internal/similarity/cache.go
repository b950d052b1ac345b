package similarity

import (
	"context"
	"sync"

	"schedex/internal/port"
)

// Cached memoizes a scorer's successful results for the lifetime of the value.
// Errors are not cached. Close releases the memo; a closed Cached passes
// every call straight through.
type Cached struct {
	next    port.SimilarityScorer
	maxSize int

	mu     sync.Mutex
	memo   map[cacheKey]float64
	order  []cacheKey
	closed bool
}

type cacheKey struct {
	text      string
	candidate string
}

// NewCached wraps next with a bounded FIFO memo. maxSize <= 0 means 1024.
func NewCached(next port.SimilarityScorer, maxSize int) *Cached {
	if maxSize <= 0 {
		maxSize = 1024
	}
	return &Cached{
		next:    next,
		maxSize: maxSize,
		memo:    make(map[cacheKey]float64),
	}
}

func (c *Cached) Similarity(ctx context.Context, text, candidate string) (float64, error) {
	key := cacheKey{text: text, candidate: candidate}

	c.mu.Lock()
	if !c.closed {
		if v, ok := c.memo[key]; ok {
			c.mu.Unlock()
			return v, nil
		}
	}
	c.mu.Unlock()

	v, err := c.next.Similarity(ctx, text, candidate)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return v, nil
	}
	if _, ok := c.memo[key]; !ok {
		if len(c.order) >= c.maxSize {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.memo, oldest)
		}
		c.order = append(c.order, key)
	}
	c.memo[key] = v
	return v, nil
}

// Len returns the number of memoized results.
func (c *Cached) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.memo)
}

// Close drops the memo.
func (c *Cached) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.memo = nil
	c.order = nil
	return nil
}
