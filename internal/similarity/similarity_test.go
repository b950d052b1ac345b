package similarity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"schedex/internal/config"
	"schedex/internal/port"
	"schedex/internal/similarity"
	"schedex/mocks"
)

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"power", "kw"}, similarity.Tokens("Power (kW)"))
	assert.Empty(t, similarity.Tokens("  --  "))
}

func TestTokenJaccard(t *testing.T) {
	assert.Equal(t, 1.0, similarity.TokenJaccard("load id", "ID load"))
	assert.InDelta(t, 1.0/3.0, similarity.TokenJaccard("load id", "load name"), 1e-9)
	assert.Equal(t, 0.0, similarity.TokenJaccard("", ""))
}

func TestNGrams(t *testing.T) {
	assert.Equal(t, []string{"kva"}, similarity.NGrams("KVA", 3))
	assert.Equal(t, []string{"kw"}, similarity.NGrams("kW", 3))
	assert.Nil(t, similarity.NGrams("  ", 3))
	assert.Equal(t, []string{"cab", "abl", "ble"}, similarity.NGrams("cable", 3))
}

func TestLevenshteinRatio(t *testing.T) {
	assert.Equal(t, 1.0, similarity.LevenshteinRatio("", ""))
	assert.Equal(t, 1.0, similarity.LevenshteinRatio("Phase", "phase"))
	assert.InDelta(t, 5.0/6.0, similarity.LevenshteinRatio("phase", "phases"), 1e-9)
	assert.InDelta(t, 1.0-3.0/7.0, similarity.LevenshteinRatio("kitten", "sitting"), 1e-9)
}

func TestHeuristic_Similarity(t *testing.T) {
	h := similarity.NewHeuristic()
	ctx := context.Background()

	same, err := h.Similarity(ctx, "cable length", "cable length")
	require.NoError(t, err)
	assert.Equal(t, 1.0, same)

	contained, err := h.Similarity(ctx, "power factor", "power factor between zero and one")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, contained, 1e-9)

	unrelated, err := h.Similarity(ctx, "armour", "rated supply voltage in volts")
	require.NoError(t, err)
	assert.Less(t, unrelated, 0.3)
	assert.GreaterOrEqual(t, unrelated, 0.0)
}

func TestFallback_Similarity_FirstSucceeds(t *testing.T) {
	primary := new(mocks.MockSimilarityScorer)
	secondary := new(mocks.MockSimilarityScorer)
	primary.On("Similarity", mock.Anything, "kw", "power").Return(0.9, nil)

	f := similarity.NewFallback([]port.SimilarityScorer{primary, secondary}, []string{"primary", "secondary"})
	score, err := f.Similarity(context.Background(), "kw", "power")

	require.NoError(t, err)
	assert.Equal(t, 0.9, score)
	secondary.AssertNotCalled(t, "Similarity", mock.Anything, mock.Anything, mock.Anything)
}

func TestFallback_Similarity_FallsThroughOnError(t *testing.T) {
	primary := new(mocks.MockSimilarityScorer)
	secondary := new(mocks.MockSimilarityScorer)
	primary.On("Similarity", mock.Anything, "kw", "power").Return(0.0, errors.New("timeout"))
	secondary.On("Similarity", mock.Anything, "kw", "power").Return(0.4, nil)

	f := similarity.NewFallback([]port.SimilarityScorer{primary, secondary}, []string{"primary", "secondary"})
	score, err := f.Similarity(context.Background(), "kw", "power")

	require.NoError(t, err)
	assert.Equal(t, 0.4, score)
}

func TestFallback_Similarity_RateLimitOpensCircuit(t *testing.T) {
	primary := new(mocks.MockSimilarityScorer)
	secondary := new(mocks.MockSimilarityScorer)
	rl := similarity.NewRateLimitError("primary", errors.New("429"), 60)
	primary.On("Similarity", mock.Anything, mock.Anything, mock.Anything).Return(0.0, rl).Once()
	secondary.On("Similarity", mock.Anything, mock.Anything, mock.Anything).Return(0.5, nil)

	f := similarity.NewFallback([]port.SimilarityScorer{primary, secondary}, []string{"primary", "secondary"})
	ctx := context.Background()

	_, err := f.Similarity(ctx, "a", "b")
	require.NoError(t, err)
	_, err = f.Similarity(ctx, "c", "d")
	require.NoError(t, err)

	primary.AssertNumberOfCalls(t, "Similarity", 1)
	secondary.AssertNumberOfCalls(t, "Similarity", 2)
}

func TestFallback_Similarity_AllFail(t *testing.T) {
	primary := new(mocks.MockSimilarityScorer)
	primary.On("Similarity", mock.Anything, mock.Anything, mock.Anything).Return(0.0, errors.New("boom"))

	f := similarity.NewFallback([]port.SimilarityScorer{primary}, []string{"primary"})
	_, err := f.Similarity(context.Background(), "a", "b")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "all scorers failed")
}

func TestFallback_Similarity_AllRateLimited(t *testing.T) {
	primary := new(mocks.MockSimilarityScorer)
	primary.On("Similarity", mock.Anything, mock.Anything, mock.Anything).
		Return(0.0, similarity.NewRateLimitError("primary", errors.New("429"), 10)).Once()

	f := similarity.NewFallback([]port.SimilarityScorer{primary}, []string{"primary"})
	ctx := context.Background()
	_, _ = f.Similarity(ctx, "a", "b")
	_, err := f.Similarity(ctx, "a", "b")

	var rl *similarity.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, "all", rl.Provider)
	assert.GreaterOrEqual(t, rl.RetryAfter, time.Second)
}

func TestCached_Similarity_Memoizes(t *testing.T) {
	next := new(mocks.MockSimilarityScorer)
	next.On("Similarity", mock.Anything, "volts", "voltage").Return(0.7, nil).Once()

	c := similarity.NewCached(next, 8)
	ctx := context.Background()

	for range 3 {
		score, err := c.Similarity(ctx, "volts", "voltage")
		require.NoError(t, err)
		assert.Equal(t, 0.7, score)
	}
	assert.Equal(t, 1, c.Len())
	next.AssertExpectations(t)
}

func TestCached_Similarity_ErrorsNotCached(t *testing.T) {
	next := new(mocks.MockSimilarityScorer)
	next.On("Similarity", mock.Anything, "a", "b").Return(0.0, errors.New("down")).Once()
	next.On("Similarity", mock.Anything, "a", "b").Return(0.3, nil).Once()

	c := similarity.NewCached(next, 8)
	_, err := c.Similarity(context.Background(), "a", "b")
	require.Error(t, err)

	score, err := c.Similarity(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, 0.3, score)
}

func TestCached_Similarity_EvictsOldest(t *testing.T) {
	next := new(mocks.MockSimilarityScorer)
	next.On("Similarity", mock.Anything, mock.Anything, mock.Anything).Return(0.5, nil)

	c := similarity.NewCached(next, 2)
	ctx := context.Background()
	_, _ = c.Similarity(ctx, "a", "x")
	_, _ = c.Similarity(ctx, "b", "x")
	_, _ = c.Similarity(ctx, "c", "x")
	assert.Equal(t, 2, c.Len())

	// "a" was evicted and is fetched again.
	_, _ = c.Similarity(ctx, "a", "x")
	next.AssertNumberOfCalls(t, "Similarity", 4)
}

func TestCached_Close(t *testing.T) {
	next := new(mocks.MockSimilarityScorer)
	next.On("Similarity", mock.Anything, "a", "b").Return(0.5, nil)

	c := similarity.NewCached(next, 8)
	_, _ = c.Similarity(context.Background(), "a", "b")
	require.NoError(t, c.Close())
	assert.Equal(t, 0, c.Len())

	score, err := c.Similarity(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, 0.5, score)
	next.AssertNumberOfCalls(t, "Similarity", 2)
}

func TestNewScorer(t *testing.T) {
	t.Run("none disables scoring", func(t *testing.T) {
		s, err := similarity.NewScorer(&config.SimilarityConfig{Provider: "none"})
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("heuristic", func(t *testing.T) {
		s, err := similarity.NewScorer(&config.SimilarityConfig{Provider: "heuristic"})
		require.NoError(t, err)
		require.NotNil(t, s)
		score, err := s.Similarity(context.Background(), "load id", "load id")
		require.NoError(t, err)
		assert.Equal(t, 1.0, score)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := similarity.NewScorer(&config.SimilarityConfig{Provider: "bogus"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown similarity provider")
	})

	t.Run("registered provider falls back to heuristic", func(t *testing.T) {
		remote := new(mocks.MockSimilarityScorer)
		remote.On("Similarity", mock.Anything, mock.Anything, mock.Anything).Return(0.0, errors.New("offline"))
		similarity.RegisterProvider("test-remote", func(*config.SimilarityConfig) (port.SimilarityScorer, error) {
			return remote, nil
		})

		s, err := similarity.NewScorer(&config.SimilarityConfig{Provider: "test-remote"})
		require.NoError(t, err)
		score, err := s.Similarity(context.Background(), "phases", "phases")
		require.NoError(t, err)
		assert.Equal(t, 1.0, score)
	})
}

func TestParseRetryAfterHeader(t *testing.T) {
	assert.Equal(t, 0, similarity.ParseRetryAfterHeader(""))
	assert.Equal(t, 0, similarity.ParseRetryAfterHeader("soon"))
	assert.Equal(t, 12, similarity.ParseRetryAfterHeader("12"))
}

func TestNewRateLimitError_DefaultRetry(t *testing.T) {
	err := similarity.NewRateLimitError("claude", errors.New("429"), 0)
	assert.Equal(t, 30*time.Second, err.RetryAfter)
	assert.Contains(t, err.Error(), "claude rate limited")
	assert.EqualError(t, errors.Unwrap(err), "429")
}
