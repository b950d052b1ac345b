package port

import "context"

// SimilarityScorer rates how closely text matches a candidate description, in [0,1].
type SimilarityScorer interface {
	Similarity(ctx context.Context, text, candidate string) (float64, error)
}
