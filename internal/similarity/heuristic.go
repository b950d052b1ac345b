package similarity

import "context"

// Heuristic scores text against a candidate with token overlap, trigram overlap
// and edit distance. It never fails and needs no network.
type Heuristic struct{}

// NewHeuristic creates a heuristic scorer.
func NewHeuristic() *Heuristic { return &Heuristic{} }

// Similarity returns 0.5*token Jaccard + 0.3*trigram Jaccard + 0.2*Levenshtein ratio,
// raised to the token containment of text in candidate when that is higher.
func (h *Heuristic) Similarity(_ context.Context, text, candidate string) (float64, error) {
	score := 0.5*TokenJaccard(text, candidate) +
		0.3*TrigramJaccard(text, candidate) +
		0.2*LevenshteinRatio(text, candidate)

	// A short header fully contained in a longer description is a strong signal
	// but not an exact one.
	if c := 0.8 * containment(text, candidate); c > score {
		score = c
	}
	return clamp(score), nil
}

func containment(text, candidate string) float64 {
	tt := Tokens(text)
	if len(tt) == 0 {
		return 0
	}
	ct := make(map[string]bool)
	for _, t := range Tokens(candidate) {
		ct[t] = true
	}
	hit := 0
	for _, t := range tt {
		if ct[t] {
			hit++
		}
	}
	return float64(hit) / float64(len(tt))
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
