package similarity

import (
	"fmt"

	"schedex/internal/config"
	"schedex/internal/port"
)

// ProviderFactory creates a scorer from the similarity config.
type ProviderFactory func(cfg *config.SimilarityConfig) (port.SimilarityScorer, error)

var providers = map[string]ProviderFactory{
	"heuristic": func(_ *config.SimilarityConfig) (port.SimilarityScorer, error) {
		return NewHeuristic(), nil
	},
}

// RegisterProvider registers a scorer factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewScorer builds the configured scorer. Provider "none" returns nil, which
// disables the semantic tiers. Remote providers fall back to the heuristic
// scorer, and the chain is wrapped in a Cached.
func NewScorer(cfg *config.SimilarityConfig) (*Cached, error) {
	if cfg.Provider == "" || cfg.Provider == "none" {
		return nil, nil
	}
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown similarity provider: %s", cfg.Provider)
	}
	primary, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating %s scorer: %w", cfg.Provider, err)
	}

	var scorer port.SimilarityScorer = primary
	if cfg.Provider != "heuristic" {
		scorer = NewFallback(
			[]port.SimilarityScorer{primary, NewHeuristic()},
			[]string{cfg.Provider, "heuristic"},
		)
	}
	return NewCached(scorer, cfg.CacheSize), nil
}
